package main

import "github.com/giant-wsi/giant/cmd/giant/cmd"

func main() {
	cmd.Execute()
}
