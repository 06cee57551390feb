// Command benchmark is a standalone micro-benchmark harness for GIANT's
// hot paths: crop/resample/encode, tissue segmentation, and one prompt
// build+parse step. It is the thin wrapper the teacher's GPU-vs-CPU OCR
// benchmark binary became once the pipeline it measured (detector,
// recognizer, ONNX) was dropped; the real benchmark is over `giant
// benchmark`'s own navigation core rather than a vendored model.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"image/jpeg"
	"log"
	"os"

	"github.com/giant-wsi/giant/internal/action"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/geometry"
	"github.com/giant-wsi/giant/internal/profiling"
	"github.com/giant-wsi/giant/internal/prompt"
	"github.com/giant-wsi/giant/internal/segment"
	"github.com/giant-wsi/giant/internal/wsi"
)

func main() {
	var (
		iterations = flag.Int("iterations", 10, "number of iterations per benchmark")
		outputFile = flag.String("output", "", "output file for results (optional)")
	)
	flag.Parse()

	fmt.Println("GIANT navigation-core benchmark")
	fmt.Println("================================")

	suite := profiling.NewGiantBenchmark()
	if err := registerBenchmarks(suite); err != nil {
		log.Fatalf("register benchmarks: %v", err)
	}

	fmt.Printf("Running benchmarks with %d iterations per test...\n\n", *iterations)
	results := suite.RunAll(*iterations)
	suite.PrintResults()

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

// registerBenchmarks wires a synthetic slide (wsi.MockDecoder) through the
// crop engine, the Otsu tissue segmenter, and one agent prompt-build+parse
// cycle so the suite exercises the same code paths `giant navigate` does.
func registerBenchmarks(suite *profiling.GiantBenchmark) error {
	const (
		slidePath   = "benchmark-slide"
		slideWidth  = 40000
		slideHeight = 30000
		targetSize  = 1000
		bias        = 0.85
		jpegQuality = 85
	)

	decoder := wsi.NewMockDecoder()
	decoder.Register(slidePath, slideWidth, slideHeight)
	ctx := context.Background()

	metadata, err := decoder.Open(ctx, slidePath)
	if err != nil {
		return fmt.Errorf("open mock slide: %w", err)
	}

	engine := crop.NewEngine(decoder, targetSize, jpegQuality, bias, crop.PolicyReject)
	region := geometry.Region{X: 1000, Y: 1000, Width: 8000, Height: 6000}

	suite.AddCropBenchmark("read_resample_encode", func() error {
		_, err := engine.Crop(ctx, slidePath, metadata, region)
		return err
	})

	thumb, err := engine.Thumbnail(ctx, slidePath, metadata, 512)
	if err != nil {
		return fmt.Errorf("build thumbnail for segmentation benchmark: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(thumb.Base64JPEG)
	if err != nil {
		return fmt.Errorf("decode thumbnail base64: %w", err)
	}
	thumbImg, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode thumbnail jpeg: %w", err)
	}

	suite.AddSegmentationBenchmark("otsu_tissue_mask", func() error {
		mask := segment.Segment(thumbImg)
		if mask.TissueFraction() < 0 {
			return fmt.Errorf("impossible negative tissue fraction")
		}
		return nil
	})

	sampleAction := `{"reasoning":"tissue visible in the upper-left quadrant","action":{"action_type":"crop","x":1000,"y":1000,"width":4000,"height":3000}}`
	suite.AddAgentStepBenchmark("prompt_build_and_parse", func() error {
		_ = prompt.BuildSystemMessage()
		_ = prompt.BuildInitialUserMessage("Is tissue present in this region?", 5)
		_, err := action.Parse(sampleAction)
		return err
	})

	return nil
}

func saveResultsToFile(filename string, results []profiling.BenchmarkResult) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintln(file, "GIANT navigation-core benchmark results")
	_, _ = fmt.Fprintln(file, "========================================")
	_, _ = fmt.Fprintln(file)
	for _, result := range results {
		_, _ = fmt.Fprintf(file, "%s\n", result.String())
	}
	return nil
}
