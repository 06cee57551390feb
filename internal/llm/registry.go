package llm

import "fmt"

// Vendor identifies which HTTP API a model alias talks to.
type Vendor string

const (
	VendorOpenAI    Vendor = "openai"
	VendorAnthropic Vendor = "anthropic"
)

// RegistryEntry maps a short model alias to the vendor and wire model id,
// grounded on original_source/llm/model_registry.py.
type RegistryEntry struct {
	Vendor      Vendor
	WireModelID string
}

var registry = map[string]RegistryEntry{
	"gpt-4o":        {Vendor: VendorOpenAI, WireModelID: "gpt-4o-2024-08-06"},
	"gpt-4o-mini":   {Vendor: VendorOpenAI, WireModelID: "gpt-4o-mini-2024-07-18"},
	"claude-sonnet": {Vendor: VendorAnthropic, WireModelID: "claude-sonnet-4-20250514"},
	"claude-haiku":  {Vendor: VendorAnthropic, WireModelID: "claude-haiku-4-20250514"},
}

// UnknownModelError reports a model alias absent from the registry.
type UnknownModelError struct{ Alias string }

func (e *UnknownModelError) Error() string { return fmt.Sprintf("llm: unknown model alias %q", e.Alias) }

// Resolve looks up a model alias's vendor and wire id.
func Resolve(alias string) (RegistryEntry, error) {
	entry, ok := registry[alias]
	if !ok {
		return RegistryEntry{}, &UnknownModelError{Alias: alias}
	}
	return entry, nil
}
