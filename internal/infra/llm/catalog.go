package llm

import (
	"fmt"
	"sort"
)

// ProviderModels is the model catalog entry for one provider: the models
// it accepts and the default used when a request names none.
type ProviderModels struct {
	Default string   `yaml:"default"`
	Models  []string `yaml:"models"`
}

// ModelCatalog maps provider id to its model list. Catalogs are
// configuration data injected at startup, not compiled-in logic:
// versioned model identifiers drift over time and updating them is a
// maintenance task, not a code change.
type ModelCatalog map[string]ProviderModels

// DefaultCatalog returns the catalog used when configuration supplies none.
func DefaultCatalog() ModelCatalog {
	return ModelCatalog{
		ProviderEcho: {
			Default: "echo-1",
			Models:  []string{"echo-1"},
		},
		ProviderOpenAI: {
			Default: "gpt-4o-mini",
			Models:  []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
		},
		ProviderGemini: {
			Default: "gemini-2.0-flash",
			Models:  []string{"gemini-2.0-flash", "gemini-1.5-pro"},
		},
	}
}

// Resolve returns the concrete model for a request: the provider default
// when model is empty, the model itself when listed, or ErrInvalidModel.
// Resolution happens before any network I/O (fail fast).
func (c ModelCatalog) Resolve(providerID, model string) (string, error) {
	entry, ok := c[providerID]
	if !ok {
		return "", fmt.Errorf("%w: no catalog entry for %q", ErrUnknownProvider, providerID)
	}
	if model == "" {
		return entry.Default, nil
	}
	for _, m := range entry.Models {
		if m == model {
			return model, nil
		}
	}
	return "", fmt.Errorf("%w: %q not in catalog for provider %q", ErrInvalidModel, model, providerID)
}

// Providers lists the provider ids present in the catalog, sorted.
func (c ModelCatalog) Providers() []string {
	out := make([]string, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
