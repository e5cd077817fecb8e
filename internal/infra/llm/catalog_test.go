package llm

import (
	"errors"
	"testing"
)

func TestModelCatalog_Resolve_DefaultWhenEmpty(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	got, err := c.Resolve(ProviderOpenAI, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "gpt-4o-mini" {
		t.Errorf("default model = %q, want gpt-4o-mini", got)
	}
}

func TestModelCatalog_Resolve_ExplicitListedModel(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	got, err := c.Resolve(ProviderGemini, "gemini-1.5-pro")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "gemini-1.5-pro" {
		t.Errorf("model = %q, want gemini-1.5-pro", got)
	}
}

func TestModelCatalog_Resolve_UnlistedModel(t *testing.T) {
	t.Parallel()

	_, err := DefaultCatalog().Resolve(ProviderOpenAI, "gpt-2")
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("err = %v, want ErrInvalidModel", err)
	}
}

func TestModelCatalog_Resolve_UnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := DefaultCatalog().Resolve("anthropic", "")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestModelCatalog_Providers_Sorted(t *testing.T) {
	t.Parallel()

	got := DefaultCatalog().Providers()
	want := []string{ProviderEcho, ProviderGemini, ProviderOpenAI}
	if len(got) != len(want) {
		t.Fatalf("providers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("providers[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCredential_ZeroAndEmpty(t *testing.T) {
	t.Parallel()

	if c := NewCredential(ProviderOpenAI, ""); c != nil {
		t.Error("NewCredential with empty secret should return nil")
	}

	c := NewCredential(ProviderOpenAI, "sk-test")
	if c.Empty() {
		t.Fatal("fresh credential reports empty")
	}
	if c.Secret() != "sk-test" {
		t.Errorf("Secret = %q", c.Secret())
	}

	c.Zero()
	if !c.Empty() {
		t.Error("credential still non-empty after Zero")
	}
	if c.Secret() != "" {
		t.Errorf("Secret after Zero = %q, want empty", c.Secret())
	}
	c.Zero() // repeated Zero is safe

	var nilCred *Credential
	if !nilCred.Empty() {
		t.Error("nil credential should report empty")
	}
	nilCred.Zero() // nil-safe
}
