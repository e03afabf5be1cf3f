package provider

import (
	"errors"
	"testing"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

func testRouterConfig() *config.Config {
	cfg := config.Default()
	cfg.Providers = []config.Provider{
		{
			Name:         "openai",
			BaseURL:      "https://api.openai.com/v1",
			APIKey:       "sk-test",
			ProviderType: config.ProviderTypeOpenAI,
			Models:       []string{"gpt-4", "gpt-3.5-turbo", "gpt-4-0613"},
			Timeout:      5,
		},
		{
			Name:         "local",
			BaseURL:      "http://localhost:11434/v1",
			APIKey:       "none",
			ProviderType: config.ProviderTypeCustom,
			Timeout:      5,
		},
	}
	cfg.ModelMappings = []config.ModelMapping{
		{DisplayName: "official/gpt-4", ProviderName: "openai", ActualModelName: "gpt-4"},
		{DisplayName: "openai/gpt-4", ProviderName: "openai", ActualModelName: "gpt-4-0613"},
	}
	return cfg
}

func TestResolveMapping(t *testing.T) {
	r := NewRouter(testRouterConfig())

	target, err := r.Resolve("official/gpt-4")
	if err != nil {
		t.Fatalf("Failed to resolve mapped model: %v", err)
	}
	if target.Provider.Name != "openai" {
		t.Errorf("provider = %q, want openai", target.Provider.Name)
	}
	if target.Model != "gpt-4" {
		t.Errorf("actual model = %q, want gpt-4", target.Model)
	}
	if target.DisplayName != "official/gpt-4" {
		t.Errorf("display name = %q", target.DisplayName)
	}
}

func TestResolveMappingWinsOverNamespace(t *testing.T) {
	r := NewRouter(testRouterConfig())

	// "openai/gpt-4" is both a valid namespace form and an explicit
	// mapping; the mapping must win.
	target, err := r.Resolve("openai/gpt-4")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if target.Model != "gpt-4-0613" {
		t.Errorf("actual model = %q, want gpt-4-0613 from the mapping table", target.Model)
	}
}

func TestResolveNamespace(t *testing.T) {
	r := NewRouter(testRouterConfig())

	target, err := r.Resolve("openai/gpt-3.5-turbo")
	if err != nil {
		t.Fatalf("Failed to resolve namespaced model: %v", err)
	}
	if target.Provider.Name != "openai" || target.Model != "gpt-3.5-turbo" {
		t.Errorf("resolved to (%s, %s)", target.Provider.Name, target.Model)
	}
}

func TestResolveNamespaceSuffixMayContainSlash(t *testing.T) {
	r := NewRouter(testRouterConfig())

	// Only the first slash separates; "local" has no allow list.
	target, err := r.Resolve("local/meta/llama-3-8b")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if target.Provider.Name != "local" || target.Model != "meta/llama-3-8b" {
		t.Errorf("resolved to (%s, %s)", target.Provider.Name, target.Model)
	}
}

func TestResolveFailures(t *testing.T) {
	r := NewRouter(testRouterConfig())

	for _, name := range []string{
		"ghost/x",           // unknown provider
		"gpt-4",             // no mapping, no namespace
		"openai/gpt-5",      // not in the allow list
		"/gpt-4",            // empty provider part
		"openai/",           // empty model part
		"",                  // empty
	} {
		_, err := r.Resolve(name)
		if err == nil {
			t.Errorf("Resolve(%q) succeeded, want model_not_found", name)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeModelNotFound {
			t.Errorf("Resolve(%q) error = %v, want model_not_found", name, err)
		}
	}
}

func TestResolveContextOverride(t *testing.T) {
	cfg := testRouterConfig()
	override := config.DefaultContextConfig()
	override.MaxTurns = 3
	cfg.ModelMappings[0].Context = &override

	r := NewRouter(cfg)

	target, err := r.Resolve("official/gpt-4")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if target.Context.MaxTurns != 3 {
		t.Errorf("mapping context override not applied: MaxTurns = %d", target.Context.MaxTurns)
	}

	other, err := r.Resolve("openai/gpt-3.5-turbo")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if other.Context.MaxTurns != cfg.Context.MaxTurns {
		t.Errorf("namespace resolution should use global defaults, got MaxTurns = %d", other.Context.MaxTurns)
	}
}

func TestListModels(t *testing.T) {
	r := NewRouter(testRouterConfig())

	list := r.ListModels()
	if list.Object != "list" {
		t.Errorf("object = %q, want list", list.Object)
	}
	if len(list.Data) != 2 {
		t.Fatalf("listed %d models, want 2", len(list.Data))
	}
	if list.Data[0].ID != "official/gpt-4" || list.Data[0].OwnedBy != "openai" {
		t.Errorf("first entry = %+v", list.Data[0])
	}
	if list.Data[0].Object != "model" {
		t.Errorf("entry object = %q, want model", list.Data[0].Object)
	}
}
