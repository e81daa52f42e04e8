package llm

import "testing"

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "OPENAI_API_KEY", "OPENROUTER_API_KEY",
		"OPENAI_API_BASE", "OPENAI_BASE_URL", "OPENROUTER_API_BASE", "OPENROUTER_BASE_URL",
		"OPENAI_MODEL", "OPENROUTER_MODEL",
		"OPENAI_API_KEY_HEADER", "OPENROUTER_API_KEY_HEADER",
		"OPENAI_API_KEY_PREFIX", "OPENROUTER_API_KEY_PREFIX",
		"OPENROUTER_SITE_URL", "OPENROUTER_TITLE", "OPENAI_ORG",
	} {
		t.Setenv(k, "")
	}
}

func TestResolveAPIConfigOpenAIDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	cfg, err := resolveAPIConfig("gpt-4o")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenAI {
		t.Fatalf("expected providerOpenAI, got %v", cfg.Kind)
	}
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base URL: %q", cfg.BaseURL)
	}
	if cfg.HeaderName != "Authorization" || cfg.HeaderPrefix != "Bearer " {
		t.Fatalf("unexpected auth header: %q %q", cfg.HeaderName, cfg.HeaderPrefix)
	}
}

func TestResolveAPIConfigDetectsOpenRouterFromBase(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_API_KEY", "test-key")
	cfg, err := resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenRouter {
		t.Fatalf("expected providerOpenRouter, got %v", cfg.Kind)
	}
}

func TestResolveAPIConfigDetectsOpenRouterFromKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	cfg, err := resolveAPIConfig("gpt-4o")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenRouter {
		t.Fatalf("expected providerOpenRouter, got %v", cfg.Kind)
	}
	if cfg.APIKey != "or-key" {
		t.Fatalf("unexpected key: %q", cfg.APIKey)
	}
	if cfg.BaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base URL: %q", cfg.BaseURL)
	}
}

func TestResolveAPIConfigProviderOverride(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("LLM_PROVIDER", "openai")
	cfg, err := resolveAPIConfig("gpt-4o")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenAI {
		t.Fatalf("expected providerOpenAI, got %v", cfg.Kind)
	}
	if cfg.APIKey != "oa-key" {
		t.Fatalf("unexpected key: %q", cfg.APIKey)
	}
}

func TestResolveAPIConfigOpenRouterHeaders(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENROUTER_SITE_URL", "https://example.com/app")
	t.Setenv("OPENROUTER_TITLE", "Custom Title")
	cfg, err := resolveAPIConfig("gpt-4o")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if got := cfg.ExtraHeaders["HTTP-Referer"]; got != "https://example.com/app" {
		t.Fatalf("unexpected HTTP-Referer: %q", got)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != "Custom Title" {
		t.Fatalf("unexpected X-Title: %q", got)
	}
}

func TestResolveAPIConfigMissingKey(t *testing.T) {
	clearProviderEnv(t)
	if _, err := resolveAPIConfig("gpt-4o"); err == nil {
		t.Fatalf("expected error when no API key is set")
	}
}

func TestResolveAPIConfigMissingModel(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	if _, err := resolveAPIConfig(""); err == nil {
		t.Fatalf("expected error when no model is set")
	}
}
