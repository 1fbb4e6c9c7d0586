package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath: %v", err)
	}
	return cfg
}

func TestLoadConfigCreatesFile(t *testing.T) {
	cfg := testConfig(t)
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if len(cfg.Contexts) != 0 {
		t.Fatalf("expected empty contexts, got %d", len(cfg.Contexts))
	}
}

func TestSetContextRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	err := cfg.SetContext("prod", &Context{
		BaseURL: "https://embed.example.com",
		APIKey:  "secret-key-1234",
	})
	if err != nil {
		t.Fatalf("SetContext: %v", err)
	}

	// First context becomes current.
	if cfg.CurrentContext != "prod" {
		t.Fatalf("CurrentContext = %q, want prod", cfg.CurrentContext)
	}

	reloaded, err := LoadConfigWithPath(cfg.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ctx, err := reloaded.GetContext("prod")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if ctx.BaseURL != "https://embed.example.com" {
		t.Errorf("BaseURL = %q", ctx.BaseURL)
	}
	if ctx.APIKey != "secret-key-1234" {
		t.Errorf("APIKey = %q", ctx.APIKey)
	}
	if reloaded.CurrentContext != "prod" {
		t.Errorf("CurrentContext = %q after reload", reloaded.CurrentContext)
	}
}

func TestUseContextUnknown(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.UseContext("nope"); err == nil {
		t.Fatal("expected error for unknown context")
	}
}

func TestDeleteContextClearsCurrent(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetContext("dev", &Context{BaseURL: "http://localhost:8001"}); err != nil {
		t.Fatalf("SetContext: %v", err)
	}
	if err := cfg.DeleteContext("dev"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext = %q, want empty", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("dev"); err == nil {
		t.Error("expected error deleting missing context")
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetContext("prod", &Context{
		BaseURL: "https://embed.example.com",
		APIKey:  "from-file",
	}); err != nil {
		t.Fatalf("SetContext: %v", err)
	}

	t.Setenv(EnvBaseURL, "http://override:9000")
	t.Setenv(EnvAPIKey, "from-env")

	ctx := cfg.Resolve("")
	if ctx.BaseURL != "http://override:9000" {
		t.Errorf("BaseURL = %q", ctx.BaseURL)
	}
	if ctx.APIKey != "from-env" {
		t.Errorf("APIKey = %q", ctx.APIKey)
	}

	// Overrides must not leak back into the stored context.
	stored, _ := cfg.GetContext("prod")
	if stored.APIKey != "from-file" {
		t.Errorf("stored APIKey mutated: %q", stored.APIKey)
	}
}

func TestResolveMissingContext(t *testing.T) {
	cfg := testConfig(t)

	// No contexts at all: Resolve still returns a usable context so the
	// caller can report an unconfigured service instead of failing here.
	ctx := cfg.Resolve("")
	if ctx == nil {
		t.Fatal("Resolve returned nil")
	}
	if ctx.BaseURL != "" || ctx.APIKey != "" {
		t.Errorf("expected blank credentials, got %q / %q", ctx.BaseURL, ctx.APIKey)
	}
	if ctx.StoreDir == "" {
		t.Error("StoreDir not defaulted")
	}
}

func TestResolveDefaultStoreDir(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetContext("prod", &Context{BaseURL: "http://x"}); err != nil {
		t.Fatalf("SetContext: %v", err)
	}
	ctx := cfg.Resolve("prod")
	want := filepath.Join(cfg.Dir(), "profiles")
	if ctx.StoreDir != want {
		t.Errorf("StoreDir = %q, want %q", ctx.StoreDir, want)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.in); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseInputFormats(t *testing.T) {
	type seg struct {
		SpeakerID string  `json:"speaker_id" yaml:"speaker_id"`
		Start     float64 `json:"start" yaml:"start"`
	}

	var fromJSON []seg
	err := ParseInput([]byte(`[{"speaker_id":"spk_0","start":1.5}]`), "segments.json", &fromJSON)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(fromJSON) != 1 || fromJSON[0].SpeakerID != "spk_0" {
		t.Errorf("json parse: %+v", fromJSON)
	}

	var fromYAML []seg
	err = ParseInput([]byte("- speaker_id: spk_1\n  start: 2.0\n"), "segments.yaml", &fromYAML)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(fromYAML) != 1 || fromYAML[0].SpeakerID != "spk_1" {
		t.Errorf("yaml parse: %+v", fromYAML)
	}

	if err := ParseInput([]byte("{not valid"), "x.json", &fromJSON); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(9.5); got != "9.5s" {
		t.Errorf("got %q", got)
	}
	if got := FormatSeconds(125); !strings.HasPrefix(got, "2m") {
		t.Errorf("got %q", got)
	}
}
