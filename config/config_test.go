package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

type testConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Transport struct {
		Timeout time.Duration `mapstructure:"timeout"`
		Name    string        `mapstructure:"name"`
	} `mapstructure:"transport"`

	defaulted bool
	invalid   bool
}

func (c *testConfig) ApplyDefaults() {
	c.defaulted = true
	if c.Transport.Name == "" {
		c.Transport.Name = "default"
	}
}

func (c *testConfig) Validate() error {
	if c.invalid || c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "github.yml", "base_url: https://api.github.com/\ntransport:\n  timeout: 5s\n")

	var cfg testConfig
	if err := LoadConfig("github", &cfg, WithSearchDirs(dir), WithEnvPrefix("RESTKIT_TEST_YAML")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://api.github.com/" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Transport.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Transport.Timeout)
	}
	if !cfg.defaulted || cfg.Transport.Name != "default" {
		t.Error("expected ApplyDefaults to run")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "base_url: https://file.example.com/\ntransport:\n  timeout: 5s\n")
	t.Setenv("RKTEST_BASE_URL", "https://env.example.com/")
	t.Setenv("RKTEST_TRANSPORT_TIMEOUT", "2s")

	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path), WithEnvPrefix("RKTEST"), WithSearchDirs(dir)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://env.example.com/" {
		t.Errorf("expected env to win, got %q", cfg.BaseURL)
	}
	if cfg.Transport.Timeout != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.Transport.Timeout)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.dotenvsvc", "DOTENVSVC_BASE_URL=https://dotenv.example.com/\n")
	t.Cleanup(func() { os.Unsetenv("DOTENVSVC_BASE_URL") })

	var cfg testConfig
	if err := LoadConfig("dotenvsvc", &cfg, WithSearchDirs(dir)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://dotenv.example.com/" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
}

func TestLoadConfig_ValidationError(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("missing", &cfg, WithSearchDirs(t.TempDir()), WithEnvPrefix("RESTKIT_NOPE"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yml", "base_url: [unterminated\n")
	var cfg testConfig
	if err := LoadConfig("bad", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected read error")
	}
}

type fakeFS struct {
	files  map[string]bool
	loaded []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }

func (f *fakeFS) LoadEnv(path string) error {
	f.loaded = append(f.loaded, path)
	return nil
}

func TestResolve(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{
		filepath.Join("config", "api.yaml"): true,
		filepath.Join(".", ".env"):          true,
		filepath.Join("config", ".env.api"): true,
	}}
	lc := LoaderConfig{FileSystem: fs, SearchDirs: []string{".", "config"}}
	got := lc.Resolve("api")
	if got.ConfigFile != filepath.Join("config", "api.yaml") {
		t.Errorf("unexpected config file %q", got.ConfigFile)
	}
	if got.EnvFile != filepath.Join("config", ".env.api") {
		t.Errorf("service env file should win, got %q", got.EnvFile)
	}

	lc.ConfigFile = "explicit.yml"
	if got := lc.Resolve("api"); got.ConfigFile != "explicit.yml" {
		t.Errorf("explicit path should win, got %q", got.ConfigFile)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("git-hub.v2"); got != "GIT_HUB_V2" {
		t.Errorf("got %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("TRANSPORT_RATE_LIMITER")
	for _, want := range []string{
		"transport_rate_limiter",
		"transport.rate.limiter",
		"transport.rate_limiter",
		"transport_rate.limiter",
	} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if got := envKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("unexpected single variants %v", got)
	}
}
