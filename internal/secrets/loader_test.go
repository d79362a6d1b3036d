package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadInlineValue(t *testing.T) {
	got, err := Load(Source{Name: "api key", Value: "  token-123  "})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != "token-123" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestLoadFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(Source{Name: "api key", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}

func TestLoadEnvFileOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("from-env-file"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOBSIEVE_TEST_KEY_FILE", path)

	got, err := Load(Source{Name: "api key", File: "/nonexistent", EnvFile: "JOBSIEVE_TEST_KEY_FILE"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != "from-env-file" {
		t.Fatalf("expected env file value, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil {
		t.Fatal("expected error for unconfigured secret")
	}

	if _, err := Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(Source{Name: "api key", File: empty}); err == nil {
		t.Fatal("expected error for empty file")
	}
}
