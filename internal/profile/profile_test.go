package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.txt")
	if err := os.WriteFile(path, []byte("  Go developer with 5 years of experience.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != "Go developer with 5 years of experience." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	if _, err := Load("profile.pdf"); err == nil {
		t.Fatal("expected error for pdf profile")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty profile")
	}
}

func TestNumbered(t *testing.T) {
	raw := "Summary of experience.\n\nWorked at Acme.\n   \n\nSkills: Go, AWS."
	want := "[Paragraph 1] Summary of experience.\n\n[Paragraph 2] Worked at Acme.\n\n[Paragraph 3] Skills: Go, AWS."
	if got := Numbered(raw); got != want {
		t.Fatalf("Numbered() = %q, want %q", got, want)
	}
}

func TestNumberedSkipsEmptyParagraphs(t *testing.T) {
	got := Numbered("\n\n\nOnly one paragraph here.\n\n\n")
	if got != "[Paragraph 1] Only one paragraph here." {
		t.Fatalf("unexpected result: %q", got)
	}
	if strings.Contains(got, "[Paragraph 2]") {
		t.Fatalf("empty paragraphs must not be numbered: %q", got)
	}
}
