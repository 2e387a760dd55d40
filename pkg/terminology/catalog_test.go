package terminology

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLabFlags(t *testing.T) {
	cat := DefaultCatalog()

	concept, ok := cat.Lookup("29463-7")
	if !ok {
		t.Fatalf("expected weight code in default catalog")
	}
	if concept.Type != "weight" || concept.Lab {
		t.Fatalf("unexpected weight concept: %+v", concept)
	}

	if !cat.IsLabCode("4548-4") {
		t.Fatalf("a1c should be a lab code")
	}
	if cat.IsLabCode("8867-4") {
		t.Fatalf("heart rate should not be a lab code")
	}
	if cat.IsLabCode("0000-0") {
		t.Fatalf("unknown code should not be a lab code")
	}
}

func TestLookupTrimsWhitespace(t *testing.T) {
	cat := DefaultCatalog()
	if _, ok := cat.Lookup(" 2339-0 "); !ok {
		t.Fatalf("expected padded code to resolve")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `concepts:
  "1234-5":
    display: Custom Panel
    type: custom-panel
    unit: mg/dL
    lab: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cat.IsLabCode("1234-5") {
		t.Fatalf("custom code should be a lab code")
	}
	if _, ok := cat.Lookup("29463-7"); ok {
		t.Fatalf("file catalog should replace the default, not extend it")
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cat.Lookup("29463-7"); !ok {
		t.Fatalf("default catalog expected")
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("concepts: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
}
