package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugr-lab/optimade-go/internal/dataset"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateFilter(t *testing.T) {
	out, err := run(t, "validate-filter", `chemical_formula_descriptive = "SiO2" AND nelements < 3`, "--sql")
	if err != nil {
		t.Fatalf("validate-filter failed: %v", err)
	}
	for _, want := range []string{"grammar:   0.10.0/default", "ast:", "predicate:", "pretty_formula", "sql:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "predicate: chemical_formula_descriptive") {
		t.Errorf("Predicate should use the storage name, got:\n%s", out)
	}
}

func TestValidateFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"syntax", []string{"validate-filter", "nelements <"}},
		{"grammar", []string{"validate-filter", "nelements < 3", "--grammar", "9.9"}},
		{"endpoint", []string{"validate-filter", "nelements < 3", "--endpoint", "calculations"}},
		{"old grammar", []string{"validate-filter", "LENGTH elements > 2", "--grammar", "0.9.7"}},
		{"no filter", []string{"validate-filter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestConvert(t *testing.T) {
	out := filepath.Join(t.TempDir(), "structures.msgpack.zst")
	msg, err := run(t, "convert", "../../testdata/structures.json", out)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if !strings.Contains(msg, "wrote 5 documents") {
		t.Errorf("Unexpected output %q", msg)
	}

	docs, err := dataset.Load(out)
	if err != nil {
		t.Fatalf("Load converted dataset: %v", err)
	}
	if len(docs) != 5 || docs[0]["task_id"] != "mpf_1" {
		t.Errorf("Unexpected converted documents: %d, first %v", len(docs), docs[0]["task_id"])
	}
}

func TestConvertUnknownFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "structures.csv")
	if _, err := run(t, "convert", "../../testdata/structures.json", out); err == nil {
		t.Error("Expected error for unknown output format")
	}
}
