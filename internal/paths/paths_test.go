package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReportFileName(t *testing.T) {
	tests := []struct {
		group string
		want  string
	}{
		{"HARVARD", "leads_HARVARD.csv"},
		{" MIT Boston ", "leads_MIT_Boston.csv"},
		{"UC Berkeley/Davis", "leads_UC_Berkeley-Davis.csv"},
	}

	for _, tt := range tests {
		if got := ReportFileName(tt.group); got != tt.want {
			t.Errorf("ReportFileName(%q) = %q, want %q", tt.group, got, tt.want)
		}
	}
}

func TestLayout(t *testing.T) {
	root := t.TempDir()
	p := New(root).WithReportsDir("out")
	if p.ReportsDir != filepath.Join(root, "out") {
		t.Fatalf("unexpected reports dir: %q", p.ReportsDir)
	}
	if got := p.ReportPath("YALE"); got != filepath.Join(root, "out", "leads_YALE.csv") {
		t.Fatalf("unexpected report path: %q", got)
	}
	if err := p.EnsureLayout(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	for _, dir := range []string{p.ReportsDir, p.SubmissionsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}

	abs := filepath.Join(t.TempDir(), "elsewhere")
	if got := New(root).WithReportsDir(abs).ReportsDir; got != abs {
		t.Fatalf("absolute dir should be kept, got %q", got)
	}
}
