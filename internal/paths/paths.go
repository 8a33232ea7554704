package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	ConfigFileName     = "leadscan.toml"
	ReportsDirName     = "reports"
	SubmissionsDirName = "submissions"
	ReportPrefix       = "leads_"
	ReportExt          = ".csv"
)

type Paths struct {
	Root           string
	ConfigPath     string
	ReportsDir     string
	SubmissionsDir string
}

func New(root string) Paths {
	return Paths{
		Root:           root,
		ConfigPath:     filepath.Join(root, ConfigFileName),
		ReportsDir:     filepath.Join(root, ReportsDirName),
		SubmissionsDir: filepath.Join(root, SubmissionsDirName),
	}
}

// WithReportsDir overrides the report directory. Relative paths resolve
// against Root.
func (p Paths) WithReportsDir(dir string) Paths {
	if dir == "" {
		return p
	}
	p.ReportsDir = p.Resolve(dir)
	return p
}

// Resolve makes path absolute relative to Root.
func (p Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

func (p Paths) EnsureLayout() error {
	for _, dir := range []string{p.ReportsDir, p.SubmissionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ReportPath returns the CSV path for one group, e.g. "MIT Boston" becomes
// reports/leads_MIT_Boston.csv.
func (p Paths) ReportPath(group string) string {
	return filepath.Join(p.ReportsDir, ReportFileName(group))
}

func ReportFileName(group string) string {
	clean := strings.TrimSpace(group)
	clean = strings.ReplaceAll(clean, " ", "_")
	clean = strings.ReplaceAll(clean, "/", "-")
	return ReportPrefix + clean + ReportExt
}
