// Package leads joins QR scans collected at the fair with the registration
// export and splits the result into one lead list per university.
package leads

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/edufair/lead-scanner/internal/paths"
	"github.com/edufair/lead-scanner/internal/ticketid"
)

// IDColumn is the join key both tables carry after Clean.
const IDColumn = "UUID"

var ErrMissingColumn = errors.New("missing column")

// ErrReportCollision is returned when two groups clean to the same report
// file name, e.g. "A B" and "A_B".
var ErrReportCollision = errors.New("report file name collision")

// Clean prepares both exports for Merge. It trims header names, renames the
// first registration column matching idColumns (case-insensitive) to
// IDColumn, normalizes ticket IDs in both tables and strips U+FFFD left by
// broken encodings. It returns the registration column that was renamed.
func Clean(regs, scans *Table, idColumns []string) (string, error) {
	trimHeader(regs)
	trimHeader(scans)

	found := -1
	for i, col := range regs.Header {
		if matchesAny(col, idColumns) {
			found = i
			break
		}
	}
	if found < 0 {
		return "", fmt.Errorf("%w: no ticket id column in registrations (available: %s)", ErrMissingColumn, strings.Join(regs.Header, ", "))
	}
	original := regs.Header[found]
	regs.Header[found] = IDColumn

	scanID := scans.Index(IDColumn)
	if scanID < 0 {
		return "", fmt.Errorf("%w: %s not found in scans (available: %s)", ErrMissingColumn, IDColumn, strings.Join(scans.Header, ", "))
	}

	stripReplacement(regs)
	stripReplacement(scans)
	for _, row := range regs.Rows {
		row[found] = ticketid.Normalize(row[found])
	}
	for _, row := range scans.Rows {
		row[scanID] = ticketid.Normalize(row[scanID])
	}
	return original, nil
}

// Merged is the left join of scans onto registrations.
type Merged struct {
	*Table
	// Unmatched counts scans whose ticket ID has no registration.
	Unmatched int
}

// Merge keeps every scan and appends the columns of each registration with
// the same ticket ID. A scan matching several registrations yields one row
// per match. Column names present in both tables get _x (scan) and _y
// (registration) suffixes.
func Merge(regs, scans *Table) (*Merged, error) {
	regID := regs.Index(IDColumn)
	scanID := scans.Index(IDColumn)
	if regID < 0 || scanID < 0 {
		return nil, fmt.Errorf("%w: %s must exist in both tables", ErrMissingColumn, IDColumn)
	}

	regCols := make(map[string]struct{}, len(regs.Header))
	for _, col := range regs.Header {
		regCols[col] = struct{}{}
	}
	scanCols := make(map[string]struct{}, len(scans.Header))
	for _, col := range scans.Header {
		scanCols[col] = struct{}{}
	}

	header := make([]string, 0, len(scans.Header)+len(regs.Header)-1)
	for _, col := range scans.Header {
		if _, dup := regCols[col]; dup && col != IDColumn {
			col += "_x"
		}
		header = append(header, col)
	}
	for i, col := range regs.Header {
		if i == regID {
			continue
		}
		if _, dup := scanCols[col]; dup {
			col += "_y"
		}
		header = append(header, col)
	}

	byID := make(map[string][][]string)
	for _, row := range regs.Rows {
		byID[row[regID]] = append(byID[row[regID]], row)
	}

	merged := &Merged{Table: &Table{Header: header}}
	for _, scan := range scans.Rows {
		matches := byID[scan[scanID]]
		if len(matches) == 0 {
			merged.Unmatched++
			merged.Rows = append(merged.Rows, pad(scan, len(header)))
			continue
		}
		for _, reg := range matches {
			row := make([]string, 0, len(header))
			row = append(row, scan...)
			for i, value := range reg {
				if i == regID {
					continue
				}
				row = append(row, value)
			}
			merged.Rows = append(merged.Rows, row)
		}
	}
	return merged, nil
}

type ReportOptions struct {
	Paths           paths.Paths
	GroupColumn     string
	PriorityColumns []string
	ExcludeColumns  []string
	Logger          *slog.Logger
}

type ReportSummary struct {
	Group string
	Path  string
	Leads int
}

// ExportColumns picks the columns written to every report: the priority
// columns the table has, or else every column not excluded.
func ExportColumns(t *Table, priority, exclude []string) []string {
	var columns []string
	for _, col := range priority {
		if t.Has(col) {
			columns = append(columns, col)
		}
	}
	if len(columns) > 0 {
		return columns
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, col := range exclude {
		excluded[col] = struct{}{}
	}
	for _, col := range t.Header {
		if _, skip := excluded[col]; !skip {
			columns = append(columns, col)
		}
	}
	return columns
}

// WriteReports writes one CSV per distinct non-empty value of the group
// column, sorted by group. Rows repeated within a group (the same visitor
// scanned twice at one stand) are written once.
func WriteReports(t *Table, opts ReportOptions) ([]ReportSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	groupIdx := t.Index(opts.GroupColumn)
	if groupIdx < 0 {
		return nil, fmt.Errorf("%w: %q not found in merged data", ErrMissingColumn, opts.GroupColumn)
	}
	if err := os.MkdirAll(opts.Paths.ReportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	groups := make(map[string]*Table)
	for _, row := range t.Rows {
		group := strings.TrimSpace(row[groupIdx])
		if group == "" {
			continue
		}
		g, ok := groups[group]
		if !ok {
			g = &Table{Header: t.Header}
			groups[group] = g
		}
		g.Rows = append(g.Rows, row)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	// Check every target up front so a collision leaves no partial output.
	targets := make(map[string]string, len(names))
	for _, name := range names {
		path := opts.Paths.ReportPath(name)
		if other, taken := targets[path]; taken {
			return nil, fmt.Errorf("%w: groups %q and %q both map to %s", ErrReportCollision, other, name, path)
		}
		targets[path] = name
	}

	columns := ExportColumns(t, opts.PriorityColumns, opts.ExcludeColumns)
	logger.Debug("exporting columns", "columns", columns, "groups", len(names))

	summaries := make([]ReportSummary, 0, len(names))
	for _, name := range names {
		projected, err := groups[name].Select(columns)
		if err != nil {
			return summaries, err
		}
		report := projected.Distinct()
		path := opts.Paths.ReportPath(name)
		if err := report.WriteFile(path); err != nil {
			return summaries, fmt.Errorf("write report for %s: %w", name, err)
		}
		logger.Info("report written", "group", name, "leads", report.Len(), "path", path)
		summaries = append(summaries, ReportSummary{Group: name, Path: path, Leads: report.Len()})
	}
	return summaries, nil
}

func trimHeader(t *Table) {
	for i, col := range t.Header {
		t.Header[i] = strings.TrimSpace(col)
	}
}

func stripReplacement(t *Table) {
	for _, row := range t.Rows {
		for i, value := range row {
			if strings.ContainsRune(value, '\ufffd') {
				row[i] = strings.ReplaceAll(value, "\ufffd", "")
			}
		}
	}
}

func matchesAny(col string, candidates []string) bool {
	for _, candidate := range candidates {
		if strings.EqualFold(col, candidate) {
			return true
		}
	}
	return false
}
