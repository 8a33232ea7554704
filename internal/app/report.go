package app

import (
	"context"
	"fmt"

	"github.com/edufair/lead-scanner/internal/leads"
	"github.com/edufair/lead-scanner/internal/lock"
)

type ReportOptions struct {
	Registrations string
	Scans         string
	OutDir        string
}

// Report joins the registration and scan exports and writes one lead list
// per group. The output directory is locked for the duration of the run.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	p := a.paths()
	regPath := p.Resolve(firstNonEmpty(opts.Registrations, cfg.Reports.Registrations))
	scanPath := p.Resolve(firstNonEmpty(opts.Scans, cfg.Reports.Scans))
	p = p.WithReportsDir(firstNonEmpty(opts.OutDir, cfg.Reports.OutputDir))

	regs, err := leads.Load(regPath)
	if err != nil {
		return fmt.Errorf("load registrations: %w", err)
	}
	scans, err := leads.Load(scanPath)
	if err != nil {
		return fmt.Errorf("load scans: %w", err)
	}
	a.Logger.Info("exports loaded", "registrations", regs.Len(), "scans", scans.Len())

	idColumn, err := leads.Clean(regs, scans, cfg.Reports.IDColumns)
	if err != nil {
		return err
	}
	a.Logger.Debug("data cleaned", "id_column", idColumn)

	merged, err := leads.Merge(regs, scans)
	if err != nil {
		return err
	}
	if merged.Unmatched > 0 {
		a.Logger.Warn("scans without registration", "count", merged.Unmatched)
	}

	lck, err := lock.Acquire(ctx, p.ReportsDir, "report", lock.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("lock %s: %w", p.ReportsDir, err)
	}
	defer lck.Release()

	summaries, err := leads.WriteReports(merged.Table, leads.ReportOptions{
		Paths:           p,
		GroupColumn:     cfg.Reports.GroupColumn,
		PriorityColumns: cfg.Reports.PriorityColumns,
		ExcludeColumns:  cfg.Reports.ExcludeColumns,
		Logger:          a.Logger,
	})
	if err != nil {
		return err
	}

	total := 0
	for _, s := range summaries {
		fmt.Fprintf(a.Out, "%s: %d leads -> %s\n", s.Group, s.Leads, s.Path)
		total += s.Leads
	}
	fmt.Fprintf(a.Out, "%d reports, %d leads, %d unmatched scans\n", len(summaries), total, merged.Unmatched)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
