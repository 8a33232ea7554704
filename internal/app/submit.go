package app

import (
	"context"
	"fmt"

	"github.com/edufair/lead-scanner/internal/submission"
)

type SubmitOptions struct {
	// Write stores the processed submission back into its file instead of
	// printing it.
	Write bool
}

// Submit runs a submission file through the ticket pipeline, the same way
// the form host would on a live post.
func (a *App) Submit(ctx context.Context, opts SubmitOptions, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	sub, err := submission.ParseFile(path)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", path, err)
	}

	pipeline := submission.NewPipeline(a.generator(cfg.Scheme(), nil, nil), a.Logger)
	pipeline.TicketField = cfg.Form.TicketField
	pipeline.MirrorParams = cfg.Form.MirrorParams

	if _, declared := sub.Field(cfg.Form.TicketField); !declared {
		a.Logger.Info("form has no ticket field, nothing to do", "field", cfg.Form.TicketField, "submission", sub.Key.String())
	}
	if err := pipeline.Process(sub); err != nil {
		return err
	}

	if opts.Write {
		if err := submission.WriteFile(path, sub); err != nil {
			return fmt.Errorf("write submission %s: %w", path, err)
		}
		id, _ := sub.Field(cfg.Form.TicketField)
		fmt.Fprintf(a.Out, "%s %s\n", path, id)
		return nil
	}
	rendered, err := submission.Render(sub)
	if err != nil {
		return err
	}
	fmt.Fprint(a.Out, rendered)
	return nil
}
