package app

import (
	"context"
	"fmt"
	"os"

	"github.com/edufair/lead-scanner/internal/config"
)

// Init writes the default configuration and creates the workspace layout.
// An existing config is kept unless force is set.
func (a *App) Init(ctx context.Context, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(a.ConfigPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", a.ConfigPath)
	}
	if err := a.paths().EnsureLayout(); err != nil {
		return err
	}
	if err := config.Save(a.ConfigPath, config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(a.Out, "Initialized %s\n", a.ConfigPath)
	return nil
}
