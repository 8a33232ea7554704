package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edufair/lead-scanner/internal/config"
	"github.com/edufair/lead-scanner/internal/paths"
	"github.com/edufair/lead-scanner/internal/ticketid"
)

type App struct {
	Root       string
	ConfigPath string
	Out        io.Writer
	Err        io.Writer
	Logger     *slog.Logger
	Now        func() time.Time
	// Source overrides crypto/rand for ticket generation.
	Source io.Reader
}

func New(root string, out, errOut io.Writer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		Root:       root,
		ConfigPath: paths.New(root).ConfigPath,
		Out:        out,
		Err:        errOut,
		Logger:     logger,
		Now:        time.Now,
	}
}

func (a *App) paths() paths.Paths {
	return paths.New(a.Root)
}

func (a *App) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// generator builds a ticket generator. Nil source and now fall back to the
// App's Source and Now.
func (a *App) generator(scheme ticketid.Scheme, source io.Reader, now func() time.Time) *ticketid.Generator {
	if now == nil {
		now = a.Now
	}
	opts := []ticketid.Option{ticketid.WithScheme(scheme), ticketid.WithClock(now)}
	if source == nil {
		source = a.Source
	}
	if source != nil {
		opts = append(opts, ticketid.WithSource(source))
	}
	return ticketid.New(opts...)
}
