package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"

	"github.com/edufair/lead-scanner/internal/app"
)

type globalOptions struct {
	Config  string `short:"c" long:"config" description:"Path to leadscan.toml (default: ./leadscan.toml)"`
	Root    string `short:"C" long:"root" description:"Workspace directory" default:"."`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

type cli struct {
	opts globalOptions
	ctx  context.Context
}

func (c *cli) app() *app.App {
	level := slog.LevelInfo
	if c.opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	a := app.New(c.opts.Root, os.Stdout, os.Stderr, logger)
	if c.opts.Config != "" {
		a.ConfigPath = c.opts.Config
	}
	return a
}

type generateCommand struct {
	cli    *cli
	Count  int     `short:"n" long:"count" description:"Number of ticket IDs to print" default:"1"`
	Scheme string  `long:"scheme" description:"ID scheme, overrides the config" choice:"base36" choice:"hex"`
	Seed   *uint64 `long:"seed" description:"Deterministic seed (testing only)"`
}

func (cmd *generateCommand) Execute(args []string) error {
	return cmd.cli.app().Generate(cmd.cli.ctx, app.GenerateOptions{
		Count:  cmd.Count,
		Scheme: cmd.Scheme,
		Seed:   cmd.Seed,
	})
}

type submitCommand struct {
	cli   *cli
	Write bool `short:"w" long:"write" description:"Write the result back to FILE"`
	Args  struct {
		File string `positional-arg-name:"FILE" description:"YAML submission"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *submitCommand) Execute(args []string) error {
	return cmd.cli.app().Submit(cmd.cli.ctx, app.SubmitOptions{Write: cmd.Write}, cmd.Args.File)
}

type reportCommand struct {
	cli           *cli
	Registrations string `short:"r" long:"registrations" description:"Registration export CSV"`
	Scans         string `short:"s" long:"scans" description:"Scan export CSV"`
	Out           string `short:"o" long:"out" description:"Report output directory"`
}

func (cmd *reportCommand) Execute(args []string) error {
	return cmd.cli.app().Report(cmd.cli.ctx, app.ReportOptions{
		Registrations: cmd.Registrations,
		Scans:         cmd.Scans,
		OutDir:        cmd.Out,
	})
}

type initCommand struct {
	cli   *cli
	Force bool `short:"f" long:"force" description:"Overwrite an existing config"`
}

func (cmd *initCommand) Execute(args []string) error {
	return cmd.cli.app().Init(cmd.cli.ctx, cmd.Force)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{ctx: ctx}
	parser := flags.NewParser(&c.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "EduFair lead scanner"
	parser.LongDescription = "Generates visitor ticket IDs for form submissions and turns fair scans into per-university lead lists."

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"generate", "Print new ticket IDs", "Print one or more ticket IDs using the configured scheme.", &generateCommand{cli: c}},
		{"submit", "Assign a ticket ID to a submission", "Run a YAML submission through the posted-data filter and the before-mail fallback.", &submitCommand{cli: c}},
		{"report", "Write per-university lead reports", "Join the registration export with scan exports and write one CSV per university.", &reportCommand{cli: c}},
		{"init", "Write a default config", "Create leadscan.toml and the workspace directories.", &initCommand{cli: c}},
	}
	for _, command := range commands {
		if _, err := parser.AddCommand(command.name, command.short, command.long, command.data); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
