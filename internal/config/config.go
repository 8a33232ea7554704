package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/edufair/lead-scanner/internal/ticketid"
)

type Config struct {
	Generator GeneratorConfig `toml:"generator"`
	Form      FormConfig      `toml:"form"`
	Reports   ReportsConfig   `toml:"reports"`
}

type GeneratorConfig struct {
	Scheme string `toml:"scheme"`
}

type FormConfig struct {
	TicketField  string `toml:"ticket_field"`
	MirrorParams bool   `toml:"mirror_params"`
}

type ReportsConfig struct {
	Registrations   string   `toml:"registrations"`
	Scans           string   `toml:"scans"`
	OutputDir       string   `toml:"output_dir"`
	GroupColumn     string   `toml:"group_column"`
	IDColumns       []string `toml:"id_columns"`
	PriorityColumns []string `toml:"priority_columns"`
	ExcludeColumns  []string `toml:"exclude_columns"`
}

func Default() Config {
	return Config{
		Generator: GeneratorConfig{Scheme: ticketid.SchemeBase36.String()},
		Form: FormConfig{
			TicketField:  "ticket_id",
			MirrorParams: true,
		},
		Reports: ReportsConfig{
			Registrations: "registrations.csv",
			Scans:         "raw_scans.csv",
			OutputDir:     "reports",
			GroupColumn:   "Uni_ID",
			IDColumns:     []string{"ticket_id", "uuid", "ticketid", "id"},
			PriorityColumns: []string{
				"Name", "Last Name", "Email", "Phone",
				"Which programs?", "Intake Year", "Country",
				"Additional Info", "Consent (to receive communication)",
				"name", "email", "phone",
			},
			ExcludeColumns: []string{"UUID", "Uni_ID", "Timestamp", "uuid", "ticket_id"},
		},
	}
}

// Load reads path over the defaults, so a partial file only overrides the
// keys it sets. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if _, err := ticketid.ParseScheme(c.Generator.Scheme); err != nil {
		return err
	}
	if strings.TrimSpace(c.Form.TicketField) == "" {
		return errors.New("form.ticket_field must not be empty")
	}
	if strings.TrimSpace(c.Reports.GroupColumn) == "" {
		return errors.New("reports.group_column must not be empty")
	}
	if len(c.Reports.IDColumns) == 0 {
		return errors.New("reports.id_columns must list at least one column")
	}
	return nil
}

// Scheme returns the parsed generator scheme. Call Validate first.
func (c Config) Scheme() ticketid.Scheme {
	scheme, _ := ticketid.ParseScheme(c.Generator.Scheme)
	return scheme
}
