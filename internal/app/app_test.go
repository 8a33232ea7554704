package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edufair/lead-scanner/internal/config"
	"github.com/edufair/lead-scanner/internal/lock"
	"github.com/edufair/lead-scanner/internal/submission"
	"github.com/edufair/lead-scanner/internal/ticketid"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := New(t.TempDir(), &out, &errOut, nil)
	a.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return a, &out
}

func TestGenerateCount(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.Generate(context.Background(), GenerateOptions{Count: 5}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	lines := strings.Fields(out.String())
	if len(lines) != 5 {
		t.Fatalf("expected 5 ids, got %d: %q", len(lines), out.String())
	}
	for _, id := range lines {
		if !ticketid.Valid(id, ticketid.SchemeBase36) {
			t.Fatalf("invalid id %q", id)
		}
	}
}

func TestGenerateSeededIsReproducible(t *testing.T) {
	seed := uint64(2026)
	a, first := newTestApp(t)
	if err := a.Generate(context.Background(), GenerateOptions{Count: 3, Scheme: "hex", Seed: &seed}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, second := newTestApp(t)
	if err := b.Generate(context.Background(), GenerateOptions{Count: 3, Scheme: "hex", Seed: &seed}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("expected identical output:\n%s\n%s", first, second)
	}
	for _, id := range strings.Fields(first.String()) {
		if !ticketid.Valid(id, ticketid.SchemeHex) {
			t.Fatalf("invalid hex id %q", id)
		}
	}
}

func TestGenerateSeededIgnoresWallClock(t *testing.T) {
	seed := uint64(7)
	run := func() string {
		var out bytes.Buffer
		a := New(t.TempDir(), &out, io.Discard, nil)
		if err := a.Generate(context.Background(), GenerateOptions{Count: 2, Scheme: "hex", Seed: &seed}); err != nil {
			t.Fatalf("generate: %v", err)
		}
		return out.String()
	}

	first := run()
	time.Sleep(2 * time.Millisecond)
	second := run()
	if first != second {
		t.Fatalf("expected seeded hex output to be stable across runs:\n%s\n%s", first, second)
	}
}

func TestGenerateUsesConfiguredScheme(t *testing.T) {
	a, out := newTestApp(t)
	cfg := config.Default()
	cfg.Generator.Scheme = "hex"
	if err := config.Save(a.ConfigPath, cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	if err := a.Generate(context.Background(), GenerateOptions{Count: 20}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, id := range strings.Fields(out.String()) {
		if !ticketid.Valid(id, ticketid.SchemeHex) {
			t.Fatalf("expected hex id, got %q", id)
		}
	}
}

func TestGenerateRandomnessUnavailable(t *testing.T) {
	a, _ := newTestApp(t)
	a.Source = bytes.NewReader(nil)
	err := a.Generate(context.Background(), GenerateOptions{Count: 2})
	if !errors.Is(err, ticketid.ErrRandomnessUnavailable) {
		t.Fatalf("expected ErrRandomnessUnavailable, got %v", err)
	}
}

func TestSubmitWrite(t *testing.T) {
	a, out := newTestApp(t)
	a.Source = ticketid.NewSeededSource(9)
	path := filepath.Join(a.Root, "sub.yaml")
	content := "form: registration\nfields:\n  name: Ada\n  ticket_id: \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := a.Submit(context.Background(), SubmitOptions{Write: true}, path); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sub, err := submission.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, _ := sub.Field("ticket_id")
	if !ticketid.Valid(id, ticketid.SchemeBase36) {
		t.Fatalf("expected ticket id to be written, got %q", id)
	}
	if !strings.Contains(out.String(), id) {
		t.Fatalf("expected id in output, got %q", out.String())
	}
}

func TestSubmitPrintsFormWithoutTicketField(t *testing.T) {
	a, out := newTestApp(t)
	path := filepath.Join(a.Root, "sub.yaml")
	if err := os.WriteFile(path, []byte("fields:\n  name: Ada\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Submit(context.Background(), SubmitOptions{}, path); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if strings.Contains(out.String(), "ticket_id") {
		t.Fatalf("ticket field should not be added:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "name: Ada") {
		t.Fatalf("expected rendered submission:\n%s", out.String())
	}
}

func writeExports(t *testing.T, root string) {
	t.Helper()
	regs := "Name,Email,ticket_id\nAda,ada@example.com,A1B2C3D4\nGrace,grace@example.com,QWERTY12\n"
	scans := "Timestamp,UUID,Uni_ID\n1,a1b2c3d4,HARVARD\n2,QWERTY12,YALE\n3,MISSING0,YALE\n"
	if err := os.WriteFile(filepath.Join(root, "registrations.csv"), []byte(regs), 0o644); err != nil {
		t.Fatalf("write registrations: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "raw_scans.csv"), []byte(scans), 0o644); err != nil {
		t.Fatalf("write scans: %v", err)
	}
}

func TestReport(t *testing.T) {
	a, out := newTestApp(t)
	writeExports(t, a.Root)

	if err := a.Report(context.Background(), ReportOptions{}); err != nil {
		t.Fatalf("report: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(a.Root, "reports", "leads_YALE.csv"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "Name,Email\nGrace,grace@example.com\n") {
		t.Fatalf("unexpected report:\n%s", data)
	}
	if !strings.Contains(out.String(), "2 reports, 3 leads, 1 unmatched scans") {
		t.Fatalf("unexpected summary: %q", out.String())
	}
	if _, err := lock.ReadHolder(filepath.Join(a.Root, "reports")); !os.IsNotExist(err) {
		t.Fatalf("lock should be released, got %v", err)
	}
}

func TestReportOutputLocked(t *testing.T) {
	a, _ := newTestApp(t)
	writeExports(t, a.Root)
	out := filepath.Join(a.Root, "busy")

	held, err := lock.Acquire(context.Background(), out, "other run", lock.DefaultTimeout)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = a.Report(ctx, ReportOptions{OutDir: "busy"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while locked, got %v", err)
	}
}

func TestInit(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.Init(context.Background(), false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := config.Load(a.ConfigPath); err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if err := a.Init(context.Background(), false); err == nil {
		t.Fatalf("expected second init to refuse overwriting")
	}
	if err := a.Init(context.Background(), true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}
