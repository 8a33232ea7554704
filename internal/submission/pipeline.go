package submission

import (
	"fmt"
	"log/slog"
)

const DefaultTicketField = "ticket_id"

// Generator is the ticket ID source the pipeline calls into.
// *ticketid.Generator satisfies it.
type Generator interface {
	Generate() (string, error)
}

// Pipeline assigns ticket IDs at the two points of the form lifecycle where
// the host hands it a submission: right after the posted data is collected,
// and once more just before notification mail goes out.
type Pipeline struct {
	Generator Generator
	// TicketField names the form field that carries the ticket ID. Forms
	// that do not declare it are left alone.
	TicketField string
	// MirrorParams also writes IDs assigned by BeforeSendMail into the raw
	// request parameters.
	MirrorParams bool
	Logger       *slog.Logger
}

func NewPipeline(gen Generator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Generator:    gen,
		TicketField:  DefaultTicketField,
		MirrorParams: true,
		Logger:       logger,
	}
}

// FilterPostedData assigns a fresh ticket ID whenever the posted data
// declares the ticket field, replacing any client supplied value. The
// returned map is a copy; fields is not modified. On error the copy still
// carries the original value.
func (p *Pipeline) FilterPostedData(fields map[string]string) (map[string]string, error) {
	out := copyMap(fields)
	field := p.field()
	if _, ok := out[field]; !ok {
		return out, nil
	}
	id, err := p.Generator.Generate()
	if err != nil {
		p.logger().Warn("ticket id generation failed", "stage", "posted_data", "error", err)
		return out, fmt.Errorf("generate ticket id: %w", err)
	}
	out[field] = id
	p.logger().Debug("ticket id assigned", "stage", "posted_data", "ticket_id", id)
	return out, nil
}

// BeforeSendMail fills the ticket field when it is declared but still
// empty, for hosts where the posted data filter did not reach the storage
// connector.
func (p *Pipeline) BeforeSendMail(sub *Submission) error {
	if sub == nil {
		return nil
	}
	field := p.field()
	value, ok := sub.Field(field)
	if !ok || value != "" {
		return nil
	}
	log := p.logger().With("submission", sub.Key.String(), "stage", "before_send_mail")
	id, err := p.Generator.Generate()
	if err != nil {
		log.Warn("ticket id generation failed", "error", err)
		return fmt.Errorf("generate ticket id for submission %s: %w", sub.Key, err)
	}
	sub.SetField(field, id)
	if p.MirrorParams {
		sub.SetParam(field, id)
	}
	log.Debug("ticket id assigned", "ticket_id", id, "mirrored", p.MirrorParams)
	return nil
}

// Process runs both stages in lifecycle order.
func (p *Pipeline) Process(sub *Submission) error {
	if sub == nil {
		return nil
	}
	fields, err := p.FilterPostedData(sub.Fields)
	if err != nil {
		return fmt.Errorf("submission %s: %w", sub.Key, err)
	}
	sub.Fields = fields
	return p.BeforeSendMail(sub)
}

func (p *Pipeline) field() string {
	if p.TicketField == "" {
		return DefaultTicketField
	}
	return p.TicketField
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
