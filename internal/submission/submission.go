package submission

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Submission is one posted form as seen by the pipeline. Fields holds the
// posted data, Params the raw request parameters some downstream
// connectors read instead.
type Submission struct {
	Key    uuid.UUID
	Form   string
	Fields map[string]string
	Params map[string]string
}

type document struct {
	Key    string            `yaml:"key,omitempty"`
	Form   string            `yaml:"form,omitempty"`
	Fields map[string]string `yaml:"fields"`
	Params map[string]string `yaml:"params,omitempty"`
}

func New(form string, fields map[string]string) *Submission {
	return &Submission{
		Key:    uuid.New(),
		Form:   form,
		Fields: copyMap(fields),
		Params: make(map[string]string),
	}
}

// Field reports the value of name and whether the form declares it at all.
func (s *Submission) Field(name string) (string, bool) {
	value, ok := s.Fields[name]
	return value, ok
}

func (s *Submission) SetField(name, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[name] = value
}

func (s *Submission) SetParam(name, value string) {
	if s.Params == nil {
		s.Params = make(map[string]string)
	}
	s.Params[name] = value
}

// FieldNames returns the declared field names in sorted order.
func (s *Submission) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ParseFile(path string) (*Submission, error) {
	data, err := osReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML submission. A document without a key gets a fresh
// one so every submission can be correlated in logs.
func Parse(data []byte) (*Submission, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	sub := &Submission{
		Form:   doc.Form,
		Fields: doc.Fields,
		Params: doc.Params,
	}
	if sub.Fields == nil {
		sub.Fields = make(map[string]string)
	}
	if sub.Params == nil {
		sub.Params = make(map[string]string)
	}
	key := strings.TrimSpace(doc.Key)
	if key == "" {
		sub.Key = uuid.New()
		return sub, nil
	}
	parsed, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("invalid submission key %q: %w", key, err)
	}
	sub.Key = parsed
	return sub, nil
}

func Render(sub *Submission) (string, error) {
	doc := document{
		Form:   sub.Form,
		Fields: sub.Fields,
	}
	if sub.Key != uuid.Nil {
		doc.Key = sub.Key.String()
	}
	if len(sub.Params) > 0 {
		doc.Params = sub.Params
	}
	if doc.Fields == nil {
		doc.Fields = map[string]string{}
	}
	payload, err := yaml.Marshal(&doc)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func WriteFile(path string, sub *Submission) error {
	content, err := Render(sub)
	if err != nil {
		return err
	}
	return osWriteFile(path, []byte(content), 0o644)
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// osReadFile and osWriteFile are swapped out in tests.
var osReadFile = func(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var osWriteFile = func(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}
