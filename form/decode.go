package form

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed event.schema.json
var eventSchema []byte

const (
	eventSchemaURL = "formrelay://schema/event"
	formSchemaURL  = eventSchemaURL + "#/$defs/form"
)

// Validator checks the envelope shape of inbound events against the
// embedded JSON Schema. Answer content is never inspected.
type Validator struct {
	once  sync.Once
	event *jsonschema.Schema
	form  *jsonschema.Schema
	err   error
}

// NewValidator creates a validator. Schemas are compiled on first use.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) compile() {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(eventSchema))
	if err != nil {
		v.err = fmt.Errorf("unmarshal event schema: %w", err)
		return
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(eventSchemaURL, doc); err != nil {
		v.err = fmt.Errorf("add event schema resource: %w", err)
		return
	}
	if v.event, err = c.Compile(eventSchemaURL); err != nil {
		v.err = fmt.Errorf("compile event schema: %w", err)
		return
	}
	if v.form, err = c.Compile(formSchemaURL); err != nil {
		v.err = fmt.Errorf("compile form schema: %w", err)
	}
}

func (v *Validator) validate(sch func() *jsonschema.Schema, data []byte) error {
	v.once.Do(v.compile)
	if v.err != nil {
		return v.err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := sch().Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}

// wireEvent is the JSON envelope posted by the forms platform.
type wireEvent struct {
	Form     Form `json:"form"`
	Response struct {
		ID              string       `json:"id"`
		RespondentEmail *string      `json:"respondent_email"`
		SubmittedAt     *string      `json:"submitted_at"`
		Answers         []wireAnswer `json:"answers"`
	} `json:"response"`
}

// Decode validates and decodes one submission event.
func (v *Validator) Decode(data []byte) (*Submission, error) {
	if err := v.validate(func() *jsonschema.Schema { return v.event }, data); err != nil {
		return nil, err
	}

	var evt wireEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	answers := make([]*Answer, 0, len(evt.Response.Answers))
	for _, wa := range evt.Response.Answers {
		a, err := wa.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: item %s: %v", ErrInvalidEvent, wa.ItemID, err)
		}
		if a != nil {
			answers = append(answers, a)
		}
	}

	var email string
	if evt.Response.RespondentEmail != nil {
		email = *evt.Response.RespondentEmail
	}

	sub := NewSubmission(evt.Form, email, answers...)
	sub.ResponseID = evt.Response.ID
	sub.SubmittedAt = parseSubmittedAt(evt.Response.SubmittedAt)
	return sub, nil
}

// parseSubmittedAt accepts any common timestamp layout. Zone-less values
// are read as UTC. Unparseable values are dropped; the timestamp is
// informational and never rejects an event.
func parseSubmittedAt(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := dateparse.ParseIn(*s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// DecodeForm validates and decodes a bare form definition.
func (v *Validator) DecodeForm(data []byte) (*Form, error) {
	if err := v.validate(func() *jsonschema.Schema { return v.form }, data); err != nil {
		return nil, err
	}

	var f Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &f, nil
}

// decode returns nil for a null or missing response.
func (wa wireAnswer) decode() (*Answer, error) {
	raw := bytes.TrimSpace(wa.Response)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil //nolint:nilnil // unanswered
	}

	if raw[0] == '[' {
		choices, err := flattenChoices(raw)
		if err != nil {
			return nil, err
		}
		return ChoiceAnswer(wa.ItemID, choices...), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, err
	}
	return TextAnswer(wa.ItemID, text), nil
}

// flattenChoices decodes a list answer. Grid questions send one row of
// choices per element; rows are concatenated in order.
func flattenChoices(raw []byte) ([]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}

	choices := make([]string, 0, len(elems))
	for _, el := range elems {
		el = bytes.TrimSpace(el)
		if len(el) > 0 && el[0] == '[' {
			var row []string
			if err := json.Unmarshal(el, &row); err != nil {
				return nil, err
			}
			choices = append(choices, row...)
			continue
		}
		var c string
		if err := json.Unmarshal(el, &c); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, nil
}

var defaultValidator = NewValidator()

// Decode validates and decodes one submission event with the package
// validator.
func Decode(data []byte) (*Submission, error) {
	return defaultValidator.Decode(data)
}

// DecodeForm validates and decodes a form definition with the package
// validator.
func DecodeForm(data []byte) (*Form, error) {
	return defaultValidator.DecodeForm(data)
}
