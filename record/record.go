// Package record builds the flat key/value record relayed for each form
// submission.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xraph/formrelay/form"
)

// Record is the ordered field name → value mapping built from one
// submission. Values are nil, string, []string or bool. A Record is
// immutable once built.
type Record struct {
	keys   []string
	values map[string]any
}

// Build resolves every field of m against sub, in declared order.
// Resolution errors (form.ErrQuestionNotFound) abort the build.
func Build(sub *form.Submission, m Mapping) (*Record, error) {
	r := &Record{
		keys:   make([]string, 0, len(m)),
		values: make(map[string]any, len(m)),
	}

	for _, f := range m {
		var v any

		switch f.kind() {
		case KindRespondentEmail:
			if sub.RespondentEmail != "" {
				v = sub.RespondentEmail
			}
		case KindEnabled:
			a, err := sub.Answer(f.QuestionID)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			v = a != nil && strings.HasPrefix(strings.ToLower(a.String()), "yes")
		default:
			a, err := sub.Answer(f.QuestionID)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if a != nil {
				v = a.Value()
			}
		}

		r.keys = append(r.keys, f.Name)
		r.values[f.Name] = v
	}

	return r, nil
}

// Keys returns the field names in serialization order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value of a field and whether the field exists.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// JSON returns the compact JSON object in field order. HTML characters are
// not escaped, so the bytes match what a browser JSON.stringify produces.
func (r *Record) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(r.values[k]); err != nil {
			return nil, fmt.Errorf("encode field %s: %w", k, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Pretty returns the JSON object indented by two spaces.
func (r *Record) Pretty() ([]byte, error) {
	compact, err := r.JSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.JSON()
}

// Encoder.Encode terminates every value with a newline.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
