package record

import (
	"fmt"

	"github.com/xraph/formrelay/form"
)

// Kind selects how a field's value is derived from a submission.
type Kind string

const (
	// KindText copies the resolved answer (string, list, or null).
	KindText Kind = "text"

	// KindEnabled is true iff the lowercased answer starts with "yes".
	KindEnabled Kind = "enabled"

	// KindRespondentEmail copies the submission's respondent email.
	KindRespondentEmail Kind = "respondent_email"
)

// Field maps one question identifier to a named record field.
type Field struct {
	// Name is the JSON key in the relayed record.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// QuestionID is the form item the value is read from. Unused for
	// KindRespondentEmail.
	QuestionID form.ItemID `json:"question_id,omitempty" yaml:"question_id" mapstructure:"question_id"`

	// Kind defaults to KindText when empty.
	Kind Kind `json:"kind,omitempty" yaml:"kind" mapstructure:"kind"`
}

func (f Field) kind() Kind {
	if f.Kind == "" {
		return KindText
	}
	return f.Kind
}

// Mapping is the ordered set of fields that make up a record.
type Mapping []Field

// DefaultMapping returns the volunteer sign-up mapping. Question IDs are
// placeholders; look up the real ones with `formrelay items`.
func DefaultMapping() Mapping {
	return Mapping{
		{Name: "email", Kind: KindRespondentEmail},
		{Name: "enabled", QuestionID: "111111", Kind: KindEnabled},
		{Name: "name", QuestionID: "222222", Kind: KindText},
		{Name: "phone_number", QuestionID: "333333", Kind: KindText},
		{Name: "opt_in_hours", QuestionID: "444444", Kind: KindText},
		{Name: "timezone", QuestionID: "555555", Kind: KindText},
		{Name: "comments", QuestionID: "666666", Kind: KindText},
	}
}

// Names returns the field names in declared order.
func (m Mapping) Names() []string {
	names := make([]string, len(m))
	for i, f := range m {
		names[i] = f.Name
	}
	return names
}

// QuestionIDs returns the question identifiers the mapping reads.
func (m Mapping) QuestionIDs() []form.ItemID {
	var qids []form.ItemID
	for _, f := range m {
		if f.kind() != KindRespondentEmail {
			qids = append(qids, f.QuestionID)
		}
	}
	return qids
}

// Validate checks that the mapping can produce a well-formed record.
func (m Mapping) Validate() error {
	if len(m) == 0 {
		return &MappingError{Index: -1, Message: "at least one field is required"}
	}

	seen := make(map[string]bool, len(m))
	for i, f := range m {
		if f.Name == "" {
			return &MappingError{Index: i, Message: "name is required"}
		}
		if seen[f.Name] {
			return &MappingError{Index: i, Name: f.Name, Message: "duplicate field name"}
		}
		seen[f.Name] = true

		switch f.kind() {
		case KindText, KindEnabled:
			if f.QuestionID == "" {
				return &MappingError{Index: i, Name: f.Name, Message: "question_id is required"}
			}
		case KindRespondentEmail:
		default:
			return &MappingError{Index: i, Name: f.Name, Message: fmt.Sprintf("unknown kind %q", f.Kind)}
		}
	}
	return nil
}

// MappingError describes an invalid field mapping.
type MappingError struct {
	Index   int
	Name    string
	Message string
}

func (e *MappingError) Error() string {
	switch {
	case e.Index < 0:
		return "mapping: " + e.Message
	case e.Name == "":
		return fmt.Sprintf("mapping: field %d: %s", e.Index, e.Message)
	default:
		return fmt.Sprintf("mapping: field %d (%s): %s", e.Index, e.Name, e.Message)
	}
}
