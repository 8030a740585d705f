// Package form models the form-submission events delivered by the hosting
// forms platform and resolves answers by question identifier.
package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Sentinel errors returned by form operations.
var (
	// ErrQuestionNotFound is returned when a question identifier does not
	// correspond to an item on the submission's form.
	ErrQuestionNotFound = errors.New("formrelay: question not found")

	// ErrInvalidEvent is returned when an inbound event does not have the
	// expected envelope shape.
	ErrInvalidEvent = errors.New("formrelay: invalid submission event")
)

// ItemID identifies one question on a form. Platforms usually send item IDs
// as JSON numbers; strings are accepted and compare equal to the number's
// decimal form. Integral numbers written with a fraction or exponent
// (111111.0, 1.11111e5) normalize to their integer form.
type ItemID string

// UnmarshalJSON accepts a JSON string or number.
func (i *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*i = ItemID(normalizeNumber(n.String()))
	return nil
}

func normalizeNumber(s string) string {
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() {
		return s
	}
	return r.Num().String()
}

// Item is one question on a form.
type Item struct {
	ID    ItemID `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
}

// Form is the definition a submission belongs to.
type Form struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Items []Item `json:"items"`
}

// Item returns the item with the given identifier.
func (f *Form) Item(qid ItemID) (Item, bool) {
	for _, it := range f.Items {
		if it.ID == qid {
			return it, true
		}
	}
	return Item{}, false
}

// Describe returns one `"title" -- id` line per item, in form order.
func (f *Form) Describe() []string {
	lines := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		lines = append(lines, fmt.Sprintf("%q -- %s", it.Title, it.ID))
	}
	return lines
}

// Missing returns the identifiers in qids that are not items on the form.
func (f *Form) Missing(qids []ItemID) []ItemID {
	var missing []ItemID
	for _, qid := range qids {
		if _, ok := f.Item(qid); !ok {
			missing = append(missing, qid)
		}
	}
	return missing
}

// Answer is a respondent's answer to one question. Text questions carry a
// single string; checkbox and grid questions carry Choices.
type Answer struct {
	ItemID  ItemID
	Text    string
	Choices []string
	multi   bool
}

// TextAnswer returns a single-valued answer.
func TextAnswer(qid ItemID, text string) *Answer {
	return &Answer{ItemID: qid, Text: text}
}

// ChoiceAnswer returns a multi-valued answer.
func ChoiceAnswer(qid ItemID, choices ...string) *Answer {
	return &Answer{ItemID: qid, Choices: choices, multi: true}
}

// IsMulti reports whether the answer holds a list of choices.
func (a *Answer) IsMulti() bool { return a.multi }

// String returns the text of a single-valued answer, or the first choice of
// a multi-valued one.
func (a *Answer) String() string {
	if !a.multi {
		return a.Text
	}
	if len(a.Choices) == 0 {
		return ""
	}
	return a.Choices[0]
}

// Value returns the answer as it appears in a record: a string or []string.
func (a *Answer) Value() any {
	if a.multi {
		out := make([]string, len(a.Choices))
		copy(out, a.Choices)
		return out
	}
	return a.Text
}

// wireAnswer is the JSON shape of an answer inside an event.
type wireAnswer struct {
	ItemID   ItemID          `json:"item_id"`
	Response json.RawMessage `json:"response"`
}

// Submission is one completed form response.
type Submission struct {
	// ResponseID is the platform's identifier for the response, if any.
	ResponseID string

	// RespondentEmail is empty when the form does not collect emails.
	RespondentEmail string

	// SubmittedAt is nil when the platform does not report it.
	SubmittedAt *time.Time

	// Form is the definition the response belongs to.
	Form Form

	answers map[ItemID]*Answer
}

// NewSubmission builds a submission from already-decoded answers. Later
// answers for the same item replace earlier ones.
func NewSubmission(f Form, respondentEmail string, answers ...*Answer) *Submission {
	s := &Submission{
		RespondentEmail: respondentEmail,
		Form:            f,
		answers:         make(map[ItemID]*Answer, len(answers)),
	}
	for _, a := range answers {
		s.answers[a.ItemID] = a
	}
	return s
}

// Answer resolves the respondent's answer to the question identified by qid.
// It returns nil without error when the question exists but was not
// answered, and ErrQuestionNotFound when qid is not an item on the form.
func (s *Submission) Answer(qid ItemID) (*Answer, error) {
	if _, ok := s.Form.Item(qid); !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, qid)
	}
	return s.answers[qid], nil
}

// AnswerCount returns the number of answered questions.
func (s *Submission) AnswerCount() int { return len(s.answers) }
