package api

import (
	"io"
	"net/http"

	"github.com/xraph/formrelay/form"
)

type formItemsResponse struct {
	FormID  string        `json:"form_id,omitempty"`
	Items   []form.Item   `json:"items"`
	Lines   []string      `json:"lines"`
	Missing []form.ItemID `json:"missing"`
}

// listFormItems reports the item identifiers of a posted form definition
// and which configured identifiers it lacks.
func (h *Handler) listFormItems(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	f, err := form.DecodeForm(body)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, describeForm(f, h.relay.Config().Fields.QuestionIDs()))
}

// describeForm builds the items report, listing configured identifiers the
// form lacks.
func describeForm(f *form.Form, configured []form.ItemID) formItemsResponse {
	missing := f.Missing(configured)
	if missing == nil {
		missing = []form.ItemID{}
	}
	items := f.Items
	if items == nil {
		items = []form.Item{}
	}
	return formItemsResponse{
		FormID:  f.ID,
		Items:   items,
		Lines:   f.Describe(),
		Missing: missing,
	}
}
