package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

const defaultJournalLimit = 50

func (h *Handler) listJournal(w http.ResponseWriter, r *http.Request) {
	store := h.relay.Journal()
	if store == nil {
		writeError(w, http.StatusNotFound, "journal not configured")
		return
	}

	opts := journal.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", defaultJournalLimit),
		State:  journal.State(r.URL.Query().Get("state")),
	}
	switch opts.State {
	case "", journal.StateRelayed, journal.StateFailed, journal.StateRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown state "+string(opts.State))
		return
	}

	entries, err := store.List(r.Context(), opts)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	store := h.relay.Journal()
	if store == nil {
		writeError(w, http.StatusNotFound, "journal not configured")
		return
	}

	entryID, err := id.ParseJournalID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := store.Get(r.Context(), entryID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if store := h.relay.Journal(); store != nil {
		if err := store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "degraded",
				"journal": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
