package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/api"
	"github.com/xraph/formrelay/journal/memory"
)

const volunteerEvent = `{
  "form": {
    "id": "form-1",
    "title": "Volunteer sign-up",
    "items": [
      {"id": 111111, "title": "Can you help?"},
      {"id": 222222, "title": "Name"},
      {"id": 333333, "title": "Phone number"},
      {"id": 444444, "title": "Hours"},
      {"id": 555555, "title": "Timezone"},
      {"id": 666666, "title": "Comments"}
    ]
  },
  "response": {
    "id": "resp-1",
    "respondent_email": "jane@example.com",
    "answers": [
      {"item_id": 111111, "response": "Yes"},
      {"item_id": 222222, "response": "Jane Doe"},
      {"item_id": 333333, "response": "555-1234"},
      {"item_id": 444444, "response": "9-5"},
      {"item_id": 555555, "response": "PST"},
      {"item_id": 666666, "response": ""}
    ]
  }
}`

// destination is the receiving side; it records every body it gets.
type destination struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (d *destination) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	d.mu.Lock()
	d.bodies = append(d.bodies, string(b))
	d.mu.Unlock()
	w.WriteHeader(d.status)
}

func (d *destination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bodies)
}

type fixture struct {
	srv  *httptest.Server
	dest *destination
}

func setup(t *testing.T, status int, cfg api.Config, opts ...formrelay.Option) *fixture {
	t.Helper()

	dest := &destination{status: status}
	destSrv := httptest.NewServer(dest)
	t.Cleanup(destSrv.Close)

	base := []formrelay.Option{
		formrelay.WithDestination(destSrv.URL+"/volunteers/submit", "s3cret"),
	}
	r, err := formrelay.New(append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(api.NewHandler(r, cfg, slog.Default()))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, dest: dest}
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestSubmission_Relayed(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{})

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if sid, _ := body["submission_id"].(string); !strings.HasPrefix(sid, "sub_") {
		t.Fatalf("expected sub_ submission id, got %v", body["submission_id"])
	}

	if f.dest.count() != 1 {
		t.Fatalf("expected 1 relayed POST, got %d", f.dest.count())
	}
	want := `{"email":"jane@example.com","enabled":true,"name":"Jane Doe","phone_number":"555-1234","opt_in_hours":"9-5","timezone":"PST","comments":""}`
	if got := f.dest.bodies[0]; got != want {
		t.Fatalf("body:\n got %s\nwant %s", got, want)
	}
}

func TestSubmission_InvalidEvent(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{})

	for _, body := range []string{`not json`, `{"response":{"answers":[]}}`, `[]`} {
		resp := do(t, "POST", f.srv.URL+"/submissions", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, resp.StatusCode)
		}
	}
	if f.dest.count() != 0 {
		t.Fatalf("expected no POST, got %d", f.dest.count())
	}
}

func TestSubmission_QuestionNotFound(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{})

	event := strings.Replace(volunteerEvent, `{"id": 111111, "title": "Can you help?"},`, "", 1)
	resp := do(t, "POST", f.srv.URL+"/submissions", event)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "111111") {
		t.Fatalf("expected error to name the identifier, got %q", msg)
	}
	if f.dest.count() != 0 {
		t.Fatalf("expected no POST, got %d", f.dest.count())
	}
}

func TestSubmission_RelayFailed(t *testing.T) {
	f := setup(t, http.StatusInternalServerError, api.Config{})

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if code, _ := body["status_code"].(float64); code != 500 {
		t.Fatalf("expected upstream status 500, got %v", body["status_code"])
	}
	if f.dest.count() != 1 {
		t.Fatalf("expected exactly 1 POST, got %d", f.dest.count())
	}
}

func TestSubmission_InboundPassword(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{Password: "in&bound"})

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without password, got %d", resp.StatusCode)
	}

	resp = do(t, "POST", f.srv.URL+"/submissions?password=wrong", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong password, got %d", resp.StatusCode)
	}

	resp = do(t, "POST", f.srv.URL+"/submissions?password=in%26bound", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 with password, got %d", resp.StatusCode)
	}
	if f.dest.count() != 1 {
		t.Fatalf("expected 1 POST, got %d", f.dest.count())
	}
}

func TestSubmission_BodyTooLarge(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{MaxBodyBytes: 16})

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestSubmission_RateLimited(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{RateLimit: 1})

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	resp = do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if f.dest.count() != 1 {
		t.Fatalf("expected 1 POST, got %d", f.dest.count())
	}
}

func TestFormItems(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{})

	def := `{"id":"form-1","items":[{"id":111111,"title":"Can you help?"},{"id":"222222","title":"Name"}]}`
	resp := do(t, "POST", f.srv.URL+"/forms/items", def)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Items   []map[string]any `json:"items"`
		Lines   []string         `json:"lines"`
		Missing []string         `json:"missing"`
	}
	decodeBody(t, resp, &body)

	if len(body.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(body.Items))
	}
	if body.Lines[0] != `"Can you help?" -- 111111` {
		t.Fatalf("unexpected line %q", body.Lines[0])
	}
	want := []string{"333333", "444444", "555555", "666666"}
	if strings.Join(body.Missing, ",") != strings.Join(want, ",") {
		t.Fatalf("expected missing %v, got %v", want, body.Missing)
	}
}

func TestJournal(t *testing.T) {
	j := memory.New()
	f := setup(t, http.StatusOK, api.Config{}, formrelay.WithJournal(j))

	resp := do(t, "POST", f.srv.URL+"/submissions", volunteerEvent)
	resp.Body.Close()

	resp = do(t, "GET", f.srv.URL+"/journal", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var entries []map[string]any
	decodeBody(t, resp, &entries)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["state"] != "relayed" {
		t.Fatalf("expected relayed, got %v", entries[0]["state"])
	}
	if dest, _ := entries[0]["destination"].(string); strings.Contains(dest, "s3cret") {
		t.Fatalf("journal leaked the password: %s", dest)
	}

	entryID, _ := entries[0]["id"].(string)
	resp = do(t, "GET", f.srv.URL+"/journal/"+entryID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for entry, got %d", resp.StatusCode)
	}
	var entry map[string]any
	decodeBody(t, resp, &entry)
	rec, _ := entry["record"].(map[string]any)
	if rec["name"] != "Jane Doe" {
		t.Fatalf("expected record in entry, got %v", entry["record"])
	}

	resp = do(t, "GET", f.srv.URL+"/journal?state=bogus", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown state, got %d", resp.StatusCode)
	}

	resp = do(t, "GET", f.srv.URL+"/journal/not-an-id", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}

func TestJournal_NotConfigured(t *testing.T) {
	f := setup(t, http.StatusOK, api.Config{})

	resp := do(t, "GET", f.srv.URL+"/journal", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	j := memory.New()
	f := setup(t, http.StatusOK, api.Config{}, formrelay.WithJournal(j))

	resp := do(t, "GET", f.srv.URL+"/healthz", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_ = j.Close()
	resp = do(t, "GET", f.srv.URL+"/healthz", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after journal close, got %d", resp.StatusCode)
	}
}

func TestPanicRecovery(t *testing.T) {
	dest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer dest.Close()

	r, err := formrelay.New(formrelay.WithDestination(dest.URL, "x"))
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	h := api.NewHandler(r, api.Config{}, slog.New(slog.NewJSONHandler(&logs, nil)))
	h.Router().Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", bytes.NewReader(nil)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	// The panicking request must still produce an access log line.
	var access map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if rec["msg"] == "api request" {
			access = rec
		}
	}
	if access == nil {
		t.Fatalf("expected an access log line, got %s", logs.String())
	}
	if access["path"] != "/boom" || access["status"] != float64(http.StatusInternalServerError) {
		t.Fatalf("unexpected access line %v", access)
	}
}
