package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/forge"
	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/api"
	"github.com/xraph/formrelay/journal/memory"
	"github.com/xraph/formrelay/record"
)

func TestNew_Defaults(t *testing.T) {
	e := New()
	if e.Name() != ExtensionName {
		t.Fatalf("name: got %q", e.Name())
	}
	cfg := e.Config()
	if cfg.Prefix != "/forms" {
		t.Fatalf("prefix: got %q", cfg.Prefix)
	}
	if cfg.API.MaxBodyBytes != api.DefaultMaxBodyBytes {
		t.Fatalf("max body: got %d", cfg.API.MaxBodyBytes)
	}
	if e.Relay() != nil {
		t.Fatal("relay built before Register")
	}
	if err := e.Health(context.Background()); err == nil {
		t.Fatal("expected health error before Register")
	}
}

func TestOptions(t *testing.T) {
	e := New(
		WithPrefix("/hooks"),
		WithAPIConfig(api.Config{Password: "inbound"}),
		WithDisableRoutes(),
		WithRelayOption(formrelay.WithDebugEmail("ops@example.com")),
	)
	cfg := e.Config()
	if cfg.Prefix != "/hooks" || cfg.API.Password != "inbound" || !cfg.DisableRoutes {
		t.Fatalf("options not applied: %+v", cfg)
	}
	if len(e.opts) != 1 {
		t.Fatalf("expected 1 relay option, got %d", len(e.opts))
	}

	e = New(WithConfig(Config{Prefix: "/x"}))
	if e.Config().Prefix != "/x" {
		t.Fatalf("WithConfig: got %q", e.Config().Prefix)
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	e := New()
	if err := e.build(nil); err == nil {
		t.Fatal("expected error without a destination")
	}
}

func TestBuildAndMount(t *testing.T) {
	dest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer dest.Close()

	j := memory.New()
	e := New(
		WithRelayOption(formrelay.WithDestination(dest.URL+"/submit", "s3cret")),
		WithRelayOption(formrelay.WithJournal(j)),
		WithRelayOption(formrelay.WithFields(record.Mapping{{Name: "name", QuestionID: "1"}})),
	)
	collector := gu.NewMetricsCollector("formrelay-ext-test")
	if err := e.build(collector); err != nil {
		t.Fatal(err)
	}
	if e.Relay() == nil {
		t.Fatal("relay not built")
	}

	router := forge.NewRouter(forge.WithContainer(forge.NewContainer()))
	e.mount(router, nil)

	srv := httptest.NewServer(router.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/forms/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 under prefix, got %d", resp.StatusCode)
	}

	event := `{"form":{"id":"f","items":[{"id":1,"title":"Name"}]},"response":{"id":"r","answers":[{"item_id":1,"response":"Jane"}]}}`
	resp, err = http.Post(srv.URL+"/forms/submissions", "application/json", strings.NewReader(event))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if n := collector.Histogram("formrelay_relay_latency_seconds").Count(); n != 1 {
		t.Fatalf("expected 1 latency observation in the app collector, got %d", n)
	}

	if err := e.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := j.Ping(context.Background()); err == nil {
		t.Fatal("expected journal closed after Stop")
	}
}
