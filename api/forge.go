package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/delivery"
	"github.com/xraph/formrelay/form"
	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/ratelimit"
)

// ForgeAPI registers the webhook routes on a Forge router. It serves the
// same routes as Handler.
type ForgeAPI struct {
	relay   *formrelay.Relay
	config  Config
	limiter *ratelimit.Limiter
	log     forge.Logger
}

// NewForgeAPI creates a ForgeAPI for r.
func NewForgeAPI(r *formrelay.Relay, cfg Config, log forge.Logger) *ForgeAPI {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &ForgeAPI{
		relay:   r,
		config:  cfg,
		limiter: ratelimit.New(cfg.RateLimit),
		log:     log,
	}
}

// RegisterRoutes registers the relay routes into the given Forge router
// with OpenAPI metadata.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerSubmissionRoutes(router)
	a.registerJournalRoutes(router)
}

// ---------------------------------------------------------------------------
// Submission routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerSubmissionRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("submissions"))

	if err := g.POST("/submissions", a.createSubmission,
		forge.WithSummary("Relay submission"),
		forge.WithDescription("Maps one form platform event to a record and posts it to the destination."),
		forge.WithOperationID("createSubmission"),
		forge.WithResponseSchema(http.StatusAccepted, "Submission relayed", submissionResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createSubmission route", forge.Error(err))
	}

	if err := g.POST("/forms/items", a.listFormItems,
		forge.WithSummary("List form items"),
		forge.WithDescription("Reports the question identifiers of a form definition and which configured ones it lacks."),
		forge.WithOperationID("listFormItems"),
		forge.WithResponseSchema(http.StatusOK, "Form items", formItemsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listFormItems route", forge.Error(err))
	}

	if err := g.GET("/healthz", a.healthz,
		forge.WithSummary("Health"),
		forge.WithOperationID("healthz"),
	); err != nil {
		a.log.Error("Failed to register healthz route", forge.Error(err))
	}
}

func (a *ForgeAPI) createSubmission(ctx forge.Context) error {
	r := ctx.Request()

	if a.config.Password != "" {
		got := []byte(r.URL.Query().Get(delivery.PasswordParam))
		if subtle.ConstantTimeCompare(got, []byte(a.config.Password)) != 1 {
			return forge.Unauthorized("invalid password")
		}
	}
	if a.limiter.Enabled() {
		if a.limiter.Len() > maxTrackedClients {
			a.limiter.Prune()
		}
		if !a.limiter.Allow(clientKey(r)) {
			ctx.SetHeader("Retry-After", "1")
			return forge.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.Response(), r.Body, a.config.MaxBodyBytes))
	if err != nil {
		return mapError(err)
	}
	sub, err := form.Decode(body)
	if err != nil {
		return mapError(err)
	}

	out, err := a.relay.Handle(ctx.Context(), sub)
	resp := submissionResponse{
		SubmissionID: out.SubmissionID.String(),
		StatusCode:   out.StatusCode,
		LatencyMs:    out.LatencyMs,
		DebugEmailed: out.DebugEmailed,
	}
	if err != nil {
		resp.Error = err.Error()
		return ctx.JSON(statusFor(err), resp)
	}
	return ctx.JSON(http.StatusAccepted, resp)
}

func (a *ForgeAPI) listFormItems(ctx forge.Context) error {
	r := ctx.Request()
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Response(), r.Body, a.config.MaxBodyBytes))
	if err != nil {
		return mapError(err)
	}
	f, err := form.DecodeForm(body)
	if err != nil {
		return mapError(err)
	}
	return ctx.JSON(http.StatusOK, describeForm(f, a.relay.Config().Fields.QuestionIDs()))
}

func (a *ForgeAPI) healthz(ctx forge.Context) error {
	if store := a.relay.Journal(); store != nil {
		if err := store.Ping(ctx.Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "degraded",
				"journal": err.Error(),
			})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Journal routes
// ---------------------------------------------------------------------------

// ListJournalForgeRequest binds query parameters for GET /journal.
type ListJournalForgeRequest struct {
	State  string `description:"Filter by outcome (relayed, failed, rejected)" query:"state"`
	Offset int    `description:"Pagination offset"                             query:"offset"`
	Limit  int    `description:"Page size (default 50)"                        query:"limit"`
}

// GetJournalEntryForgeRequest binds the path for GET /journal/:id.
type GetJournalEntryForgeRequest struct {
	ID string `description:"Journal entry ID" path:"id"`
}

func (a *ForgeAPI) registerJournalRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("journal"))

	if err := g.GET("/journal", a.listJournal,
		forge.WithSummary("List journal entries"),
		forge.WithDescription("Returns recent relay invocations, newest first."),
		forge.WithOperationID("listJournal"),
		forge.WithRequestSchema(ListJournalForgeRequest{}),
		forge.WithListResponse(journal.Entry{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listJournal route", forge.Error(err))
	}

	if err := g.GET("/journal/:id", a.getJournalEntry,
		forge.WithSummary("Get journal entry"),
		forge.WithDescription("Returns one relay invocation."),
		forge.WithOperationID("getJournalEntry"),
		forge.WithResponseSchema(http.StatusOK, "Journal entry", journal.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getJournalEntry route", forge.Error(err))
	}
}

func (a *ForgeAPI) listJournal(ctx forge.Context, req *ListJournalForgeRequest) ([]*journal.Entry, error) {
	store := a.relay.Journal()
	if store == nil {
		return nil, forge.NotFound("journal not configured")
	}

	opts := journal.ListOpts{
		Offset: max(req.Offset, 0),
		Limit:  req.Limit,
		State:  journal.State(req.State),
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultJournalLimit
	}
	switch opts.State {
	case "", journal.StateRelayed, journal.StateFailed, journal.StateRejected:
	default:
		return nil, forge.BadRequest("unknown state " + req.State)
	}

	entries, err := store.List(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return entries, nil
}

func (a *ForgeAPI) getJournalEntry(ctx forge.Context, req *GetJournalEntryForgeRequest) (*journal.Entry, error) {
	store := a.relay.Journal()
	if store == nil {
		return nil, forge.NotFound("journal not configured")
	}

	entryID, err := id.ParseJournalID(req.ID)
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}
	e, err := store.Get(ctx.Context(), entryID)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// mapError converts relay errors to Forge HTTP errors.
func mapError(err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return forge.InternalError(err)
	}
	return forge.NewHTTPError(status, err.Error())
}
