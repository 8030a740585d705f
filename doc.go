// Package formrelay relays form submissions to an HTTP endpoint.
//
// For each submission event the relay resolves the configured question
// identifiers to named fields, builds a flat JSON record, optionally emails
// a pretty-printed copy to an operator, and POSTs the record once to the
// destination with the shared secret in the `password` query parameter.
//
// formrelay is a library first. The api package exposes it as a webhook and
// cmd/formrelay wraps both in a binary.
//
// Quick start:
//
//	cfg := formrelay.DefaultConfig()
//	cfg.DestinationURL = "https://volunteers.example.org/volunteers/submit"
//	cfg.Password = os.Getenv("FORMRELAY_PASSWORD")
//
//	r, err := formrelay.New(formrelay.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sub, err := form.Decode(payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := r.Handle(ctx, sub)
package formrelay
