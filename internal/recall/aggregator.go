// Package recall builds the context block handed to the narrator: one
// retrieval per kind, merged in fixed priority order and rendered as text.
package recall

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/campaign-memory/internal/logging"
	"github.com/rcliao/campaign-memory/internal/memory"
	"github.com/rcliao/campaign-memory/internal/model"
)

const (
	DefaultSceneK  = 5
	DefaultTurnK   = 3
	DefaultTimeout = 5 * time.Second

	tracerName = "github.com/rcliao/campaign-memory/internal/recall"
)

// Retriever runs one similarity search. *memory.Repository implements it.
type Retriever interface {
	Retrieve(ctx context.Context, kind model.Kind, query string, filter memory.Filter, k int) ([]model.Hit, error)
}

// Mode selects the default per-kind result count.
type Mode int

const (
	// ModeScene is used for scene prompts.
	ModeScene Mode = iota
	// ModeTurn is used for player turns, which are frequent and need less context.
	ModeTurn
)

func (m Mode) String() string {
	if m == ModeTurn {
		return "turn"
	}
	return "scene"
}

// Request is one context build.
type Request struct {
	Query string
	// SessionID scopes session memories when set. Other kinds are unscoped.
	SessionID string
	// K overrides the mode's per-kind count when positive.
	K    int
	Mode Mode
}

// Entry is one rendered memory.
type Entry struct {
	Kind  model.Kind `json:"kind"`
	ID    string     `json:"id"`
	Name  string     `json:"name,omitempty"`
	Text  string     `json:"text"`
	Score float64    `json:"score"`
}

// Failure records a kind whose retrieval was dropped.
type Failure struct {
	Kind model.Kind `json:"kind"`
	Err  error      `json:"-"`
}

// Result holds the merged entries in priority order and the kinds that failed.
type Result struct {
	Entries  []Entry   `json:"entries"`
	Failures []Failure `json:"failures,omitempty"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout sets the deadline applied to each kind's retrieval.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithSceneK sets the per-kind count for ModeScene.
func WithSceneK(k int) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.sceneK = k
		}
	}
}

// WithTurnK sets the per-kind count for ModeTurn.
func WithTurnK(k int) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.turnK = k
		}
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Aggregator) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// Aggregator fans a query out to every kind and merges the results.
type Aggregator struct {
	retriever Retriever
	timeout   time.Duration
	sceneK    int
	turnK     int
	tracer    trace.Tracer
}

// New creates an Aggregator over retriever.
func New(retriever Retriever, opts ...Option) *Aggregator {
	a := &Aggregator{
		retriever: retriever,
		timeout:   DefaultTimeout,
		sceneK:    DefaultSceneK,
		turnK:     DefaultTurnK,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Context builds and renders the context block for req.
func (a *Aggregator) Context(ctx context.Context, req Request) (string, error) {
	res, err := a.Build(ctx, req)
	if err != nil {
		return "", err
	}
	return Render(res.Entries), nil
}

// Build retrieves every kind concurrently. A kind that fails with an encoder,
// persistence or deadline error contributes nothing and is listed in
// Result.Failures. Any other error aborts the build.
func (a *Aggregator) Build(ctx context.Context, req Request) (*Result, error) {
	k, err := a.resolveK(req)
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "recall.Build", trace.WithAttributes(
		attribute.String("mode", req.Mode.String()),
		attribute.Int("k", k),
		attribute.Bool("session_scoped", req.SessionID != ""),
	))
	defer span.End()

	logger := logging.From(ctx)
	hits := make([][]model.Hit, len(model.Kinds))
	failures := make([]error, len(model.Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range model.Kinds {
		g.Go(func() error {
			h, err := a.retrieveKind(gctx, kind, req, k)
			if err == nil {
				hits[i] = h
				return nil
			}
			if !degradable(err) {
				return err
			}
			logger.Warn("memory retrieval degraded",
				slog.String("kind", string(kind)), slog.Any("error", err))
			failures[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context build failed")
		return nil, err
	}

	res := &Result{Entries: merge(hits)}
	for i, err := range failures {
		if err != nil {
			res.Failures = append(res.Failures, Failure{Kind: model.Kinds[i], Err: err})
		}
	}
	span.SetAttributes(
		attribute.Int("entries", len(res.Entries)),
		attribute.Int("failures", len(res.Failures)),
	)
	return res, nil
}

func (a *Aggregator) resolveK(req Request) (int, error) {
	switch {
	case req.K < 0:
		return 0, goerr.Wrap(model.ErrInvalidArgument, "k must not be negative", goerr.V("k", req.K))
	case req.K > 0:
		return req.K, nil
	case req.Mode == ModeTurn:
		return a.turnK, nil
	}
	return a.sceneK, nil
}

type outcome struct {
	hits []model.Hit
	err  error
}

// retrieveKind runs one retrieval under its own deadline. The select returns
// at the deadline even if the retriever ignores its context.
func (a *Aggregator) retrieveKind(ctx context.Context, kind model.Kind, req Request, k int) ([]model.Hit, error) {
	ctx, span := a.tracer.Start(ctx, "recall.retrieve", trace.WithAttributes(
		attribute.String("kind", string(kind)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	filter := memory.None()
	if kind == model.KindSession {
		filter = memory.FilterFrom(req.SessionID, "")
	}

	ch := make(chan outcome, 1)
	go func() {
		h, err := a.retriever.Retrieve(ctx, kind, req.Query, filter, k)
		ch <- outcome{hits: h, err: err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-ctx.Done():
		o.err = goerr.Wrap(ctx.Err(), "retrieval timed out", goerr.V("kind", kind), goerr.V("timeout", a.timeout.String()))
	}
	if o.err != nil {
		span.RecordError(o.err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, o.err
	}
	span.SetAttributes(attribute.Int("hits", len(o.hits)))
	return o.hits, nil
}

func degradable(err error) bool {
	return errors.Is(err, model.ErrEncoderUnavailable) ||
		errors.Is(err, model.ErrPersistence) ||
		errors.Is(err, context.DeadlineExceeded)
}

// merge concatenates per-kind hits in priority order, keeping each kind's
// rank order and dropping repeated text within a kind.
func merge(hits [][]model.Hit) []Entry {
	var entries []Entry
	seen := make(map[string]bool)
	for i, kind := range model.Kinds {
		for _, h := range hits[i] {
			key := string(kind) + "\x00" + h.Text
			if seen[key] {
				continue
			}
			seen[key] = true
			h.Kind = kind
			entries = append(entries, Entry{
				Kind:  kind,
				ID:    h.ID,
				Name:  h.Name(),
				Text:  h.Text,
				Score: h.Score,
			})
		}
	}
	return entries
}
