// Package pipeline runs one extract, validate and load cycle.
//
// Every failure is caught at the Run boundary and returned as a Result
// carrying the tagged error. A Result without an envelope is the uniform
// failure signal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/database"
	"github.com/Alias1177/btcpipe/internal/model"
	"github.com/Alias1177/btcpipe/internal/observe"
	httpClient "github.com/Alias1177/btcpipe/internal/platform/http"
	"github.com/Alias1177/btcpipe/internal/sink"
	"github.com/Alias1177/btcpipe/internal/validate"
)

const tracerName = "github.com/Alias1177/btcpipe/internal/pipeline"

// Fetcher returns the decoded response body of one request
type Fetcher interface {
	FetchSpot(ctx context.Context) (model.RawResponse, error)
}

// Result is the outcome of one run
type Result struct {
	RunID    uuid.UUID
	Envelope *model.Envelope
	Err      *apperr.Error
}

// OK reports whether the run produced a validated envelope and every
// sink accepted it
func (r Result) OK() bool {
	return r.Err == nil && r.Envelope != nil
}

// Kind returns the failure kind, or KindUnknown on success
func (r Result) Kind() apperr.Kind {
	if r.Err == nil {
		return apperr.KindUnknown
	}
	return r.Err.Kind
}

// Pipeline wires a fetcher to an optional sink
type Pipeline struct {
	fetcher  Fetcher
	sink     sink.Sink
	obs      observe.Sink
	tracer   trace.Tracer
	endpoint string
	newID    func() uuid.UUID
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithTracer sets the tracer used for run and stage spans
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithEndpoint sets the endpoint reported in events
func WithEndpoint(url string) Option {
	return func(p *Pipeline) {
		p.endpoint = url
	}
}

// WithIDGenerator overrides run ID generation
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// New creates a pipeline. A nil sink means extract and validate only.
func New(fetcher Fetcher, s sink.Sink, obs observe.Sink, opts ...Option) *Pipeline {
	if obs == nil {
		obs = observe.Nop
	}
	p := &Pipeline{
		fetcher: fetcher,
		sink:    s,
		obs:     obs,
		tracer:  otel.Tracer(tracerName),
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one cycle. It never panics and never returns a partially
// validated envelope.
func (p *Pipeline) Run(ctx context.Context) Result {
	res := Result{RunID: p.newID()}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID.String()),
		attribute.String("endpoint", p.endpoint),
	))
	defer span.End()

	var raw model.RawResponse
	err := p.stage(ctx, "extract", apperr.KindTransport, func(ctx context.Context) error {
		var err error
		raw, err = p.fetcher.FetchSpot(ctx)
		if err != nil && apperr.KindOf(err) == apperr.KindUnknown {
			return apperr.Transport("fetch spot price", err)
		}
		return err
	})
	if err != nil {
		return p.fail(ctx, span, res, err, raw)
	}

	var env model.Envelope
	err = p.stage(ctx, "transform", apperr.KindValidation, func(ctx context.Context) error {
		var err error
		env, err = validate.Envelope(raw)
		return err
	})
	if err != nil {
		return p.fail(ctx, span, res, err, raw)
	}

	p.record(ctx, res, observe.LevelInfo, "Data validated successfully.")

	if p.sink != nil {
		err = p.stage(ctx, "load", apperr.KindPersistence, func(ctx context.Context) error {
			return p.sink.Deliver(ctx, env)
		})
		if err != nil {
			return p.fail(ctx, span, res, err, raw)
		}
	}

	res.Envelope = &env
	p.record(ctx, res, observe.LevelInfo, "Bitcoin value",
		observe.String("amount", env.Data.Amount),
		observe.String("base", env.Data.Base),
		observe.String("currency", env.Data.Currency),
	)
	span.SetStatus(codes.Ok, "")
	return res
}

// stage runs fn in a child span. A panic inside fn becomes an error of
// the stage's kind; untagged errors get that kind too.
func (p *Pipeline) stage(ctx context.Context, name string, kind apperr.Kind, fn func(context.Context) error) (err error) {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(kind, name, fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnknown {
				err = apperr.New(kind, name, err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return fn(ctx)
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, res Result, err error, raw model.RawResponse) Result {
	var tagged *apperr.Error
	if !errors.As(err, &tagged) {
		tagged = apperr.New(apperr.KindUnknown, "run pipeline", err)
	}
	res.Err = tagged
	res.Envelope = nil

	attrs := []observe.Attr{
		observe.String("endpoint", p.endpoint),
		observe.String("error.kind", tagged.Kind.String()),
		observe.Any("error", err),
	}
	if status := httpClient.StatusCode(err); status != 0 {
		attrs = append(attrs, observe.Any("http.status", status))
	}
	if database.IsConstraintViolation(err) {
		attrs = append(attrs, observe.Any("error.constraint", true))
	}
	if fields := validate.Fields(err); len(fields) > 0 {
		problems := make([]string, 0, len(fields))
		for _, f := range fields {
			problems = append(problems, f.String())
		}
		attrs = append(attrs, observe.Any("fields", problems))
	}
	if raw != nil {
		attrs = append(attrs, observe.Any("payload.keys", keys(raw)))
	}

	p.record(ctx, res, observe.LevelError, "Pipeline run failed", attrs...)
	span.SetStatus(codes.Error, tagged.Kind.String())
	return res
}

func (p *Pipeline) record(ctx context.Context, res Result, level observe.Level, msg string, attrs ...observe.Attr) {
	all := make([]observe.Attr, 0, len(attrs)+1)
	all = append(all, observe.String("run.id", res.RunID.String()))
	all = append(all, attrs...)
	p.obs.Record(ctx, observe.Event{Level: level, Message: msg, Attrs: all})
}

// keys lists the top-level keys of raw, sorted
func keys(raw model.RawResponse) []string {
	out := make([]string, 0, len(raw))
	for k := range raw {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
