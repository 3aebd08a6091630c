// Package auditlog records an immutable change history for watched entities.
//
// A Handler turns lifecycle events (create, update, delete, restore) into
// redacted field diffs and writes one Row per event to a Store. A Registry
// subscribes a Handler to the lifecycle hooks of Watchable entity types.
package auditlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNilEntity is returned by Record when the event carries no entity type.
var ErrNilEntity = errors.New("auditlog: event entity cannot be nil")

// Handler is the change capture engine. It holds no mutable state after New
// returns and is safe for concurrent use.
type Handler struct {
	cfg      Config
	store    Store
	identity Identity
	logger   zerolog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
	discards map[string]struct{}
	byEntity map[string]map[string]struct{}
}

// Option customizes a Handler.
type Option func(*Handler)

// WithIdentity sets the collaborator resolving the acting user.
// Defaults to ContextIdentity.
func WithIdentity(id Identity) Option {
	return func(h *Handler) {
		if id != nil {
			h.identity = id
		}
	}
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New creates a Handler writing to store. Missing restore messages fall back
// to DefaultRestoreMessage.
func New(cfg Config, store Store, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Messages.RestoreSoftDeleted == "" {
		cfg.Messages.RestoreSoftDeleted = DefaultRestoreMessage
	}
	if cfg.Mask == nil {
		cfg.Mask = MaskMap{}
	}
	cfg = normalizeModels(cfg)

	h := &Handler{
		cfg:      cfg,
		store:    store,
		identity: ContextIdentity,
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		discards: toSet(cfg.Discards),
		byEntity: make(map[string]map[string]struct{}, len(cfg.EntityDiscards)),
	}
	for model, fields := range cfg.EntityDiscards {
		h.byEntity[model] = toSet(fields)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Config returns a copy of the handler's configuration.
func (h *Handler) Config() Config {
	return h.cfg
}

// Redact returns a copy of fields without globally discarded keys, keys
// discarded for the entity type, and keys the entity declares through
// Discarder. Fields listed in Config.Mask are kept with masked values.
func (h *Handler) Redact(entity Entity, fields Snapshot) Snapshot {
	out := make(Snapshot, len(fields))
	if len(fields) == 0 {
		return out
	}
	var model string
	var declared map[string]struct{}
	if entity != nil {
		model = entity.EntityType()
		if d, ok := entity.(Discarder); ok {
			declared = toSet(d.Discarded())
		}
	}
	perEntity := h.byEntity[model]

	for k, v := range fields {
		if _, ok := h.discards[k]; ok {
			continue
		}
		if _, ok := perEntity[k]; ok {
			continue
		}
		if _, ok := declared[k]; ok {
			continue
		}
		if fn, ok := h.cfg.Mask[k]; ok && fn != nil {
			out[k] = fn(k, v)
			continue
		}
		out[k] = v
	}
	return out
}

// Record redacts and diffs ev and writes the resulting row. It returns a nil
// row and nil error when the event is not captured: the context was marked
// with WithSkip or the action's watcher is disabled. Store failures are
// returned as *PersistError.
func (h *Handler) Record(ctx context.Context, ev Event) (row *Row, err error) {
	if !ev.Action.Valid() {
		h.metrics.incFailure("", string(ev.Action), failureKind(ErrUnknownAction))
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
	if ev.Entity == nil {
		return nil, ErrNilEntity
	}
	model := ev.Entity.EntityType()
	action := ev.Action

	if extractSkip(ctx) {
		h.metrics.incSkipped(model, action.String(), skipReasonContext)
		return nil, nil
	}
	if !h.cfg.Watchers.Enabled(action) {
		h.metrics.incSkipped(model, action.String(), skipReasonDisabled)
		return nil, nil
	}

	ctx, end := h.startSpan(ctx, "auditlog.Record",
		attribute.String("auditlog.model", model),
		attribute.String("auditlog.action", action.String()),
	)
	defer func() { end(err) }()
	start := h.now()

	d, err := h.Diff(action, h.Redact(ev.Entity, ev.Old), h.Redact(ev.Entity, ev.New))
	if err != nil {
		h.metrics.incFailure(model, action.String(), failureKind(err))
		h.logger.Error().Err(err).Str("model", model).Str("action", action.String()).Msg("auditlog.Record: failed to build diff")
		return nil, err
	}
	payload, err := d.Encode()
	if err != nil {
		h.metrics.incFailure(model, action.String(), failureKind(err))
		return nil, err
	}

	ts := h.now().UTC()
	row = &Row{
		UserID:    h.actor(ctx),
		ModelName: model,
		ModelID:   formatKey(resolveKey(model, ev.EntityID, ev.Old, ev.New)),
		Action:    action,
		Record:    payload,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	id, err := h.insert(ctx, row)
	if err != nil {
		perr := &PersistError{Model: model, Action: action, Err: err}
		h.metrics.incFailure(model, action.String(), failureKind(perr))
		h.logger.Error().Err(err).Str("model", model).Str("action", action.String()).Str("model_id", row.ModelID).Msg("auditlog.Record: failed to persist row")
		return nil, perr
	}
	row.ID = id

	h.metrics.incRecorded(model, action.String())
	h.metrics.observeDuration(action.String(), h.now().Sub(start).Seconds())
	h.logger.Debug().Str("model", model).Str("action", action.String()).Str("model_id", row.ModelID).Str("row_id", string(id)).Int("fields", len(d)).Msg("auditlog.Record: row written")
	return row, nil
}

func (h *Handler) insert(ctx context.Context, row *Row) (id RowID, err error) {
	ctx, end := h.startSpan(ctx, "auditlog.Store.Insert", attribute.String("auditlog.model", row.ModelName))
	defer func() { end(err) }()
	return h.store.Insert(ctx, row)
}

func (h *Handler) actor(ctx context.Context) *string {
	id, ok := h.identity.CurrentActorID(ctx)
	if !ok {
		return nil
	}
	return &id
}

// normalizeModels trims model names the same way Validate does so lookups
// by EntityType match.
func normalizeModels(cfg Config) Config {
	models := make([]string, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		models = append(models, strings.TrimSpace(m))
	}
	cfg.Models = models

	if cfg.EntityDiscards != nil {
		byModel := make(map[string][]string, len(cfg.EntityDiscards))
		for model, fields := range cfg.EntityDiscards {
			name := strings.TrimSpace(model)
			byModel[name] = append(byModel[name], fields...)
		}
		cfg.EntityDiscards = byModel
	}
	return cfg
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
