package goSession

import (
	"errors"
	"io"
	"log/slog"
)

// Builder assembles a [Manager] from its collaborators.
//
// Builder instances are intended to be configured during initialization and then
// discarded. Build may be called once.
type Builder struct {
	config   Config
	provider IdentityProvider
	store    ProfileStore
	logger   *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithIdentityProvider sets the authentication collaborator. Required.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithProfileStore sets the profile collaborator. Required.
func (b *Builder) WithProfileStore(s ProfileStore) *Builder {
	b.store = s
	return b
}

// WithLogger sets the structured logger. Without one the Manager logs nothing.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. It only receives events when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the profile load latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager in
// [PhaseUninitialized]. Nothing touches the collaborators until
// [Manager.Activate].
//
// Build returns [ErrProviderRequired] or [ErrProfileStoreRequired] when a
// collaborator is missing, and the validation error of [Config.Validate]
// otherwise.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.provider == nil {
		return nil, ErrProviderRequired
	}
	if b.store == nil {
		return nil, ErrProfileStoreRequired
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := newManager(cfg, b.provider, b.store, logger)
	m.metrics = NewMetrics(cfg.Metrics)
	m.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	b.built = true

	return m, nil
}
