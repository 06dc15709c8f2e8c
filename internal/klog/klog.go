// Package klog is a thin wrapper over log/slog, in the style of
// ardnew-aenv/log: a Logger embeds *slog.Logger plus a small config
// (level, output writer) so every kestrel package can log through one
// shared, swappable sink instead of importing slog directly.
package klog

import (
	"io"
	"log/slog"
)

// Logger is the engine-wide logging handle (SPEC_FULL §10.1). Its zero
// value is not usable; construct with New or Discard.
type Logger struct {
	*slog.Logger
}

// Option configures a Logger at construction time.
type Option func(*config)

type config struct {
	level  slog.Level
	writer io.Writer
	attrs  []slog.Attr
}

// WithLevel sets the minimum level the logger emits.
func WithLevel(l slog.Level) Option { return func(c *config) { c.level = l } }

// WithWriter sets the sink a text handler writes to.
func WithWriter(w io.Writer) Option { return func(c *config) { c.writer = w } }

// WithAttrs attaches attributes to every record the logger emits.
func WithAttrs(attrs ...slog.Attr) Option { return func(c *config) { c.attrs = attrs } }

// New builds a Logger writing structured text records through opts.
func New(opts ...Option) Logger {
	cfg := config{level: slog.LevelInfo, writer: io.Discard}
	for _, o := range opts {
		o(&cfg)
	}
	h := slog.NewTextHandler(cfg.writer, &slog.HandlerOptions{Level: cfg.level})
	l := slog.New(h)
	if len(cfg.attrs) > 0 {
		l = slog.New(h.WithAttrs(cfg.attrs))
	}
	return Logger{Logger: l}
}

// Discard is the default logger every engine is constructed with: no
// output until a host opts in via engine.WithLogger (SPEC_FULL §10.1).
func Discard() Logger { return New(WithWriter(io.Discard)) }

// UndefinedResolution logs a strict=false unknown variable/method/property
// resolution at debug level.
func (l Logger) UndefinedResolution(kind, name string) {
	l.Debug("undefined resolution", slog.String("kind", kind), slog.String("name", name))
}

// Suppressed logs a silent=true error interception at warn level with the
// error's kind, member name, and source span as structured attributes.
func (l Logger) Suppressed(kind, name, span string) {
	l.Warn("suppressed error", slog.String("kind", kind), slog.String("name", name), slog.String("span", span))
}
