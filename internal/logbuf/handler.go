package logbuf

import (
	"context"
	"log/slog"
)

// Top-level keys lifted out of Attrs into their own Entry fields so that
// /api/logs can filter on them. Grouped keys are never promoted.
const (
	componentKey = "component"
	requestKey   = "request"
)

// Handler is an slog.Handler that captures every record into a Buffer and
// forwards records the inner handler accepts. The ticket components log
// through loggers carrying component (and, per interaction, request); those
// two attrs become Entry.Component and Entry.Request instead of staying in
// Entry.Attrs.
type Handler struct {
	inner  slog.Handler
	buf    *Buffer
	attrs  []boundAttr
	groups []string
}

// boundAttr is an attr from WithAttrs with the groups open at the time.
type boundAttr struct {
	groups []string
	attr   slog.Attr
}

// NewHandler creates a handler that writes to both buf and inner.
func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

// Enabled always reports true: the buffer keeps debug entries even when
// stdout is filtered to a higher level.
func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	e := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, b := range h.attrs {
		collect(&e, attrs, b.groups, b.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(&e, attrs, h.groups, a)
		return true
	})
	if len(attrs) > 0 {
		e.Attrs = attrs
	}
	h.buf.Write(e)

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func collect(e *Entry, attrs map[string]any, groups []string, a slog.Attr) {
	if len(groups) == 0 {
		switch a.Key {
		case componentKey:
			e.Component = a.Value.Resolve().String()
			return
		case requestKey:
			e.Request = a.Value.Resolve().String()
			return
		}
	}
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}
	attrs[key] = resolveAttrValue(a.Value)
}

// resolveAttrValue converts slog values to JSON-safe types. Errors become
// their message; a bare error marshals to {}.
func resolveAttrValue(v slog.Value) any {
	raw := v.Resolve().Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.attrs[:len(h.attrs):len(h.attrs)]
	for _, a := range attrs {
		bound = append(bound, boundAttr{groups: h.groups, attr: a})
	}
	return &Handler{
		inner:  h.inner.WithAttrs(attrs),
		buf:    h.buf,
		attrs:  bound,
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:  h.inner.WithGroup(name),
		buf:    h.buf,
		attrs:  h.attrs,
		groups: append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}
