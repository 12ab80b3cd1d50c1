package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/forge/internal/core/ports"
)

// Bridge implements sdktrace.SpanProcessor to surface span lifecycle to a
// Logger. It carries build progress to the terminal without a dedicated
// exporter backend.
type Bridge struct {
	logger  ports.Logger
	verbose bool
}

// NewBridge returns a new Bridge.
func NewBridge(logger ports.Logger, verbose bool) *Bridge {
	return &Bridge{logger: logger, verbose: verbose}
}

// OnStart is called when a span starts.
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if b.logger == nil || !b.verbose {
		return
	}
	if !s.SpanContext().IsValid() {
		return
	}
	b.logger.Info(s.Name())
}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.logger == nil {
		return
	}
	if !s.SpanContext().IsValid() {
		return
	}

	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "node failed"
		}
		b.logger.Error(errors.New(desc))
		return
	}

	if b.verbose {
		d := s.EndTime().Sub(s.StartTime())
		b.logger.Info(fmt.Sprintf("%s (%s)", s.Name(), d.Round(time.Millisecond)))
	}
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}

// Setup installs a global tracer provider that routes span lifecycle through
// the given logger. The returned shutdown function must be called before
// process exit.
func Setup(logger ports.Logger, verbose bool) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewBridge(logger, verbose)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
