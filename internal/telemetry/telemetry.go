// Package telemetry wires global OpenTelemetry tracing for the dashboard.
// Trace modes trade span volume for visibility: "off", "errors", "sampled",
// and "detailed", where only detailed emits per-dependency GitHub call spans.
package telemetry

import (
	"context"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ModeOff      = "off"
	ModeErrors   = "errors"
	ModeSampled  = "sampled"
	ModeDetailed = "detailed"
)

var activeMode atomic.Value

// Config configures tracing setup.
type Config struct {
	Enabled     bool
	ServiceName string
	Mode        string
	SampleRatio float64
}

// Runtime holds the initialized provider and its shutdown hook.
type Runtime struct {
	TracerProvider *sdktrace.TracerProvider
	Shutdown       func(ctx context.Context) error
}

// Setup installs the global tracer provider per the configuration.
func Setup(cfg Config) (Runtime, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gitpulse"
	}

	mode := normalizeMode(cfg.Mode)
	if !cfg.Enabled {
		mode = ModeOff
	}
	activeMode.Store(mode)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return Runtime{}, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(samplerForMode(mode, cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return Runtime{
		TracerProvider: provider,
		Shutdown:       provider.Shutdown,
	}, nil
}

// Mode reports the active global trace mode.
func Mode() string {
	value, _ := activeMode.Load().(string)
	if value == "" {
		return ModeOff
	}
	return value
}

// ShouldTraceDependencies reports whether per-call GitHub dependency spans
// should be emitted. Only the detailed mode pays that cost.
func ShouldTraceDependencies() bool {
	return Mode() == ModeDetailed
}

func samplerForMode(mode string, ratio float64) sdktrace.Sampler {
	clamped := clampRatio(ratio)
	switch mode {
	case ModeOff:
		return sdktrace.NeverSample()
	case ModeDetailed:
		return sdktrace.AlwaysSample()
	case ModeErrors:
		if clamped <= 0 {
			clamped = 0.01
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clamped))
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clamped))
	}
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeOff:
		return ModeOff
	case ModeErrors:
		return ModeErrors
	case ModeDetailed:
		return ModeDetailed
	default:
		return ModeSampled
	}
}

func clampRatio(ratio float64) float64 {
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
