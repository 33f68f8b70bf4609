package telemetry

import (
	"context"
	"testing"
)

func TestNormalizeMode(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{raw: "off", want: ModeOff},
		{raw: " OFF ", want: ModeOff},
		{raw: "errors", want: ModeErrors},
		{raw: "detailed", want: ModeDetailed},
		{raw: "sampled", want: ModeSampled},
		{raw: "", want: ModeSampled},
		{raw: "bogus", want: ModeSampled},
	}

	for _, tc := range testCases {
		if got := normalizeMode(tc.raw); got != tc.want {
			t.Fatalf("normalizeMode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClampRatio(t *testing.T) {
	if got := clampRatio(-0.5); got != 0 {
		t.Fatalf("clampRatio(-0.5) = %v, want 0", got)
	}
	if got := clampRatio(1.5); got != 1 {
		t.Fatalf("clampRatio(1.5) = %v, want 1", got)
	}
	if got := clampRatio(0.3); got != 0.3 {
		t.Fatalf("clampRatio(0.3) = %v, want 0.3", got)
	}
}

func TestSetupDisabledForcesOff(t *testing.T) {
	runtime, err := Setup(Config{Enabled: false, Mode: "detailed"})
	if err != nil {
		t.Fatalf("Setup() unexpected error: %v", err)
	}
	defer func() { _ = runtime.Shutdown(context.Background()) }()

	if Mode() != ModeOff {
		t.Fatalf("Mode() = %q, want off when telemetry is disabled", Mode())
	}
	if ShouldTraceDependencies() {
		t.Fatalf("ShouldTraceDependencies() = true, want false when off")
	}
}

func TestSetupDetailedEnablesDependencySpans(t *testing.T) {
	runtime, err := Setup(Config{Enabled: true, Mode: "detailed", ServiceName: "gitpulse-test"})
	if err != nil {
		t.Fatalf("Setup() unexpected error: %v", err)
	}
	defer func() { _ = runtime.Shutdown(context.Background()) }()

	if runtime.TracerProvider == nil {
		t.Fatalf("TracerProvider is nil")
	}
	if Mode() != ModeDetailed {
		t.Fatalf("Mode() = %q, want detailed", Mode())
	}
	if !ShouldTraceDependencies() {
		t.Fatalf("ShouldTraceDependencies() = false, want true in detailed mode")
	}
}
