/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitTracerDisabledIsNoop(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("init disabled tracer: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown noop provider: %v", err)
	}
}

func TestAddSpanAttributesHandlesMixedTypes(t *testing.T) {
	if _, err := InitTracer(context.Background(), TracerConfig{Enabled: false}, zerolog.Nop()); err != nil {
		t.Fatalf("init tracer: %v", err)
	}

	_, span := StartSpan(context.Background(), "test", "tick")
	defer span.End()

	// Every supported type plus one unsupported; none may panic.
	AddSpanAttributes(span, map[string]any{
		"sequence.length":   3,
		"schedule.skipped":  int64(1),
		"transport.playing": true,
		"compute.seconds":   0.004,
		"item.id":           "abc",
		"ignored":           struct{}{},
	})
}
