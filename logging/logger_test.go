package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return m
}

func TestLoggerInjectsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Service: "rangetree", Module: "test", Level: "debug", Output: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	l.Named("workload").InfoContext(ctx, "job finished", "steps", 10)

	m := decodeLine(t, &buf)
	if m["trace_id"] != traceID.String() || m["span_id"] != spanID.String() {
		t.Errorf("trace context missing: %v", m)
	}
	if m["service"] != "rangetree" || m["component"] != "workload" {
		t.Errorf("service/component missing: %v", m)
	}
	if _, ok := m["timestamp"]; !ok {
		t.Errorf("time key should be renamed to timestamp: %v", m)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Service: "rangetree", Module: "test", Level: "info", Output: &buf})
	defer SetLevel("info")

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug log written at info level: %q", buf.String())
	}

	SetLevel("debug")
	l.Debug("visible")
	if buf.Len() == 0 {
		t.Errorf("debug log missing after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
