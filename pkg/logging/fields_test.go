package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"trace_id", WithTraceID("t-1"), FieldTraceID, "t-1"},
		{"event_id", WithEventID("PKT_RECV"), FieldEventID, "PKT_RECV"},
		{"src_ip", WithSrcIP("10.0.0.1"), FieldSrcIP, "10.0.0.1"},
		{"client", WithClient("nas-01"), FieldClient, "nas-01"},
		{"error", WithError(errors.New("boom")), FieldError, "boom"},
		{"errorなし", WithError(nil), FieldError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key: got %q, want %q", tt.attr.Key, tt.key)
			}
			if got := tt.attr.Value.String(); got != tt.want {
				t.Errorf("value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithNumericHelpers(t *testing.T) {
	if a := WithCode(1024 + 1); a.Key != FieldCode || a.Value.Uint64() != 1025 {
		t.Errorf("WithCode: got %v", a)
	}
	if a := WithPacketID(0x12345678); a.Key != FieldPacketID || a.Value.Uint64() != 0x12345678 {
		t.Errorf("WithPacketID: got %v", a)
	}
	if a := WithLatency(42); a.Key != FieldLatencyMs || a.Value.Int64() != 42 {
		t.Errorf("WithLatency: got %v", a)
	}
}
