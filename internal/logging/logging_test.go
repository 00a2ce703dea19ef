package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitWriter_JSON(t *testing.T) {
	t.Cleanup(func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	var buf bytes.Buffer
	if err := InitWriter(&buf, "info", "json"); err != nil {
		t.Fatalf("InitWriter() error = %v, want nil", err)
	}

	logger := WithComponent("engine")
	logger.Info().Str("rule_id", "storm").Msg("dispatched")
	logger.Debug().Msg("filtered out")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a single JSON line: %q", buf.String())
	}
	if line["component"] != "engine" || line["rule_id"] != "storm" || line["message"] != "dispatched" {
		t.Errorf("log line = %v", line)
	}
}

func TestInitWriter_Invalid(t *testing.T) {
	t.Cleanup(func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	tests := []struct {
		name, level, format string
	}{
		{"bad level", "loud", "json"},
		{"bad format", "info", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitWriter(&bytes.Buffer{}, tt.level, tt.format); err == nil {
				t.Errorf("InitWriter(%q, %q) error = nil, want error", tt.level, tt.format)
			}
		})
	}
}
