package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(Config{})

	log := Component("train")
	log.Debug().Msg("hidden")
	log.Info().Int("ratings", 3).Msg("aggregated view events")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["component"] != "train" || entry["message"] != "aggregated view events" || entry["ratings"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_Level(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
	}{
		{level: "", debugOn: false},
		{level: "DEBUG", debugOn: true},
		{level: "bogus", debugOn: false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			Init(Config{Level: tt.level, Output: &buf})
			defer Init(Config{})

			l := Logger()
			l.Debug().Msg("d")
			if got := buf.Len() > 0; got != tt.debugOn {
				t.Errorf("debug written = %v, want %v", got, tt.debugOn)
			}
		})
	}
}
