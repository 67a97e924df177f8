package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		level LogLevel
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"Error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, ok := ParseLevel(tt.in)
			if level != tt.level || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.in, level, ok, tt.level, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(GetLevel())

	SetLevel(LevelWarn)
	Infof("Radar: hidden %d", 1)
	Warnf("Radar: shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "Radar: shown 2") {
		t.Errorf("warn message missing from output: %q", out)
	}

	buf.Reset()
	SetLevel(LevelDebug)
	Debugf("FFT: bin %d", 487)
	if !strings.Contains(buf.String(), "FFT: bin 487") {
		t.Errorf("debug message missing from output: %q", buf.String())
	}
}

func TestJSONOutputSplitsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetJSONOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(GetLevel())
	SetLevel(LevelInfo)

	Infof("Radar: mode %s", "spectral")
	Infof("no component here")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"component":"Radar"`) || !strings.Contains(lines[0], `"message":"mode spectral"`) {
		t.Errorf("component not split: %s", lines[0])
	}
	if strings.Contains(lines[1], `"component"`) {
		t.Errorf("unexpected component: %s", lines[1])
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		msg, component, text string
	}{
		{"FFT: bin 487", "FFT", "bin 487"},
		{"open failed: no device", "", "open failed: no device"},
		{": empty", "", ": empty"},
		{"plain", "", "plain"},
	}
	for _, tt := range tests {
		c, text := split(tt.msg)
		if c != tt.component || text != tt.text {
			t.Errorf("split(%q) = %q, %q; want %q, %q", tt.msg, c, text, tt.component, tt.text)
		}
	}
}
