package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/illusionfield/scssc/internal/logging"
)

func TestLevels(t *testing.T) {
	cases := []struct {
		note  string
		level logging.Level
		exp   []string
		unexp []string
	}{
		{
			note:  "info",
			level: logging.Info,
			exp:   []string{"info message", "warn message", "error message"},
			unexp: []string{"debug message"},
		},
		{
			note:  "error",
			level: logging.Error,
			exp:   []string{"error message"},
			unexp: []string{"debug message", "info message", "warn message"},
		},
		{
			note:  "debug",
			level: logging.Debug,
			exp:   []string{"debug message", "info message"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			var buf bytes.Buffer
			log := logging.NewLogger(logging.Config{Level: tc.level, Format: "json", Output: &buf})

			log.Debugf("debug %s", "message")
			log.Infof("info %s", "message")
			log.Warnf("warn %s", "message")
			log.Errorf("error %s", "message")

			out := buf.String()
			for _, s := range tc.exp {
				if !strings.Contains(out, s) {
					t.Errorf("expected %q in output:\n%s", s, out)
				}
			}
			for _, s := range tc.unexp {
				if strings.Contains(out, s) {
					t.Errorf("did not expect %q in output:\n%s", s, out)
				}
			}
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewLogger(logging.Config{Level: logging.Info, Format: "json", Output: &buf}).With("mount", "{ui}")
	log.Infof("opened")

	if !strings.Contains(buf.String(), `"mount":"{ui}"`) {
		t.Fatalf("expected field in output: %s", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	if s := logging.Warn.String(); s != "warn" {
		t.Fatalf("expected warn, got %s", s)
	}
	if s := logging.Level(42).String(); s != "level(42)" {
		t.Fatalf("expected level(42), got %s", s)
	}
}
