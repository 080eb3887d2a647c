package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Context:      "unknown model type",
		Problem:      "usr",
		Detail:       "no such model",
		Suggestions:  []string{"user", "users"},
		HelpCommands: []string{"See declared models: halctl models"},
		NoColor:      true,
	})

	for _, want := range []string{
		"✗ UNKNOWN MODEL TYPE: usr\n",
		"   no such model\n",
		"   Did you mean: user, users?\n",
		"   → See declared models: halctl models\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatErrorLevels(t *testing.T) {
	warning := Warning("served from cache", true)
	if !strings.HasPrefix(warning, "! served from cache") {
		t.Errorf("unexpected warning %q", warning)
	}

	info := FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: "hello", NoColor: true})
	if info != "i hello\n" {
		t.Errorf("unexpected info %q", info)
	}
}

func TestDomainErrors(t *testing.T) {
	if out := UnknownModelError("usr", []string{"user"}, true); !strings.Contains(out, "Did you mean: user?") {
		t.Errorf("unexpected output %q", out)
	}
	if out := RequestError("GET http://x/: 500", true); !strings.Contains(out, "REQUEST FAILED: GET http://x/: 500") {
		t.Errorf("unexpected output %q", out)
	}
	if out := ConfigError("strategy: unknown", true); !strings.Contains(out, "CONFIGURATION ERROR") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestWriteHelpers(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Problem: "boom", NoColor: true})
	WriteSuccess(&buf, "cache cleared", true)

	if buf.String() != "✗ boom\n✓ cache cleared\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
