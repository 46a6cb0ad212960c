package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)

	out := buf.String()
	if !strings.Contains(out, "kritactl version") {
		t.Errorf("missing version line:\n%s", out)
	}
	if !strings.Contains(out, "Go version:") {
		t.Errorf("missing Go version line:\n%s", out)
	}
	if !strings.Contains(out, "OS/Arch:") {
		t.Errorf("missing platform line:\n%s", out)
	}
}
