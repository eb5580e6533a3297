package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbbreviateTypeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no dots", "Tracer", "Tracer"},
		{"single dot", "pkg.Tracer", "p.Tracer"},
		{"two dots", "LogPipe.Core.Tracer", "lP.c.Tracer"},
		{"lowercase segments", "a.b.c.d.Type", "a.b.c.d.Type"},
		{"digits kept", "My2Pkg.Sub.Type", "m2P.s.Type"},
		{"four dots", "aa.bb.cc.dd.Type", "a.b.c.dd.Type"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AbbreviateTypeName(tt.in))
		})
	}
}

func TestTextFormatterEntry(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	utc := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	f.BeginEntry(0)
	f.WriteTimestamp(utc)
	f.WriteField("INFO", ColorNone, 7)
	f.WriteAbbreviatedTypeName("svc.worker.Pool", ColorNone, 0)
	f.WriteField("pool drained", ColorNone, 0)
	f.EndEntry()

	out := buf.String()
	assert.Equal(t, "09:26:53.589793 INFO    s.w.Pool pool drained\n", out)
	assert.True(t, strings.HasSuffix(out, f.LineDelimiter()))
}

func TestTextFormatterIndentAndLines(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	f.BeginEntry(1)
	f.WriteField("ERROR", ColorNone, 0)
	f.WriteLines("first\nsecond", ColorNone, 1)
	f.EndEntry()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "  ERROR", lines[0])
	assert.Equal(t, "    first", lines[1])
	assert.Equal(t, "    second", lines[2])
}

func TestTextFormatterColor(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf).ColorEnabled(true)
	require.True(t, f.IsColorEnabled())

	f.BeginEntry(0)
	f.WriteField("WARN", ColorYellow, 0)
	f.EndEntry()

	assert.Equal(t, "\x1b[33mWARN\x1b[0m\n", buf.String())

	// Colors are omitted when disabled
	buf.Reset()
	f.ColorEnabled(false)
	f.BeginEntry(0)
	f.WriteField("WARN", ColorYellow, 0)
	f.EndEntry()
	assert.Equal(t, "WARN\n", buf.String())
}

func TestTextFormatterDate(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	utc := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.BeginEntry(0)
	f.WriteDate(utc)
	f.EndEntry()

	assert.Equal(t, "2026-03-14\n", buf.String())
}

func TestTextFormatterPairedEntries(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	// EndEntry without BeginEntry is a no-op
	f.EndEntry()
	assert.Zero(t, buf.Len())

	// Sequential entries each flush independently
	for range 3 {
		f.BeginEntry(0)
		f.WriteField("entry", ColorNone, 0)
		f.EndEntry()
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestTextFormatterSanitizesControlChars(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	f.BeginEntry(0)
	f.WriteField("bad\x00field\x1b[31m", ColorNone, 0)
	f.EndEntry()

	out := buf.String()
	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "\x1b")
}
