// Package formatter defines the formatting contract used by text sinks
// and a default implementation writing to an io.Writer.
package formatter

import (
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/lixenwraith/trace/sanitizer"
)

// Color identifies a rendering color for formatters that support it.
type Color int

const (
	ColorNone Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorGray
)

// ansiCode maps colors to SGR codes; ColorNone maps to empty.
var ansiCode = map[Color]string{
	ColorBlack:   "30",
	ColorRed:     "31",
	ColorGreen:   "32",
	ColorYellow:  "33",
	ColorBlue:    "34",
	ColorMagenta: "35",
	ColorCyan:    "36",
	ColorWhite:   "37",
	ColorGray:    "90",
}

// Formatter renders one entry at a time. BeginEntry and EndEntry must be
// paired; at most one entry is in flight per formatter, enforced by the
// synchronization layer upstream.
type Formatter interface {
	BeginEntry(indentLevel int)
	EndEntry()
	WriteField(text string, color Color, padWidth int)
	WriteLines(text string, color Color, indent int)
	WriteTimestamp(utc time.Time)
	WriteDate(utc time.Time)
	WriteAbbreviatedTypeName(name string, color Color, padWidth int)
	LineDelimiter() string
	IsColorEnabled() bool
}

const indentWidth = 2

// TextFormatter renders entries as delimited text lines on an io.Writer.
type TextFormatter struct {
	w   io.Writer
	san *sanitizer.Sanitizer
	buf []byte

	colorEnabled    bool
	timestampFormat string
	dateFormat      string
	delimiter       string

	inEntry     bool
	entryIndent int
	fieldCount  int
}

// NewTextFormatter creates a formatter writing to w.
func NewTextFormatter(w io.Writer, s ...*sanitizer.Sanitizer) *TextFormatter {
	var san *sanitizer.Sanitizer
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	} else {
		san = sanitizer.New()
	}
	return &TextFormatter{
		w:               w,
		san:             san,
		buf:             make([]byte, 0, 1024),
		timestampFormat: "15:04:05.000000",
		dateFormat:      "2006-01-02",
		delimiter:       "\n",
	}
}

// ColorEnabled turns ANSI color rendering on or off.
func (f *TextFormatter) ColorEnabled(enable bool) *TextFormatter {
	f.colorEnabled = enable
	return f
}

// TimestampFormat sets the layout used by WriteTimestamp.
func (f *TextFormatter) TimestampFormat(layout string) *TextFormatter {
	if layout != "" {
		f.timestampFormat = layout
	}
	return f
}

// BeginEntry opens a new entry at the given indent level.
func (f *TextFormatter) BeginEntry(indentLevel int) {
	f.inEntry = true
	f.entryIndent = indentLevel
	f.fieldCount = 0
	f.buf = f.buf[:0]
	for range indentLevel * indentWidth {
		f.buf = append(f.buf, ' ')
	}
}

// EndEntry closes the entry and writes it out with the line delimiter.
func (f *TextFormatter) EndEntry() {
	if !f.inEntry {
		return
	}
	f.inEntry = false
	f.buf = append(f.buf, f.delimiter...)
	_, _ = f.w.Write(f.buf)
	f.buf = f.buf[:0]
}

// WriteField appends one space-separated field, padded to padWidth.
func (f *TextFormatter) WriteField(text string, color Color, padWidth int) {
	if f.fieldCount > 0 {
		f.buf = append(f.buf, ' ')
	}
	f.fieldCount++
	f.writeColored(f.san.CleanLine(text), color, padWidth)
}

// WriteLines appends text as separate indented lines within the entry.
func (f *TextFormatter) WriteLines(text string, color Color, indent int) {
	for _, line := range strings.Split(f.san.Clean(text), "\n") {
		f.buf = append(f.buf, f.delimiter...)
		for range (f.entryIndent + indent) * indentWidth {
			f.buf = append(f.buf, ' ')
		}
		f.writeColored(strings.TrimRight(line, "\r"), color, 0)
	}
}

// WriteTimestamp appends the time of day in UTC.
func (f *TextFormatter) WriteTimestamp(utc time.Time) {
	if f.fieldCount > 0 {
		f.buf = append(f.buf, ' ')
	}
	f.fieldCount++
	f.buf = utc.UTC().AppendFormat(f.buf, f.timestampFormat)
}

// WriteDate appends the calendar date in UTC.
func (f *TextFormatter) WriteDate(utc time.Time) {
	if f.fieldCount > 0 {
		f.buf = append(f.buf, ' ')
	}
	f.fieldCount++
	f.buf = utc.UTC().AppendFormat(f.buf, f.dateFormat)
}

// WriteAbbreviatedTypeName appends a shortened dotted type name.
func (f *TextFormatter) WriteAbbreviatedTypeName(name string, color Color, padWidth int) {
	if f.fieldCount > 0 {
		f.buf = append(f.buf, ' ')
	}
	f.fieldCount++
	f.writeColored(AbbreviateTypeName(name), color, padWidth)
}

// LineDelimiter returns the delimiter appended after each entry.
func (f *TextFormatter) LineDelimiter() string {
	return f.delimiter
}

// IsColorEnabled reports whether ANSI colors are rendered.
func (f *TextFormatter) IsColorEnabled() bool {
	return f.colorEnabled
}

func (f *TextFormatter) writeColored(text string, color Color, padWidth int) {
	code, useColor := "", false
	if f.colorEnabled && color != ColorNone {
		code, useColor = ansiCode[color], true
	}
	if useColor {
		f.buf = append(f.buf, "\x1b["...)
		f.buf = append(f.buf, code...)
		f.buf = append(f.buf, 'm')
	}
	f.buf = append(f.buf, text...)
	if useColor {
		f.buf = append(f.buf, "\x1b[0m"...)
	}
	for i := len(text); i < padWidth; i++ {
		f.buf = append(f.buf, ' ')
	}
}

// AbbreviateTypeName shortens a dotted type name: the first dots/2+1
// segments are reduced to their first character (lower-cased) plus any
// non-lowercase characters of the segment. The remaining segments are
// kept verbatim.
func AbbreviateTypeName(name string) string {
	segments := strings.Split(name, ".")
	dots := len(segments) - 1
	if dots <= 0 {
		return name
	}

	shorten := dots/2 + 1
	if shorten > dots {
		shorten = dots // Never abbreviate the final segment
	}

	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('.')
		}
		if i < shorten {
			b.WriteString(abbreviateSegment(seg))
		} else {
			b.WriteString(seg)
		}
	}
	return b.String()
}

func abbreviateSegment(seg string) string {
	if seg == "" {
		return seg
	}
	runes := []rune(seg)
	var b strings.Builder
	b.WriteRune(unicode.ToLower(runes[0]))
	for _, r := range runes[1:] {
		if !unicode.IsLower(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
