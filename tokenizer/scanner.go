package tokenizer

import (
	"iter"
	"strings"
)

// Handler receives the content between an open and close delimiter and returns
// the replacement text for the whole delimited span.
type Handler func(content string) string

// SegmentKind describes what a Segment holds.
type SegmentKind int

const (
	// SegmentLiteral is plain text copied to the output.
	SegmentLiteral SegmentKind = iota
	// SegmentToken is the content of a delimited token, without delimiters.
	SegmentToken
	// SegmentEscaped is an escaped open delimiter, emitted without its backslash.
	SegmentEscaped
	// SegmentUnterminated is the tail of the input starting at an open delimiter
	// that has no matching close delimiter.
	SegmentUnterminated
)

// Segment is one piece of scanned input.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Offset int // byte offset of the segment in the input
}

// Scanner finds tokens bounded by an open/close delimiter pair.
// A backslash immediately before the open delimiter escapes it.
// Tokens do not nest: the first close delimiter ends the token.
type Scanner struct {
	Open  string
	Close string
}

// NewScanner creates a Scanner for the given delimiters.
func NewScanner(open, close string) Scanner {
	return Scanner{Open: open, Close: close}
}

// Segments returns an iterator over the literal, token and escaped pieces of text.
func (s Scanner) Segments(text string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if text == "" || s.Open == "" || s.Close == "" {
			if text != "" {
				yield(Segment{Kind: SegmentLiteral, Text: text})
			}

			return
		}

		offset := 0
		// literalStart marks where the pending literal run begins
		literalStart := 0

		flush := func(end int) bool {
			if end > literalStart {
				if !yield(Segment{Kind: SegmentLiteral, Text: text[literalStart:end], Offset: literalStart}) {
					return false
				}
			}

			return true
		}

		for {
			rel := strings.Index(text[offset:], s.Open)
			if rel < 0 {
				break
			}

			start := offset + rel

			if start > 0 && text[start-1] == '\\' {
				if !flush(start - 1) {
					return
				}

				if !yield(Segment{Kind: SegmentEscaped, Text: s.Open, Offset: start - 1}) {
					return
				}

				offset = start + len(s.Open)
				literalStart = offset

				continue
			}

			contentStart := start + len(s.Open)

			end := strings.Index(text[contentStart:], s.Close)
			if end < 0 {
				if !flush(start) {
					return
				}

				yield(Segment{Kind: SegmentUnterminated, Text: text[start:], Offset: start})

				return
			}

			end += contentStart

			if !flush(start) {
				return
			}

			if !yield(Segment{Kind: SegmentToken, Text: text[contentStart:end], Offset: start}) {
				return
			}

			offset = end + len(s.Close)
			literalStart = offset
		}

		flush(len(text))
	}
}

// Scan replaces every token in text with the handler's return value.
func (s Scanner) Scan(text string, handler Handler) string {
	if !strings.Contains(text, s.Open) {
		return text
	}

	var builder strings.Builder

	builder.Grow(len(text))

	for seg := range s.Segments(text) {
		switch seg.Kind {
		case SegmentToken:
			builder.WriteString(handler(seg.Text))
		default:
			builder.WriteString(seg.Text)
		}
	}

	return builder.String()
}

// HasToken reports whether scanning text would invoke a handler at least once.
func (s Scanner) HasToken(text string) bool {
	for seg := range s.Segments(text) {
		if seg.Kind == SegmentToken {
			return true
		}
	}

	return false
}

// Scan is a convenience wrapper around Scanner.Scan.
func Scan(text, open, close string, handler Handler) string {
	return NewScanner(open, close).Scan(text, handler)
}

// HasToken is a convenience wrapper around Scanner.HasToken.
func HasToken(text, open, close string) bool {
	return NewScanner(open, close).HasToken(text)
}
