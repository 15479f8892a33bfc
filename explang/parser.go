package explang

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// ErrInvalidExpression indicates that a property path could not be parsed.
var ErrInvalidExpression = errors.New("explang: invalid property path")

// ParsePath parses a property path such as user.roles[0].name or
// attrs['first name'] into access steps. "?." and "?[" mark safe steps
// that yield nil instead of failing on a nil parent.
func ParsePath(expr string) ([]Step, error) {
	s := &pathScanner{src: []rune(expr)}

	s.skipSpaces()

	start := s.pos

	root, ok := s.identifier()
	if !ok {
		return nil, s.unexpected("identifier")
	}

	steps := []Step{{Kind: StepIdentifier, Identifier: root, Pos: s.span(start)}}

	for s.skipSpaces(); !s.done(); s.skipSpaces() {
		start := s.pos
		safe := s.accept('?')

		if safe {
			s.skipSpaces()
		}

		var (
			step Step
			err  error
		)

		switch {
		case s.accept('.'):
			step, err = s.member()
		case s.accept('['):
			step, err = s.index()
		case safe:
			return nil, fmt.Errorf("%w: '?' must be followed by '.' or '[' at position %d", ErrInvalidExpression, s.pos+1)
		default:
			return nil, s.unexpected("'.' or '['")
		}

		if err != nil {
			return nil, err
		}

		step.Safe = safe
		step.Pos = s.span(start)
		steps = append(steps, step)
	}

	return steps, nil
}

type pathScanner struct {
	src []rune
	pos int
}

func (s *pathScanner) done() bool {
	return s.pos >= len(s.src)
}

func (s *pathScanner) peek() rune {
	if s.done() {
		return 0
	}

	return s.src[s.pos]
}

func (s *pathScanner) accept(r rune) bool {
	if s.done() || s.src[s.pos] != r {
		return false
	}

	s.pos++

	return true
}

func (s *pathScanner) skipSpaces() {
	for !s.done() && unicode.IsSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *pathScanner) span(start int) Position {
	return Position{Offset: start, Length: s.pos - start}
}

func (s *pathScanner) unexpected(want string) error {
	if s.done() {
		return fmt.Errorf("%w: expected %s at end of path", ErrInvalidExpression, want)
	}

	return fmt.Errorf("%w: expected %s, found '%c' at position %d", ErrInvalidExpression, want, s.peek(), s.pos+1)
}

func (s *pathScanner) identifier() (string, bool) {
	r := s.peek()
	if r != '_' && !unicode.IsLetter(r) {
		return "", false
	}

	start := s.pos
	for !s.done() && (s.src[s.pos] == '_' || unicode.IsLetter(s.src[s.pos]) || unicode.IsDigit(s.src[s.pos])) {
		s.pos++
	}

	return string(s.src[start:s.pos]), true
}

func (s *pathScanner) member() (Step, error) {
	s.skipSpaces()

	name, ok := s.identifier()
	if !ok {
		return Step{}, s.unexpected("property name after '.'")
	}

	return Step{Kind: StepMember, Property: name}, nil
}

// index reads the inside of [...]: a number, a quoted key or a bare key.
func (s *pathScanner) index() (Step, error) {
	s.skipSpaces()

	var step Step

	switch r := s.peek(); {
	case r >= '0' && r <= '9':
		start := s.pos
		for !s.done() && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.pos++
		}

		n, err := strconv.Atoi(string(s.src[start:s.pos]))
		if err != nil {
			return Step{}, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
		}

		step = Step{Kind: StepIndex, Index: n}
	case r == '\'' || r == '"':
		s.pos++
		start := s.pos

		for !s.done() && s.src[s.pos] != r {
			s.pos++
		}

		if s.done() {
			return Step{}, fmt.Errorf("%w: unterminated key starting at position %d", ErrInvalidExpression, start)
		}

		step = Step{Kind: StepKey, Key: string(s.src[start:s.pos])}
		s.pos++
	default:
		key, ok := s.identifier()
		if !ok {
			return Step{}, s.unexpected("index or key after '['")
		}

		step = Step{Kind: StepKey, Key: key}
	}

	s.skipSpaces()

	if !s.accept(']') {
		return Step{}, s.unexpected("']'")
	}

	return step, nil
}
