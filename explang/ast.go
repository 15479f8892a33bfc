package explang

import (
	"strconv"
	"strings"
)

// Position is the rune span of a step within the parsed path.
type Position struct {
	Offset int
	Length int
}

// StepKind indicates what kind of access a Step performs.
type StepKind int

const (
	StepIdentifier StepKind = iota
	StepMember
	StepIndex
	StepKey
)

// Step is one flattened access step: root identifier, member, index or map key.
type Step struct {
	Kind       StepKind
	Identifier string
	Property   string
	Index      int
	Key        string
	Safe       bool
	Pos        Position
}

// FormatSteps renders steps back into path syntax, e.g. users[0].name.
func FormatSteps(steps []Step) string {
	var b strings.Builder

	for _, step := range steps {
		if step.Safe {
			b.WriteByte('?')
		}

		switch step.Kind {
		case StepIdentifier:
			b.WriteString(step.Identifier)
		case StepMember:
			b.WriteByte('.')
			b.WriteString(step.Property)
		case StepIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(step.Index))
			b.WriteByte(']')
		case StepKey:
			b.WriteByte('[')
			b.WriteString(strconv.Quote(step.Key))
			b.WriteByte(']')
		}
	}

	return b.String()
}
