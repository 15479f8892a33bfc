// Package mapper reads statement documents: MyBatis style XML mapper files
// and markdown query documents.
package mapper

import (
	"fmt"
	"strings"

	"github.com/x19-huhr/mybatis/xnode"
)

// StatementKind is the SQL command a statement issues.
type StatementKind string

const (
	KindSelect StatementKind = "select"
	KindInsert StatementKind = "insert"
	KindUpdate StatementKind = "update"
	KindDelete StatementKind = "delete"
)

// ParseStatementKind accepts the statement element names.
func ParseStatementKind(name string) (StatementKind, bool) {
	switch kind := StatementKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case KindSelect, KindInsert, KindUpdate, KindDelete:
		return kind, true
	default:
		return "", false
	}
}

// Statement is one named template. Element holds the template markup; its
// children are the script.
type Statement struct {
	Namespace     string
	ID            string
	Kind          StatementKind
	ParameterType string
	DatabaseID    string
	Element       *xnode.Element
	File          string

	// Markdown documents only
	Title        string
	Description  string
	SampleParams map[string]any
	TestCases    []TestCase
}

// FullID returns the namespace qualified id.
func (s *Statement) FullID() string {
	return Qualify(s.Namespace, s.ID)
}

// TestCase is an example render recorded in a markdown document.
type TestCase struct {
	Name          string         `yaml:"-"`
	Params        map[string]any `yaml:"params"`
	ExpectedSQL   string         `yaml:"sql"`
	ExpectedArgs  []any          `yaml:"args"`
	// ExpectedError names the error type the statement must fail with
	// when the case runs against a database.
	ExpectedError string         `yaml:"error"`
}

// Fragment is a reusable <sql> element.
type Fragment struct {
	Namespace string
	ID        string
	Element   *xnode.Element
	File      string
}

// FullID returns the namespace qualified id.
func (f *Fragment) FullID() string {
	return Qualify(f.Namespace, f.ID)
}

// Document is the content of one mapper file.
type Document struct {
	Namespace  string
	File       string
	Statements []*Statement
	Fragments  []*Fragment
}

// Qualify joins a namespace and an id.
func Qualify(namespace, id string) string {
	if namespace == "" || strings.HasPrefix(id, namespace+".") {
		return id
	}

	return namespace + "." + id
}

func (d *Document) addStatement(stmt *Statement) error {
	for _, existing := range d.Statements {
		if existing.ID == stmt.ID && existing.DatabaseID == stmt.DatabaseID {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateStatement, stmt.FullID(), d.File)
		}
	}

	d.Statements = append(d.Statements, stmt)

	return nil
}

func (d *Document) addFragment(frag *Fragment) error {
	for _, existing := range d.Fragments {
		if existing.ID == frag.ID {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateFragment, frag.FullID(), d.File)
		}
	}

	d.Fragments = append(d.Fragments, frag)

	return nil
}
