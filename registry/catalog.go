package registry

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/x19-huhr/mybatis/mapper"
	"github.com/x19-huhr/mybatis/scripting"
	"github.com/x19-huhr/mybatis/xnode"
)

// catalog is one generation of loaded statements and the artifacts built
// from them. Reload replaces the whole catalog.
type catalog struct {
	generation uint64

	mu         sync.Mutex
	statements map[string][]*mapper.Statement
	fragments  map[string]*mapper.Fragment
	built      map[*mapper.Statement]scripting.SQLSource
	incomplete map[*mapper.Statement]error
}

func newCatalog(generation uint64) *catalog {
	return &catalog{
		generation: generation,
		statements: make(map[string][]*mapper.Statement),
		fragments:  make(map[string]*mapper.Fragment),
		built:      make(map[*mapper.Statement]scripting.SQLSource),
		incomplete: make(map[*mapper.Statement]error),
	}
}

// add registers the statements and fragments of doc. Nothing is added when
// any of them collides with an existing entry.
func (c *catalog) add(doc *mapper.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range doc.Statements {
		for _, existing := range c.statements[stmt.FullID()] {
			if existing.DatabaseID == stmt.DatabaseID {
				return fmt.Errorf("%w: %s in %s and %s", ErrDuplicateStatement, stmt.FullID(), existing.File, stmt.File)
			}
		}
	}

	for _, frag := range doc.Fragments {
		if existing, ok := c.fragments[frag.FullID()]; ok {
			return fmt.Errorf("%w: %s in %s and %s", mapper.ErrDuplicateFragment, frag.FullID(), existing.File, frag.File)
		}
	}

	for _, stmt := range doc.Statements {
		c.statements[stmt.FullID()] = append(c.statements[stmt.FullID()], stmt)
	}

	for _, frag := range doc.Fragments {
		c.fragments[frag.FullID()] = frag
	}

	return nil
}

// lookup finds the statement for id. An id without a namespace matches a
// unique statement in any namespace. Statements declared for databaseID
// win over ones declared for every database.
func (c *catalog) lookup(id, databaseID string) (*mapper.Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	variants, ok := c.statements[id]
	if !ok && !strings.Contains(id, ".") {
		var matches []string

		for fullID := range c.statements {
			if strings.HasSuffix(fullID, "."+id) {
				matches = append(matches, fullID)
			}
		}

		switch len(matches) {
		case 0:
		case 1:
			variants = c.statements[matches[0]]
		default:
			slices.Sort(matches)
			return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguousStatement, id, strings.Join(matches, ", "))
		}
	}

	var fallback *mapper.Statement

	for _, stmt := range variants {
		switch stmt.DatabaseID {
		case databaseID:
			if databaseID != "" {
				return stmt, nil
			}

			fallback = stmt
		case "":
			fallback = stmt
		}
	}

	if fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrStatementNotFound, id)
	}

	return fallback, nil
}

func (c *catalog) source(stmt *mapper.Statement) (scripting.SQLSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, ok := c.built[stmt]

	return src, ok
}

func (c *catalog) store(stmt *mapper.Statement, src scripting.SQLSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.built[stmt] = src
	delete(c.incomplete, stmt)
}

func (c *catalog) markIncomplete(stmt *mapper.Statement, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.incomplete[stmt] = err
}

func (c *catalog) incompleteStatements() []*mapper.Statement {
	c.mu.Lock()
	defer c.mu.Unlock()

	return sortStatements(slices.Collect(maps.Keys(c.incomplete)))
}

func (c *catalog) incompleteErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make([]error, 0, len(c.incomplete))
	for _, stmt := range sortStatements(slices.Collect(maps.Keys(c.incomplete))) {
		errs = append(errs, c.incomplete[stmt])
	}

	return errs
}

func (c *catalog) all() []*mapper.Statement {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []*mapper.Statement
	for _, variants := range c.statements {
		result = append(result, variants...)
	}

	return sortStatements(result)
}

// resolver resolves include refids relative to namespace first.
func (c *catalog) resolver(namespace string) scripting.IncludeResolver {
	return func(refid string) (*xnode.Element, bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if frag, ok := c.fragments[mapper.Qualify(namespace, refid)]; ok {
			return frag.Element, true
		}

		if frag, ok := c.fragments[refid]; ok {
			return frag.Element, true
		}

		return nil, false
	}
}

func sortStatements(stmts []*mapper.Statement) []*mapper.Statement {
	slices.SortFunc(stmts, func(a, b *mapper.Statement) int {
		if c := strings.Compare(a.FullID(), b.FullID()); c != 0 {
			return c
		}

		return strings.Compare(a.DatabaseID, b.DatabaseID)
	})

	return stmts
}
