package mapper

import (
	"fmt"
	"io"
	"strings"

	"github.com/x19-huhr/mybatis/xnode"
)

// Elements of a mapper file that configure result mapping and caching.
// They are accepted and ignored.
var ignoredElements = map[string]bool{
	"resultMap":    true,
	"parameterMap": true,
	"cache":        true,
	"cache-ref":    true,
}

// ParseXML reads a <mapper> document.
func ParseXML(r io.Reader, file string) (*Document, error) {
	root, err := xnode.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	if root.Name != "mapper" {
		return nil, fmt.Errorf("%w: %s has <%s>", ErrNotMapper, file, root.Name)
	}

	doc := &Document{
		Namespace: strings.TrimSpace(root.StringAttr("namespace", "")),
		File:      file,
	}

	for _, el := range root.ChildElements() {
		if ignoredElements[el.Name] {
			continue
		}

		id := strings.TrimSpace(el.StringAttr("id", ""))
		if id == "" {
			return nil, fmt.Errorf("%w: <%s> requires \"id\" in %s", ErrMissingAttribute, el.Name, file)
		}

		if el.Name == "sql" {
			frag := &Fragment{Namespace: doc.Namespace, ID: id, Element: el, File: file}
			if err := doc.addFragment(frag); err != nil {
				return nil, err
			}

			continue
		}

		kind, ok := ParseStatementKind(el.Name)
		if !ok {
			return nil, fmt.Errorf("%w: <%s> in %s", ErrUnknownElement, el.Name, file)
		}

		stmt := &Statement{
			Namespace:     doc.Namespace,
			ID:            id,
			Kind:          kind,
			ParameterType: strings.TrimSpace(el.StringAttr("parameterType", "")),
			DatabaseID:    strings.TrimSpace(el.StringAttr("databaseId", "")),
			Element:       el,
			File:          file,
		}

		if err := doc.addStatement(stmt); err != nil {
			return nil, err
		}
	}

	return doc, nil
}
