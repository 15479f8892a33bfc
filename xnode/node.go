// Package xnode holds the generic ordered markup tree consumed by the
// template builder, and reads it from XML.
package xnode

import (
	"sort"
	"strings"
)

// Node is either *Element or *Text.
type Node interface {
	xnode()
}

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a named node with attributes and ordered children.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// Text is character data. CDATA marks text read from a CDATA section.
type Text struct {
	Data  string
	CDATA bool
}

func (*Element) xnode() {}
func (*Text) xnode()    {}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// StringAttr returns the named attribute or def when it is absent.
func (e *Element) StringAttr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}

	return def
}

// ChildElements returns the element children in order.
func (e *Element) ChildElements() []*Element {
	var result []*Element

	for _, child := range e.Children {
		if el, ok := child.(*Element); ok {
			result = append(result, el)
		}
	}

	return result
}

// InnerText concatenates all descendant text.
func (e *Element) InnerText() string {
	var b strings.Builder

	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Text:
			b.WriteString(v.Data)
		case *Element:
			for _, child := range v.Children {
				walk(child)
			}
		}
	}
	walk(e)

	return b.String()
}

// El builds an element. Attributes are stored sorted by name.
func El(name string, attrs map[string]string, children ...Node) *Element {
	el := &Element{Name: name, Children: children}

	for k, v := range attrs {
		el.Attrs = append(el.Attrs, Attr{Name: k, Value: v})
	}

	sort.Slice(el.Attrs, func(i, j int) bool { return el.Attrs[i].Name < el.Attrs[j].Name })

	return el
}

// T builds a text node.
func T(data string) *Text {
	return &Text{Data: data}
}
