package xnode

import (
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// ErrEmptyDocument indicates an XML document without a root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// Parse reads an XML document and returns its root element. Comments,
// processing instructions and directives such as DOCTYPE are dropped.
func Parse(r io.Reader) (*Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	return fromDocument(doc)
}

// ParseString is Parse for in-memory documents.
func ParseString(s string) (*Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true

	if err := doc.ReadFromString(s); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	return fromDocument(doc)
}

func fromDocument(doc *etree.Document) (*Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDocument
	}

	return convertElement(root), nil
}

func convertElement(src *etree.Element) *Element {
	el := &Element{Name: src.Tag}

	for _, a := range src.Attr {
		name := a.Key
		if a.Space != "" {
			name = a.Space + ":" + a.Key
		}

		el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Value})
	}

	for _, token := range src.Child {
		switch t := token.(type) {
		case *etree.Element:
			el.Children = append(el.Children, convertElement(t))
		case *etree.CharData:
			el.Children = append(el.Children, &Text{Data: t.Data, CDATA: t.IsCData()})
		}
	}

	return el
}
