// Package document provides the read-only queryable tree over a
// serialized IR document. The converter navigates the tree by child
// name and attribute name only; it never mutates it.
package document

import (
	"fmt"

	"github.com/beevik/etree"
)

// Attr is one name/value attribute pair.
type Attr struct {
	Name  string
	Value string
}

// Element is one node of the document tree.
type Element struct {
	el *etree.Element
}

// Document is a parsed IR document.
type Document struct {
	root *Element
}

// Parse reads a serialized document from memory.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return &Document{root: &Element{el: root}}, nil
}

// ParseFile reads a serialized document from disk.
func ParseFile(path string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document %s has no root element", path)
	}
	return &Document{root: &Element{el: root}}, nil
}

// Root returns the document's root element.
func (d *Document) Root() *Element {
	return d.root
}

// Name returns the element's tag name.
func (e *Element) Name() string {
	return e.el.Tag
}

// Child returns the first child with the given name, or nil.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	c := e.el.SelectElement(name)
	if c == nil {
		return nil
	}
	return &Element{el: c}
}

// Children returns every child with the given name, in document order.
func (e *Element) Children(name string) []*Element {
	if e == nil {
		return nil
	}
	els := e.el.SelectElements(name)
	out := make([]*Element, len(els))
	for i, c := range els {
		out[i] = &Element{el: c}
	}
	return out
}

// Attr returns the named attribute's raw text and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	a := e.el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// Attrs returns every attribute on the element, in document order.
func (e *Element) Attrs() []Attr {
	if e == nil {
		return nil
	}
	out := make([]Attr, 0, len(e.el.Attr))
	for _, a := range e.el.Attr {
		out = append(out, Attr{Name: a.Key, Value: a.Value})
	}
	return out
}

// Text returns the element's character data.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.el.Text()
}
