// Package surface is the globe's drawing surface: an in-memory SVG element
// tree that records which elements changed since the last flush, so a
// redraw can be shipped to the browser as a list of patches.
package surface

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Root is the parent ID of top-level elements.
const Root = ""

var (
	// ErrDuplicateID is returned when appending an element whose ID exists.
	ErrDuplicateID = errors.New("element id already in use")
	// ErrParentNotFound is returned when appending under a missing parent.
	ErrParentNotFound = errors.New("parent element not found")
)

// Element is one SVG node. Attribute writes that do not change the value
// are not recorded as changes.
type Element struct {
	ID       string
	Tag      string
	Parent   string
	attrs    map[string]string
	order    []string
	text     string
	children []string
	surface  *Surface
}

// Set writes an attribute and returns the element for chaining.
func (e *Element) Set(name, value string) *Element {
	old, ok := e.attrs[name]
	if ok && old == value {
		return e
	}
	if !ok {
		e.order = append(e.order, name)
	}
	e.attrs[name] = value
	e.surface.touch(e.ID, name)
	return e
}

// SetFloat writes a numeric attribute rounded to three decimals.
func (e *Element) SetFloat(name string, v float64) *Element {
	return e.Set(name, FormatFloat(v))
}

// SetText replaces the element's text content.
func (e *Element) SetText(text string) *Element {
	if e.text == text {
		return e
	}
	e.text = text
	e.surface.touch(e.ID, textKey)
	return e
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Text returns the element's text content.
func (e *Element) Text() string { return e.text }

// Attrs returns a copy of the attributes.
func (e *Element) Attrs() map[string]string {
	out := make(map[string]string, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	return out
}

// Surface is a tree of elements of a fixed size. It is not safe for
// concurrent use.
type Surface struct {
	Width    float64
	Height   float64
	elements map[string]*Element
	root     []string
	pending  map[string]*change
	queue    []*change
}

// New creates an empty surface.
func New(width, height float64) *Surface {
	return &Surface{
		Width:    width,
		Height:   height,
		elements: make(map[string]*Element),
		pending:  make(map[string]*change),
	}
}

// Append adds a new element as the last child of parent.
func (s *Surface) Append(parent, tag, id string) (*Element, error) {
	if _, ok := s.elements[id]; ok || id == Root {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if parent != Root {
		p, ok := s.elements[parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrParentNotFound, parent)
		}
		p.children = append(p.children, id)
	} else {
		s.root = append(s.root, id)
	}

	e := &Element{
		ID:      id,
		Tag:     tag,
		Parent:  parent,
		attrs:   make(map[string]string),
		surface: s,
	}
	s.elements[id] = e
	s.record(id, OpCreate)
	return e, nil
}

// MustAppend is Append for static layers whose IDs are known to be unique.
func (s *Surface) MustAppend(parent, tag, id string) *Element {
	e, err := s.Append(parent, tag, id)
	if err != nil {
		panic(err)
	}
	return e
}

// Get looks up an element by ID.
func (s *Surface) Get(id string) (*Element, bool) {
	e, ok := s.elements[id]
	return e, ok
}

// Children returns the IDs of parent's children in document order.
func (s *Surface) Children(parent string) []string {
	if parent == Root {
		return append([]string(nil), s.root...)
	}
	if p, ok := s.elements[parent]; ok {
		return append([]string(nil), p.children...)
	}
	return nil
}

// Len returns the number of elements.
func (s *Surface) Len() int { return len(s.elements) }

// Remove deletes an element and its descendants. It reports whether the
// element existed.
func (s *Surface) Remove(id string) bool {
	e, ok := s.elements[id]
	if !ok {
		return false
	}
	if e.Parent == Root {
		s.root = without(s.root, id)
	} else if p, ok := s.elements[e.Parent]; ok {
		p.children = without(p.children, id)
	}
	s.drop(e)
	s.record(id, OpRemove)
	return true
}

func (s *Surface) drop(e *Element) {
	for _, c := range e.children {
		if child, ok := s.elements[c]; ok {
			s.drop(child)
		}
		s.forget(c)
	}
	delete(s.elements, e.ID)
}

// Clear removes every element.
func (s *Surface) Clear() {
	for _, id := range s.Children(Root) {
		s.Remove(id)
	}
}

// Join binds keys to the children of parent that carry class. Elements are
// created for new keys, update is called for every key, and elements whose
// key is gone are removed. Element IDs are class + "-" + key.
func (s *Surface) Join(parent, class, tag string, keys []string, update func(e *Element, i int)) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[class+"-"+k] = true
	}
	for _, id := range s.Children(parent) {
		e := s.elements[id]
		if c, _ := e.Attr("class"); c == class && !want[id] {
			s.Remove(id)
		}
	}

	for i, k := range keys {
		id := class + "-" + k
		e, ok := s.elements[id]
		if !ok {
			var err error
			e, err = s.Append(parent, tag, id)
			if err != nil {
				return err
			}
			e.Set("class", class)
		}
		update(e, i)
	}
	return nil
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// FormatFloat renders a coordinate with at most three decimals.
func FormatFloat(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
