package surface

// Op is the kind of a patch.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

const textKey = "#text"

// Patch describes one element change since the previous flush. Create
// patches carry every attribute; update patches only the changed ones.
type Patch struct {
	Op     Op                `json:"op"`
	ID     string            `json:"id"`
	Parent string            `json:"parent,omitempty"`
	Tag    string            `json:"tag,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Text   *string           `json:"text,omitempty"`
}

type change struct {
	id    string
	op    Op
	attrs map[string]bool
	dead  bool
}

func (s *Surface) record(id string, op Op) {
	prev := s.pending[id]
	if op == OpRemove && prev != nil {
		switch prev.op {
		case OpCreate:
			// Never seen by the client.
			prev.dead = true
			delete(s.pending, id)
			return
		case OpUpdate:
			prev.op = OpRemove
			prev.attrs = nil
			return
		}
	}
	c := &change{id: id, op: op}
	s.pending[id] = c
	s.queue = append(s.queue, c)
}

// touch marks an attribute (or the text) of id as changed.
func (s *Surface) touch(id, name string) {
	c := s.pending[id]
	if c == nil || c.op == OpRemove {
		c = &change{id: id, op: OpUpdate}
		s.pending[id] = c
		s.queue = append(s.queue, c)
	}
	if c.op == OpUpdate {
		if c.attrs == nil {
			c.attrs = make(map[string]bool)
		}
		c.attrs[name] = true
	}
}

// forget drops pending changes of a descendant of a removed element; the
// client removes it along with its ancestor.
func (s *Surface) forget(id string) {
	if c := s.pending[id]; c != nil {
		c.dead = true
		delete(s.pending, id)
	}
}

// Pending reports whether there are unflushed changes.
func (s *Surface) Pending() bool { return len(s.pending) > 0 }

// Flush returns the changes since the previous flush, one patch per
// element, parents created before their children.
func (s *Surface) Flush() []Patch {
	var out []Patch
	for _, c := range s.queue {
		if c.dead {
			continue
		}
		switch c.op {
		case OpRemove:
			out = append(out, Patch{Op: OpRemove, ID: c.id})
		case OpCreate:
			e, ok := s.elements[c.id]
			if !ok {
				continue
			}
			p := Patch{Op: OpCreate, ID: e.ID, Parent: e.Parent, Tag: e.Tag, Attrs: e.Attrs()}
			if e.text != "" {
				text := e.text
				p.Text = &text
			}
			out = append(out, p)
		case OpUpdate:
			e, ok := s.elements[c.id]
			if !ok {
				continue
			}
			p := Patch{Op: OpUpdate, ID: e.ID}
			for name := range c.attrs {
				if name == textKey {
					text := e.text
					p.Text = &text
					continue
				}
				if p.Attrs == nil {
					p.Attrs = make(map[string]string, len(c.attrs))
				}
				p.Attrs[name] = e.attrs[name]
			}
			out = append(out, p)
		}
	}
	s.Discard()
	return out
}

// Discard drops unflushed changes, for instance after the client received a
// full snapshot.
func (s *Surface) Discard() {
	s.queue = nil
	s.pending = make(map[string]*change)
}
