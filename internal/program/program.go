package program

import (
	"encoding/json"
	"fmt"
)

// Program is an immutable, indexed set of nodes plus the ordered root group.
// The runtime resolves NodeIDs through it; it never walks the tree eagerly.
type Program struct {
	nodes map[NodeID]*Node
	order []NodeID // Declaration order, preserved for deterministic iteration
	roots []NodeID
}

// New builds a Program from a node list and the root id group.
//
// Validation is structural only: unique ids, root and child references must
// resolve. Semantic validation (fragment combinations) is the compiler's
// concern - unmatched shapes surface as compilation failures at execution
// time, which the caller may recover from.
func New(nodes []Node, roots []NodeID) (*Program, error) {
	p := &Program{
		nodes: make(map[NodeID]*Node, len(nodes)),
		order: make([]NodeID, 0, len(nodes)),
		roots: append([]NodeID(nil), roots...),
	}

	for i := range nodes {
		n := nodes[i]
		if n.ID == "" {
			return nil, fmt.Errorf("node at index %d has empty id", i)
		}
		if _, dup := p.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		p.nodes[n.ID] = &n
		p.order = append(p.order, n.ID)
	}

	for _, id := range roots {
		if _, ok := p.nodes[id]; !ok {
			return nil, fmt.Errorf("root references unknown node %q", id)
		}
	}
	for _, id := range p.order {
		for gi, group := range p.nodes[id].Children {
			for _, child := range group {
				if _, ok := p.nodes[child]; !ok {
					return nil, fmt.Errorf("node %q child group %d references unknown node %q", id, gi, child)
				}
			}
		}
	}

	return p, nil
}

// Node returns the node for id, or an error if it does not exist.
func (p *Program) Node(id NodeID) (*Node, error) {
	n, ok := p.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node id %q", id)
	}
	return n, nil
}

// Resolve maps a group of ids to their nodes, preserving order.
func (p *Program) Resolve(ids []NodeID) ([]*Node, error) {
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		n, err := p.Node(id)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

// Roots returns the ordered root node-id group.
func (p *Program) Roots() []NodeID {
	return append([]NodeID(nil), p.roots...)
}

// Len returns the number of nodes.
func (p *Program) Len() int {
	return len(p.nodes)
}

// Document is the wire form of a whole program definition.
type Document struct {
	Name  string   `json:"name,omitempty"`
	Nodes []Node   `json:"nodes"`
	Roots []NodeID `json:"roots"`
}

// Decode parses a JSON program document and builds the indexed Program.
func Decode(data []byte) (*Program, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode program document: %w", err)
	}
	return New(doc.Nodes, doc.Roots)
}
