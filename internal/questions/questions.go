// Package questions holds the interview question tree and branch selection.
package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// StartID is the node every interview begins at.
	StartID = "start"
	// EndID marks the closing node; reaching it ends the interview.
	EndID = "fim"
)

var (
	ErrEmptyTree   = errors.New("questions: tree has no nodes")
	ErrNoStart     = errors.New("questions: missing start node")
	ErrInvalidNode = errors.New("questions: invalid node")
	ErrDuplicateID = errors.New("questions: duplicate node id")
)

//go:embed questions.json
var defaultTree []byte

// Node is one question and its outgoing edges.
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Next     string            `json:"next,omitempty" yaml:"next,omitempty"`
	Branches map[string]string `json:"branches,omitempty" yaml:"branches,omitempty"`
}

// Tree indexes nodes by id, preserving source order.
type Tree struct {
	order []string
	nodes map[string]Node
}

// DanglingRef is an edge pointing at an id the tree does not define.
type DanglingRef struct {
	From   string
	Via    string
	Target string
}

// Default returns the embedded question tree.
func Default() (*Tree, error) {
	return Parse(defaultTree)
}

// LoadFile reads a JSON or YAML node list from path.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questions load failed (%s): %w", path, err)
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questions parse failed (%s): %w", path, err)
	}
	return tree, nil
}

// Load reads a node list from r.
func Load(r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a node list; YAML is a superset of JSON so both are accepted.
func Parse(data []byte) (*Tree, error) {
	var nodes []Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("questions: decode: %w", err)
	}
	return New(nodes)
}

// New validates nodes and builds a tree.
func New(nodes []Node) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyTree
	}
	t := &Tree{
		order: make([]string, 0, len(nodes)),
		nodes: make(map[string]Node, len(nodes)),
	}
	for i, n := range nodes {
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node[%d] missing id", ErrInvalidNode, i)
		}
		if strings.TrimSpace(n.Text) == "" {
			return nil, fmt.Errorf("%w: node %q missing text", ErrInvalidNode, n.ID)
		}
		if _, ok := t.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		t.order = append(t.order, n.ID)
		t.nodes[n.ID] = n
	}
	if _, ok := t.nodes[StartID]; !ok {
		return nil, ErrNoStart
	}
	return t, nil
}

// Get returns the node with id.
func (t *Tree) Get(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Start returns the start node.
func (t *Tree) Start() Node {
	return t.nodes[StartID]
}

// Len reports the number of nodes.
func (t *Tree) Len() int {
	return len(t.order)
}

// Nodes returns nodes in source order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id])
	}
	return out
}

// Dangling lists edges whose target is not defined. These are tolerated at
// load time and answered with a misconfiguration message at runtime.
func (t *Tree) Dangling() []DanglingRef {
	var out []DanglingRef
	for _, id := range t.order {
		n := t.nodes[id]
		if n.Next != "" {
			if _, ok := t.nodes[n.Next]; !ok {
				out = append(out, DanglingRef{From: id, Via: "next", Target: n.Next})
			}
		}
		keys := make([]string, 0, len(n.Branches))
		for k := range n.Branches {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			target := n.Branches[k]
			if _, ok := t.nodes[target]; !ok {
				out = append(out, DanglingRef{From: id, Via: "branch:" + k, Target: target})
			}
		}
	}
	return out
}
