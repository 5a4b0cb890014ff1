// Package graph models build work as an immutable tree of tasks.
//
// A Node is one of three variants: a Leaf wrapping a single Task, a Series
// whose children run strictly in order, or a Parallel whose children run
// concurrently. Nodes only nest, so every graph is acyclic by construction,
// and a graph can be inspected (String, Tasks, Walk) without executing it.
package graph

import (
	"context"
	"strings"

	"github.com/conneroisu/assetforge/internal/config"
)

// Artifacts lists the files a task wrote.
type Artifacts []string

// TaskFunc is the body of a task. Inputs come only from cfg.
type TaskFunc func(ctx context.Context, cfg *config.Config) (Artifacts, error)

// Task is the smallest invokable unit of build work.
type Task struct {
	Name string
	Fn   TaskFunc
}

// NewTask creates a named task.
func NewTask(name string, fn TaskFunc) Task {
	return Task{Name: name, Fn: fn}
}

// Kind tags the Node variant.
type Kind int

const (
	KindLeaf Kind = iota
	KindSeries
	KindParallel
)

// String returns the combinator name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Node is an immutable task graph.
type Node struct {
	kind     Kind
	task     Task
	children []Node
}

// Leaf wraps a single task.
func Leaf(t Task) Node {
	return Node{kind: KindLeaf, task: t}
}

// Series composes nodes that run one after another, halting on the first failure.
func Series(nodes ...Node) Node {
	return Node{kind: KindSeries, children: append([]Node(nil), nodes...)}
}

// Parallel composes nodes that run concurrently. Failures do not cancel siblings.
func Parallel(nodes ...Node) Node {
	return Node{kind: KindParallel, children: append([]Node(nil), nodes...)}
}

// Kind returns the node variant.
func (n Node) Kind() Kind { return n.kind }

// Task returns the wrapped task of a leaf; composites return the zero Task.
func (n Node) Task() Task { return n.task }

// Children returns a copy of the composite's children.
func (n Node) Children() []Node {
	return append([]Node(nil), n.children...)
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func (n Node) Walk(fn func(node Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n Node) walk(fn func(Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.children {
		child.walk(fn, depth+1)
	}
}

// Tasks returns leaf task names in depth-first order.
func (n Node) Tasks() []string {
	var names []string
	n.Walk(func(node Node, _ int) bool {
		if node.kind == KindLeaf {
			names = append(names, node.task.Name)
		}
		return true
	})
	return names
}

// String renders the graph, e.g. "series(clean, parallel(css, js))".
func (n Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n Node) write(b *strings.Builder) {
	if n.kind == KindLeaf {
		b.WriteString(n.task.Name)
		return
	}
	b.WriteString(n.kind.String())
	b.WriteByte('(')
	for i, child := range n.children {
		if i > 0 {
			b.WriteString(", ")
		}
		child.write(b)
	}
	b.WriteByte(')')
}
