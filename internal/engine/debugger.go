package engine

import (
	"fmt"
	"strings"
)

// PlanDebugger records the search graph of one A* run and renders it as a
// Graphviz digraph.
type PlanDebugger struct {
	nodeDeclarations []string
	nodeConnections  []string
}

// AddNode records a node declaration line.
func (d *PlanDebugger) AddNode(s string) {
	d.nodeDeclarations = append(d.nodeDeclarations, s)
}

// AddConn records an edge line.
func (d *PlanDebugger) AddConn(s string) {
	d.nodeConnections = append(d.nodeConnections, s)
}

// Clear drops everything recorded so far.
func (d *PlanDebugger) Clear() {
	d.nodeDeclarations = d.nodeDeclarations[:0]
	d.nodeConnections = d.nodeConnections[:0]
}

// Empty reports whether nothing was recorded.
func (d *PlanDebugger) Empty() bool {
	return len(d.nodeDeclarations) == 0 && len(d.nodeConnections) == 0
}

// DOT renders the recorded graph.
func (d *PlanDebugger) DOT() string {
	var b strings.Builder
	b.WriteString("digraph plan {\n")
	b.WriteString("  node [shape=box fontname=\"monospace\"];\n")
	for _, decl := range d.nodeDeclarations {
		b.WriteString("  ")
		b.WriteString(decl)
		b.WriteString(";\n")
	}
	for _, conn := range d.nodeConnections {
		b.WriteString("  ")
		b.WriteString(conn)
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func dotQuote(s string) string {
	return fmt.Sprintf("%q", s)
}
