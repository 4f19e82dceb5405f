package magic

import "github.com/filekind/magic/byteset"

// Node is one compiled line of a magic(5) database: a Pattern Node per §3.
//
// Op holds either a Criterion (a comparator) or an *Instruction
// (name/use/indirect/default); the parser never leaves it nil.
type Node struct {
	Level    int
	Offset   OffsetExpr
	Op       interface{} // Criterion or *Instruction
	TypeName string      // the raw type token, e.g. "beldate", for Dump/diagnostics
	Message  string      // raw template, escapes already decoded
	Mime     string
	Optional bool
	Children []*Node

	line uint64 // source line number, for diagnostics only
}

// Criterion reports the node's Criterion and whether Op holds one.
func (n *Node) Criterion() (Criterion, bool) {
	c, ok := n.Op.(Criterion)
	return c, ok
}

// Instruction reports the node's *Instruction and whether Op holds one.
func (n *Node) Instruction() (*Instruction, bool) {
	i, ok := n.Op.(*Instruction)
	return i, ok
}

// StartingBytes implements §4.7: a root only constrains buffer[0] when its
// own offset is the literal zero; any other offset (relative, indirect, or
// a nonzero literal) tells us nothing about the buffer's first byte.
func (n *Node) StartingBytes() byteset.Matcher {
	if n.Offset.Kind != OffsetLiteral || n.Offset.Literal != 0 {
		return nil
	}
	c, ok := n.Criterion()
	if !ok {
		return nil
	}
	return c.StartingBytes()
}
