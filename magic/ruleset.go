package magic

import (
	"fmt"
	"io"

	"github.com/filekind/magic/byteset"
)

// RuleSetOptions configures a RuleSet (§9, §10). The zero value is not
// valid; use NewRuleSet, which applies the documented defaults before
// Options are applied.
type RuleSetOptions struct {
	// MaxLevel bounds how many '>' prefixes a continuation line may carry.
	// Default 20.
	MaxLevel int

	// MaxRecursionDepth bounds the combined nesting of indirect and use
	// re-entrancy during a single Find call. Default 15.
	MaxRecursionDepth int

	// HonorOptional controls whether a node's "!:optional" directive keeps
	// its success from counting as "a sibling matched" when deciding whether
	// a `default` sibling fires. Default true; set false to count every
	// matching child, optional or not.
	HonorOptional bool

	// BuildIndex controls whether Finalize populates the first-byte index
	// of §4.7. Default true; disabling it falls back to a linear scan of
	// every root on every Find, useful for testing the index against the
	// unindexed path.
	BuildIndex bool

	// Formatter renders message templates against extracted values.
	// Defaults to DefaultFormatter.
	Formatter Formatter
}

// Option mutates a RuleSetOptions during NewRuleSet.
type Option func(*RuleSetOptions)

// WithMaxLevel overrides the continuation-level ceiling.
func WithMaxLevel(n int) Option { return func(o *RuleSetOptions) { o.MaxLevel = n } }

// WithMaxRecursionDepth overrides the indirect/use recursion ceiling.
func WithMaxRecursionDepth(n int) Option {
	return func(o *RuleSetOptions) { o.MaxRecursionDepth = n }
}

// WithHonorOptional toggles whether a matching "!:optional" node is left
// out of the sibling-match check that gates `default` siblings.
func WithHonorOptional(b bool) Option { return func(o *RuleSetOptions) { o.HonorOptional = b } }

// WithIndex toggles the first-byte index built by Finalize.
func WithIndex(b bool) Option { return func(o *RuleSetOptions) { o.BuildIndex = b } }

// WithFormatter overrides the message Formatter.
func WithFormatter(f Formatter) Option { return func(o *RuleSetOptions) { o.Formatter = f } }

// RuleSet is a compiled magic(5) database: a forest of Pattern Node roots
// plus the bookkeeping (name table, first-byte index) needed to evaluate it
// efficiently and repeatedly (§3).
//
// Construction (AddRules, Finalize) is not safe for concurrent use. Once
// Finalize has returned, Find may be called concurrently from any number of
// goroutines: it only reads.
type RuleSet struct {
	opts RuleSetOptions

	roots []*Node
	named map[string]*Node

	index    [256][]*Node
	finalized bool
}

// NewRuleSet constructs an empty RuleSet with the documented defaults,
// overridden by opts in order.
func NewRuleSet(opts ...Option) *RuleSet {
	o := RuleSetOptions{
		MaxLevel:          20,
		MaxRecursionDepth: 15,
		HonorOptional:     true,
		BuildIndex:        true,
		Formatter:         DefaultFormatter,
	}
	for _, apply := range opts {
		apply(&o)
	}
	return &RuleSet{
		opts:  o,
		named: make(map[string]*Node),
	}
}

func (rs *RuleSet) formatter() Formatter {
	if rs.opts.Formatter != nil {
		return rs.opts.Formatter
	}
	return DefaultFormatter
}

// AddRules parses magic(5) text from r and appends the resulting roots to
// the rule set. Malformed lines are skipped and, if errCb is non-nil,
// reported to it; parsing always continues to the next line (§7). AddRules
// may be called any number of times before Finalize; calling it afterward
// invalidates the first-byte index until Finalize runs again.
func (rs *RuleSet) AddRules(r io.Reader, errCb ErrorFunc) error {
	rs.finalized = false
	return parseMagicFile(rs, r, errCb)
}

// Finalize builds the first-byte index (unless disabled by WithIndex) and
// runs the eager `use`-target diagnostic pass described in §9: every `use`
// instruction in the tree is checked against the name table once, up
// front, rather than discovered lazily mid-evaluation. It is idempotent and
// safe to call again after further AddRules calls.
func (rs *RuleSet) Finalize() []error {
	var diags []error
	for _, root := range rs.roots {
		walkForUse(root, func(n *Node, instr *Instruction) {
			if _, ok := rs.named[instr.Name]; !ok {
				diags = append(diags, fmt.Errorf("%w: %q (line %d)", ErrDanglingUse, instr.Name, n.line))
			}
		})
	}

	for i := range rs.index {
		rs.index[i] = nil
	}
	if rs.opts.BuildIndex {
		for _, root := range rs.roots {
			m := root.StartingBytes()
			if m == nil {
				continue
			}
			m.ForEach(func(b byte) {
				rs.index[b] = append(rs.index[b], root)
			})
		}
	}

	rs.finalized = true
	return diags
}

func walkForUse(n *Node, visit func(*Node, *Instruction)) {
	if instr, ok := n.Instruction(); ok && instr.Kind == InstrUse {
		visit(n, instr)
	}
	for _, c := range n.Children {
		walkForUse(c, visit)
	}
}

// NamedLookup returns the node registered under ident by a `name` line, and
// whether one exists (§4.4).
func (rs *RuleSet) NamedLookup(ident string) (*Node, bool) {
	n, ok := rs.named[ident]
	return n, ok
}

// Roots returns the rule set's top-level (level 0) nodes, in the order
// they were added.
func (rs *RuleSet) Roots() []*Node { return rs.roots }

// Dump renders a disassembly-style listing of every root and its
// descendants, one line per node, annotated with its level, offset
// expression, type, and, for any node at literal offset zero whose
// criterion has determinable starting bytes, those bytes (the index slots
// a root with them is filed under when the index is built). It
// supplements the core match API with the kind of diagnostic rendering the
// teacher's bytecode disassembler provides for compiled programs.
func (rs *RuleSet) Dump(w io.Writer) error {
	for i, root := range rs.roots {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := dumpNode(w, root); err != nil {
			return err
		}
	}
	return nil
}

func dumpNode(w io.Writer, n *Node) error {
	label := n.TypeName
	if instr, ok := n.Instruction(); ok {
		switch instr.Kind {
		case InstrName:
			label = "name " + instr.Name
		case InstrUse:
			label = "use " + instr.Name
		case InstrDefault:
			label = "default"
		case InstrIndirect:
			label = "indirect"
		}
	}
	prefix := ""
	for i := 0; i < n.Level; i++ {
		prefix += ">"
	}
	starting := ""
	if sb := n.StartingBytes(); sb != nil {
		if b, ok := byteset.Singleton(sb); ok {
			starting = fmt.Sprintf(" starts=0x%02x", b)
		} else {
			starting = " starts=" + sb.String()
		}
	}
	if _, err := fmt.Fprintf(w, "%s%s\t%s%s\n", prefix, offsetString(n.Offset), label, starting); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := dumpNode(w, c); err != nil {
			return err
		}
	}
	return nil
}

func offsetString(e OffsetExpr) string {
	switch e.Kind {
	case OffsetRelative:
		return fmt.Sprintf("&%d", e.Relative)
	case OffsetIndirect:
		return "(indirect)"
	default:
		return fmt.Sprintf("%d", e.Literal)
	}
}
