package magic

// walkCtx carries per-evaluation state down a single root's depth-first
// walk: the buffer being matched and the indirect/use recursion counter
// (§5, bounded to rs.opts.MaxRecursionDepth to guarantee termination on
// cyclic rule graphs).
type walkCtx struct {
	rs    *RuleSet
	buf   []byte
	depth int
}

// Find evaluates buf against the rule set and returns the best available
// ContentInfo, or nil if neither a full nor a partial match was found
// (§4.6, §6).
func (rs *RuleSet) Find(buf []byte) *ContentInfo {
	return rs.find(buf, 0)
}

func (rs *RuleSet) find(buf []byte, depth int) *ContentInfo {
	if len(buf) == 0 {
		info := EmptyBuffer
		return &info
	}

	var partial *ContentInfo
	scan := func(roots []*Node) *ContentInfo {
		for _, root := range roots {
			res := rs.walkRoot(root, buf, depth)
			if res == nil {
				continue
			}
			if !res.IsPartial {
				return res
			}
			if partial == nil {
				partial = res
			}
		}
		return nil
	}

	// Open Question 1 (SPEC_FULL.md / DESIGN.md): both the indexed
	// candidate list and the full root list are always scanned, with a
	// full match from either winning immediately and the first-encountered
	// partial (indexed list takes priority, since it is scanned first)
	// returned if no full match is found anywhere.
	if idx := rs.index[buf[0]]; len(idx) > 0 {
		if res := scan(idx); res != nil {
			return res
		}
	}
	if res := scan(rs.roots); res != nil {
		return res
	}
	return partial
}

func (rs *RuleSet) walkRoot(root *Node, buf []byte, depth int) *ContentInfo {
	ctx := &walkCtx{rs: rs, buf: buf, depth: depth}
	mr := &MatchingResult{}
	if !ctx.walkNode(root, mr, 0, 0, false) {
		return nil
	}
	if mr.output() != "" || mr.mime != "" {
		mr.State = FullMatch
	} else {
		mr.State = PartialMatch
	}
	return mr.toContentInfo()
}

// walkNode implements §4.6's "Walk of a single root" for one node: resolve
// the offset, evaluate the criterion or instruction, append output on
// success, then recurse into children with parent-end set to the position
// immediately past this node's read window.
func (ctx *walkCtx) walkNode(n *Node, mr *MatchingResult, parentEnd, parentStart int64, invert bool) bool {
	offset, ok := n.Offset.Resolve(ctx.buf, parentEnd, parentStart)
	if !ok {
		return false
	}

	var matched bool
	var value Value
	var consumed int64

	if instr, isInstr := n.Instruction(); isInstr {
		matched, value, consumed = ctx.evalInstruction(n, instr, offset, invert, mr)
	} else if crit, ok := n.Criterion(); ok {
		res := crit.Evaluate(ctx.buf, offset, invert)
		matched, value, consumed = res.Matched, res.Value, res.Consumed
	}

	if !matched {
		return false
	}

	if mr.Level < n.Level {
		mr.Level = n.Level
	}
	if n.Message != "" {
		mr.append(ctx.rs.formatter().Format(n.Message, value))
	}
	if n.Mime != "" && mr.mime == "" {
		mr.mime = n.Mime
	}
	if n.TypeName != "" && mr.typeName == "" {
		mr.typeName = n.TypeName
	}

	ctx.walkChildren(n, mr, offset+consumed, offset, invert)
	return true
}

// walkChildren implements §4.6 step 4-5. Every child is walked regardless
// of outcome, so optional and non-optional successes alike append their
// output; but only a non-optional match (or any match at all, when
// HonorOptional is disabled) counts toward "did a sibling match" for the
// purpose of deciding whether a trailing `default` sibling fires.
func (ctx *walkCtx) walkChildren(n *Node, mr *MatchingResult, childEnd, childStart int64, invert bool) {
	var defaults []*Node
	anySiblingMatched := false
	for _, child := range n.Children {
		if instr, ok := child.Instruction(); ok && instr.Kind == InstrDefault {
			defaults = append(defaults, child)
			continue
		}
		if ctx.walkNode(child, mr, childEnd, childStart, invert) {
			if !child.Optional || !ctx.rs.opts.HonorOptional {
				anySiblingMatched = true
			}
		}
	}
	if !anySiblingMatched {
		for _, d := range defaults {
			ctx.walkNode(d, mr, childEnd, childStart, invert)
		}
	}
}

// evalInstruction handles the four §4.4 control-flow directives. name and
// default always match structurally, deferring to the normal child walk.
// use splices the named node's children in at the use site, optionally
// under an endian-inverted frame. indirect re-enters the whole rule set at
// the resolved offset. Both use and indirect are bounded by the per-
// evaluation recursion counter.
func (ctx *walkCtx) evalInstruction(n *Node, instr *Instruction, offset int64, invert bool, mr *MatchingResult) (bool, Value, int64) {
	switch instr.Kind {
	case InstrName, InstrDefault:
		return true, Value{}, 0

	case InstrUse:
		target, found := ctx.rs.named[instr.Name]
		if !found {
			return false, Value{}, 0
		}
		if ctx.depth+1 > ctx.rs.opts.MaxRecursionDepth {
			return false, Value{}, 0
		}
		newInvert := invert
		if instr.UseInvertEndian {
			newInvert = !newInvert
		}
		ctx.depth++
		ctx.walkChildren(target, mr, offset, offset, newInvert)
		ctx.depth--
		return true, Value{}, 0

	case InstrIndirect:
		if offset > int64(len(ctx.buf)) {
			return false, Value{}, 0
		}
		if ctx.depth+1 > ctx.rs.opts.MaxRecursionDepth {
			return false, Value{}, 0
		}
		ctx.depth++
		info := ctx.rs.find(ctx.buf[offset:], ctx.depth)
		ctx.depth--
		if info == nil {
			return false, Value{}, 0
		}
		mr.append(info.Description)
		if info.Mime != "" && mr.mime == "" {
			mr.mime = info.Mime
		}
		return true, Value{}, 0

	default:
		return false, Value{}, 0
	}
}
