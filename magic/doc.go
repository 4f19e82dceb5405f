// Package magic implements a rule engine for identifying the content type of
// a byte buffer, evaluating it against a compiled database of magic(5)
// pattern rules.
//
// A RuleSet is built once from magic(5) text via AddRules, indexed with
// Finalize, and thereafter consulted any number of times, from any number of
// goroutines, via Find. Construction is not safe for concurrent use;
// evaluation is.
//
// The package is organized leaf-first:
//
//   - endian.go holds the fixed-width integer/float decoders (little, big,
//     middle/PDP-11, native, plus the ID3 7-bit variant).
//   - extract.go reads a typed Value out of a buffer at a resolved offset.
//   - offset.go resolves a line's offset expression to an absolute index.
//   - criterion.go and instruction.go implement a node's operation: the
//     Criterion comparators and the control-flow-only Instruction
//     directives, respectively.
//   - node.go binds offset + operation + message/mime/optional/children into
//     the pattern tree that parser.go builds and eval.go walks.
//   - ruleset.go is the public surface for building and inspecting a rule
//     set: AddRules, Finalize, NamedLookup, Dump; Find lives in eval.go.
package magic
