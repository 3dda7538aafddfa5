// Package tree implements the ordered, id-addressed folder tree for a
// runbook workspace.
//
// The tree is an arena: a flat map from id to node, with children held as
// ordered id slices and the parent held as an id. No node points at another
// node, which keeps clone, move, and cascade delete simple and makes the
// parent back-reference a lookup rather than an ownership edge.
//
// STRUCTURAL INVARIANTS:
//   - Every non-root id is unique within the tree.
//   - A folder's children may be folders or runbooks.
//   - A runbook node never has children.
//   - New siblings are always inserted at index 0, so sibling order at each
//     level is reverse-chronological by creation.
//
// All operations are synchronous, operate purely in memory, and report
// expected domain failures (unknown id, kind mismatch) as a false return
// with no mutation. They never return errors for those conditions and never
// leave the tree partially mutated.
//
// The tree itself is not safe for concurrent use; the state manager owns
// serialization of access.
package tree
