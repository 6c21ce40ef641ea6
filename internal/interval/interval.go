// Package interval implements the specialized segment-tree interval index
// used by the planner and shuffler: a set of entries, each carrying an
// interval over a fixed span [0, U), supporting insert, remove, membership
// and "find every entry whose interval overlaps a query range".
//
// Each node owns a sub-span computed by bisection, holds a small bag of
// entries that fit in its sub-span but not in either child's, and
// collapses "inline singleton" leaves back into their parent on removal so
// tree depth tracks the number of live operations rather than log(U).
package interval

import (
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/rangeops"
)

// Entry is a value with an associated interval. Multiple entries may share
// the same interval, but Equal must distinguish entries that are not the
// same value — Go has no structural equality for arbitrary types, so
// implementations provide it explicitly.
type Entry interface {
	Interval() rangeops.Range
	Equal(other Entry) bool
}

// Index is a set of Entry values queryable by overlap, fixed to the span
// [0, universe).
type Index struct {
	span rangeops.Range
	root *node
}

// New creates an empty index over [0, universe).
func New(universe uint64) *Index {
	if universe == 0 {
		errs.Bug("interval.New: universe must be positive, got 0")
	}
	return &Index{span: rangeops.Range{Start: 0, End: universe}}
}

// Insert places e in the tree. Returns false if an equal entry already
// exists; the tree is unchanged in that case.
func (idx *Index) Insert(e Entry) bool {
	if e.Interval().Len() == 0 {
		errs.Bug("interval.Insert: entry has empty interval %v", e.Interval())
	}
	return insertNode(&idx.root, idx.span, e)
}

// Remove deletes an entry equal to e. Returns whether one was found.
func (idx *Index) Remove(e Entry) bool {
	return removeNode(&idx.root, idx.span, e)
}

// Find returns every entry whose interval overlaps q.
func (idx *Index) Find(q rangeops.Range) []Entry {
	var out []Entry
	findNode(idx.root, idx.span, q, &out)
	return out
}

// IsEmpty reports whether the index holds no entries.
func (idx *Index) IsEmpty() bool {
	return idx.root == nil
}

// First returns some entry from the index, preferring the one whose
// interval starts at the lowest offset — deterministic for tests and
// kinder to sequential I/O than an arbitrary pick.
func (idx *Index) First() (Entry, bool) {
	var best Entry
	found := false
	walkMin(idx.root, &best, &found)
	return best, found
}

// node is a populated segment-tree node; a nil *node is the Empty variant.
type node struct {
	here  []Entry
	left  *node
	right *node
}

func (n *node) isInlineSingleton() bool {
	return n.left == nil && n.right == nil && len(n.here) == 1
}

func split(span rangeops.Range) (mid uint64, left, right rangeops.Range, canHaveChildren bool) {
	mid = (span.Start + span.End) / 2
	left = rangeops.Range{Start: span.Start, End: mid}
	right = rangeops.Range{Start: mid, End: span.End}
	canHaveChildren = span.Len() >= 2
	return
}

func indexOfEntry(here []Entry, e Entry) int {
	for i, h := range here {
		if h.Equal(e) {
			return i
		}
	}
	return -1
}

func insertNode(np **node, span rangeops.Range, e Entry) bool {
	n := *np
	if n == nil {
		*np = &node{here: []Entry{e}}
		return true
	}

	wasInlineSingleton := n.isInlineSingleton()
	if wasInlineSingleton && n.here[0].Equal(e) {
		return false
	}
	_, left, right, canHaveChildren := split(span)

	var (
		result      bool
		wentToChild bool
	)
	switch {
	case canHaveChildren && left.Contains(e.Interval()):
		result = insertNode(&n.left, left, e)
		wentToChild = true
	case canHaveChildren && right.Contains(e.Interval()):
		result = insertNode(&n.right, right, e)
		wentToChild = true
	default:
		if indexOfEntry(n.here, e) >= 0 {
			result = false
		} else {
			n.here = append(n.here, e)
			result = true
		}
	}

	// The singleton previously sat here lazily, without ever being
	// checked against a child's sub-span (an empty node always places
	// its first entry inline, however deep it could nest). Now that the
	// node is no longer an inline singleton, re-insert the singleton so
	// it lands at its proper depth. When the new entry stayed here and
	// the singleton fits no child either, both entries belong here and
	// the singleton is left untouched — re-inserting it in that case
	// would just bounce the two entries between "here" and themselves
	// forever.
	if wasInlineSingleton && result {
		singleton := n.here[0]
		fitsChild := canHaveChildren &&
			(left.Contains(singleton.Interval()) || right.Contains(singleton.Interval()))
		if wentToChild || fitsChild {
			n.here = append(n.here[:0], n.here[1:]...)
			if !insertNode(np, span, singleton) {
				errs.Bug("interval: re-insert of dislodged inline singleton was rejected as a duplicate")
			}
		}
	}

	return result
}

func removeNode(np **node, span rangeops.Range, e Entry) bool {
	n := *np
	if n == nil {
		return false
	}

	if n.isInlineSingleton() {
		if n.here[0].Equal(e) {
			*np = nil
			return true
		}
		return false
	}

	_, left, right, canHaveChildren := split(span)

	var result bool
	switch {
	case canHaveChildren && left.Contains(e.Interval()):
		result = removeNode(&n.left, left, e)
	case canHaveChildren && right.Contains(e.Interval()):
		result = removeNode(&n.right, right, e)
	default:
		if idx := indexOfEntry(n.here, e); idx >= 0 {
			last := len(n.here) - 1
			n.here[idx] = n.here[last]
			n.here = n.here[:last]
			result = true
		}
	}

	if result {
		demote(n)
	}
	return result
}

// demote collapses a node whose local bag just emptied and that has
// exactly one populated child which is itself an inline singleton: the
// child's entry is pulled up and the child dropped. This keeps depth
// bounded by the operation count rather than by the universe size.
func demote(n *node) {
	if len(n.here) != 0 {
		return
	}
	switch {
	case n.left == nil && n.right == nil:
		errs.Bug("interval: node left entirely empty after removal, should be unreachable")
	case n.left != nil && n.right == nil:
		if n.left.isInlineSingleton() {
			n.here = append(n.here, n.left.here[0])
			n.left = nil
		}
	case n.left == nil && n.right != nil:
		if n.right.isInlineSingleton() {
			n.here = append(n.here, n.right.here[0])
			n.right = nil
		}
	default:
		// Both children populated: nothing to demote.
	}
}

func findNode(n *node, span, query rangeops.Range, out *[]Entry) {
	if n == nil {
		return
	}
	for _, h := range n.here {
		if query.Overlaps(h.Interval()) {
			*out = append(*out, h)
		}
	}
	if span.Len() >= 2 {
		_, left, right, _ := split(span)
		if left.Overlaps(query) {
			findNode(n.left, left, query, out)
		}
		if right.Overlaps(query) {
			findNode(n.right, right, query, out)
		}
	}
}

func walkMin(n *node, best *Entry, found *bool) {
	if n == nil {
		return
	}
	for _, h := range n.here {
		if !*found || h.Interval().Start < (*best).Interval().Start {
			*best = h
			*found = true
		}
	}
	walkMin(n.left, best, found)
	walkMin(n.right, best, found)
}
