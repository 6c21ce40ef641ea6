// Package shuffler implements the in-place extent shuffler: it drains the
// copy-operation index built by the planner by splitting, copying, and
// swapping device regions until every byte needed at a destination is
// there, without ever using scratch storage proportional to the device's
// length.
//
// It walks the index op by op, at each step eliminating no-ops, probing
// for destination overlap, splitting to guarantee progress, and finally
// swapping whole regions once no further split is possible, below named
// as four steps: A, B, C, D.
package shuffler

import (
	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/interval"
	"github.com/gaby/looplift/internal/planner"
	"github.com/gaby/looplift/internal/rangeops"
)

// Run drains idx, performing every copy it describes against dio, until
// the index is empty. It preserves the invariant that for every queued
// CopyOp (S, D), the bytes currently on disk at S are exactly the bytes
// that must end up at D.
func Run(idx *interval.Index, dio *diskio.IO) error {
	for !idx.IsEmpty() {
		e, ok := idx.First()
		if !ok {
			errs.Bug("shuffler: First() returned false on a non-empty index")
		}
		op := e.(planner.CopyOp)

		// Step A: no-op elimination.
		if op.Source.Start == op.Destination {
			idx.Remove(op)
			continue
		}

		dest := rangeops.Of(op.Destination, op.Source.Len())
		// op is still in the index, so it appears in this result iff its
		// own source overlaps dest (the self-overlapping case, e.g. a
		// shift where source and destination ranges straddle each other).
		overlappers := idx.Find(dest)

		// Step B: destination-overlap probe.
		if len(overlappers) == 0 {
			if err := stepB(idx, dio, op, dest); err != nil {
				return err
			}
			continue
		}

		// Step C: split to make progress, one split per outer iteration.
		split, err := stepC(idx, op, dest, overlappers)
		if err != nil {
			return err
		}
		if split {
			continue
		}

		// Step D: every overlapper has source == dest exactly; swap.
		if err := stepD(idx, dio, op, dest, overlappers); err != nil {
			return err
		}
	}
	return nil
}

// stepB removes op and performs a direct copy, used when nothing in the
// index still reads from dest.
func stepB(idx *interval.Index, dio *diskio.IO, op planner.CopyOp, dest rangeops.Range) error {
	idx.Remove(op)
	return dio.CopySegment(op.Source, dest.Start)
}

// stepC walks overlappers looking for one whose source genuinely
// overlaps-but-does-not-equal dest, and splits either op or that
// overlapper to reduce the overlap. other ranges over every entry Step B
// found, including op itself when op is self-overlapping (source and
// destination straddle each other) — that comparison is exactly what
// drives the split in the self-overlap case. Returns true if a split
// happened (the caller must re-pick a fresh op and restart).
func stepC(idx *interval.Index, op planner.CopyOp, dest rangeops.Range, overlappers []interval.Entry) (bool, error) {
	for _, e := range overlappers {
		other := e.(planner.CopyOp)
		if other.Source == dest {
			// Handled cleanly in Step D; keep looking.
			continue
		}

		switch {
		case dest.Start < other.Source.Start:
			splitAt(idx, op, other.Source.Start-dest.Start)
		case other.Source.Start < dest.Start:
			splitAt(idx, other, dest.Start-other.Source.Start)
		case dest.End > other.Source.End:
			splitAt(idx, op, other.Source.Len())
		case other.Source.End > dest.End:
			splitAt(idx, other, dest.Len())
		default:
			errs.Bug("shuffler: overlapping source intervals %v and %v are equal but were not recognized in Step D", dest, other.Source)
		}
		return true, nil
	}
	return false, nil
}

// splitAt removes target from idx and re-inserts it as two ops of source
// length k and len(target.Source)-k, preserving the byte-for-byte mapping.
func splitAt(idx *interval.Index, target planner.CopyOp, k uint64) {
	length := target.Source.Len()
	if k == 0 || k >= length {
		errs.Bug("shuffler: split point %d out of range for source length %d", k, length)
	}

	idx.Remove(target)

	first := planner.CopyOp{
		Source:      rangeops.Range{Start: target.Source.Start, End: target.Source.Start + k},
		Destination: target.Destination,
	}
	second := planner.CopyOp{
		Source:      rangeops.Range{Start: target.Source.Start + k, End: target.Source.End},
		Destination: target.Destination + k,
	}

	if !idx.Insert(first) {
		errs.Bug("shuffler: split half %v collided with an existing op", first)
	}
	if !idx.Insert(second) {
		errs.Bug("shuffler: split half %v collided with an existing op", second)
	}
}

// stepD swaps op.Source and dest in place, then rewrites every overlapper
// (whose source is exactly dest) to read from op.Source instead, since
// that is where their bytes now live.
func stepD(idx *interval.Index, dio *diskio.IO, op planner.CopyOp, dest rangeops.Range, overlappers []interval.Entry) error {
	idx.Remove(op)

	if err := dio.SwapSegment(op.Source, dest.Start); err != nil {
		return err
	}

	for _, e := range overlappers {
		other := e.(planner.CopyOp)
		if other == op {
			continue
		}
		if other.Source != dest {
			errs.Bug("shuffler: Step D reached with overlapper %v whose source is not exactly dest %v", other, dest)
		}
		idx.Remove(other)
		replacement := planner.CopyOp{Source: op.Source, Destination: other.Destination}
		if !idx.Insert(replacement) {
			errs.Bug("shuffler: Step D replacement op %v collided with an existing op", replacement)
		}
	}

	return nil
}
