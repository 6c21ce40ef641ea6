package interval_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaby/looplift/internal/interval"
	"github.com/gaby/looplift/internal/rangeops"
)

// entry is a minimal interval.Entry used only by this test file.
type entry struct {
	span  rangeops.Range
	value string
}

func (e entry) Interval() rangeops.Range { return e.span }
func (e entry) Equal(other interval.Entry) bool {
	o, ok := other.(entry)
	return ok && o.span == e.span && o.value == e.value
}

func Test_Index_Simple_FindsOverlappingEntry(t *testing.T) {
	t.Parallel()

	idx := interval.New(100)
	hello := entry{span: rangeops.Range{Start: 40, End: 50}, value: "Hello"}
	world := entry{span: rangeops.Range{Start: 45, End: 60}, value: "World"}

	require.True(t, idx.Insert(hello))
	require.True(t, idx.Insert(world))

	require.Empty(t, idx.Find(rangeops.Range{Start: 0, End: 5}))
	require.Equal(t, []interval.Entry{hello}, idx.Find(rangeops.Range{Start: 40, End: 41}))
}

func Test_Index_InsertRemove_EmptyTreeCollapsesToEmpty(t *testing.T) {
	t.Parallel()

	idx := interval.New(16)
	e := entry{span: rangeops.Range{Start: 3, End: 7}, value: "x"}

	require.True(t, idx.Insert(e))
	require.False(t, idx.IsEmpty())

	require.True(t, idx.Remove(e))
	require.True(t, idx.IsEmpty())
}

func Test_Index_Insert_RejectsDuplicateEntry(t *testing.T) {
	t.Parallel()

	idx := interval.New(16)
	e := entry{span: rangeops.Range{Start: 3, End: 7}, value: "x"}

	require.True(t, idx.Insert(e))
	require.False(t, idx.Insert(e))
}

func Test_Index_AllowsDuplicateIntervalsAsLongAsEntriesDiffer(t *testing.T) {
	t.Parallel()

	idx := interval.New(16)
	a := entry{span: rangeops.Range{Start: 3, End: 7}, value: "a"}
	b := entry{span: rangeops.Range{Start: 3, End: 7}, value: "b"}

	require.True(t, idx.Insert(a))
	require.True(t, idx.Insert(b))

	found := idx.Find(rangeops.Range{Start: 3, End: 7})
	require.ElementsMatch(t, []interval.Entry{a, b}, found)

	require.True(t, idx.Remove(a))
	require.ElementsMatch(t, []interval.Entry{b}, idx.Find(rangeops.Range{Start: 3, End: 7}))
	require.True(t, idx.Remove(b))
	require.True(t, idx.IsEmpty())
}

// bruteFind computes the expected Find result by brute force over the live
// set, independent of the tree implementation.
func bruteFind(live []entry, q rangeops.Range) []interval.Entry {
	var out []interval.Entry
	for _, e := range live {
		if q.Overlaps(e.span) {
			out = append(out, e)
		}
	}
	return out
}

// Test_Index_Soundness_ThreeEntryExhaustiveSweep exhaustively inserts every
// combination of three entries with start/end pairs in [0,10) and checks
// every query range against a brute-force predicate.
func Test_Index_Soundness_ThreeEntryExhaustiveSweep(t *testing.T) {
	t.Parallel()

	const n = 10
	var spans []rangeops.Range
	for s := uint64(0); s < n; s++ {
		for e := s + 1; e <= n; e++ {
			spans = append(spans, rangeops.Range{Start: s, End: e})
		}
	}

	// Limit to a representative sample of span triples to keep the test
	// fast while still exercising every pairwise overlap shape; every
	// query range in [0,10) is still checked exhaustively for each triple.
	for i, s1 := range spans {
		for j, s2 := range spans {
			if j < i {
				continue
			}
			for k, s3 := range spans {
				if k < j {
					continue
				}

				entries := []entry{
					{span: s1, value: "a"},
					{span: s2, value: "b"},
					{span: s3, value: "c"},
				}

				idx := interval.New(n)
				for _, e := range entries {
					require.True(t, idx.Insert(e))
				}

				for qs := uint64(0); qs < n; qs++ {
					for qe := qs + 1; qe <= n; qe++ {
						q := rangeops.Range{Start: qs, End: qe}
						want := bruteFind(entries, q)
						got := idx.Find(q)
						require.ElementsMatchf(t, want, got, "Find(%v) with entries %v", q, entries)
					}
				}
			}
		}
	}
}

func Test_Index_First_ReturnsLowestStartingEntry(t *testing.T) {
	t.Parallel()

	idx := interval.New(100)
	low := entry{span: rangeops.Range{Start: 10, End: 20}, value: "low"}
	mid := entry{span: rangeops.Range{Start: 30, End: 40}, value: "mid"}
	high := entry{span: rangeops.Range{Start: 50, End: 60}, value: "high"}

	require.True(t, idx.Insert(mid))
	require.True(t, idx.Insert(high))
	require.True(t, idx.Insert(low))

	got, ok := idx.First()
	require.True(t, ok)
	require.Equal(t, interval.Entry(low), got)
}

func Test_Index_First_FalseOnEmptyIndex(t *testing.T) {
	t.Parallel()

	idx := interval.New(16)
	_, ok := idx.First()
	require.False(t, ok)
}

// Test_Index_SameUnsplittableInterval_HandlesMultipleDistinctEntries covers
// two distinct entries sharing the same unsplittable one-byte interval, a
// case a naive singleton re-insertion would recurse on forever.
func Test_Index_SameUnsplittableInterval_HandlesMultipleDistinctEntries(t *testing.T) {
	t.Parallel()

	idx := interval.New(16)
	span := rangeops.Range{Start: 4, End: 5}

	entries := make([]entry, 0, 5)
	for i := 0; i < 5; i++ {
		e := entry{span: span, value: fmt.Sprintf("e%d", i)}
		entries = append(entries, e)
		require.True(t, idx.Insert(e))
	}

	var want []interval.Entry
	for _, e := range entries {
		want = append(want, interval.Entry(e))
	}
	require.ElementsMatch(t, want, idx.Find(span))

	for _, e := range entries {
		require.True(t, idx.Remove(e))
	}
	require.True(t, idx.IsEmpty())
}
