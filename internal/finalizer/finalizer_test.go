package finalizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/errors"

	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/finalizer"
	"github.com/gaby/looplift/internal/planner"
	"github.com/gaby/looplift/internal/rangeops"
)

type memDevice struct{ data []byte }

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m.data[off:]), nil
}
func (m *memDevice) WriteAt(p []byte, off int64) (int, error) {
	return copy(m.data[off:], p), nil
}

func Test_Run_WritesZerosThenVerifiesFingerprints(t *testing.T) {
	t.Parallel()

	dev := &memDevice{data: []byte("ABCDEFGH")}
	dio := diskio.New(dev, false)

	fp, err := dio.Fingerprint(rangeops.Range{Start: 0, End: 4})
	require.NoError(t, err)

	plan := &planner.Plan{
		Zeros:    []planner.ZeroOp{{Destination: rangeops.Range{Start: 4, End: 8}}},
		Verifies: []planner.VerifyOp{{Destination: rangeops.Range{Start: 0, End: 4}, Fingerprint: fp}},
	}

	require.NoError(t, finalizer.Run(plan, dio))
	require.Equal(t, []byte("ABCD\x00\x00\x00\x00"), dev.data)
}

func Test_Run_MismatchedFingerprint_ReturnsPostconditionError(t *testing.T) {
	t.Parallel()

	dev := &memDevice{data: []byte("ABCDEFGH")}
	dio := diskio.New(dev, false)

	plan := &planner.Plan{
		Verifies: []planner.VerifyOp{{Destination: rangeops.Range{Start: 0, End: 4}, Fingerprint: 0xbad}},
	}

	err := finalizer.Run(plan, dio)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.Postcondition))
}

func Test_Run_DryRun_SkipsVerificationAndLeavesDeviceUnchanged(t *testing.T) {
	t.Parallel()

	original := []byte("ABCDEFGH")
	dev := &memDevice{data: append([]byte(nil), original...)}
	dio := diskio.New(dev, true)

	plan := &planner.Plan{
		Zeros:    []planner.ZeroOp{{Destination: rangeops.Range{Start: 0, End: 8}}},
		Verifies: []planner.VerifyOp{{Destination: rangeops.Range{Start: 0, End: 8}, Fingerprint: 0xbad}},
	}

	require.NoError(t, finalizer.Run(plan, dio))
	require.Equal(t, original, dev.data)
}
