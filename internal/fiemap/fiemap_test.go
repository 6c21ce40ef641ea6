package fiemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_fsIOCFiemap_MatchesKnownConstant checks the derived request code
// against the well-known FS_IOC_FIEMAP constant from linux/fs.h.
func Test_fsIOCFiemap_MatchesKnownConstant(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 0xC020660B, fsIOCFiemap())
}

func Test_ExtentFlag_Has_DetectsSetBits(t *testing.T) {
	t.Parallel()

	f := ExtentLast | ExtentUnwritten
	require.True(t, f.Has(ExtentLast))
	require.True(t, f.Has(ExtentUnwritten))
	require.False(t, f.Has(ExtentEncoded))
}

func Test_Extent_LastAndUnwritten_ReflectFlags(t *testing.T) {
	t.Parallel()

	e := Extent{Flags: ExtentLast}
	require.True(t, e.Last())
	require.False(t, e.Unwritten())
}
