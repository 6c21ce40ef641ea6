package extentmap_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/gaby/looplift/internal/extentmap"
)

func Test_Reader_RoundTrip_PreservesSummaryAndExtentsInOrder(t *testing.T) {
	t.Parallel()

	summary := extentmap.Summary{DeviceLength: 16}
	extents := []extentmap.Extent{
		{DestinationOffset: 0, Length: 8, Source: extentmap.Source{Kind: extentmap.FromOffset, Offset: 8, Checksum: 0xdeadbeef}},
		{DestinationOffset: 8, Length: 8, Source: extentmap.Source{Kind: extentmap.Zeros}},
	}

	var buf bytes.Buffer
	w := extentmap.NewWriter(&buf)
	require.NoError(t, w.WriteSummary(summary))
	for _, e := range extents {
		require.NoError(t, w.WriteExtent(e))
	}

	r := extentmap.NewReader(&buf)
	gotSummary, err := r.ReadSummary()
	require.NoError(t, err)
	require.Equal(t, summary, gotSummary)

	var got []extentmap.Extent
	for {
		e, err := r.ReadExtent()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, e)
	}
	if diff := cmp.Diff(extents, got); diff != "" {
		t.Fatalf("round-tripped extents differ from the originals (-want +got):\n%s", diff)
	}
}

func Test_Writer_EncodesZerosAsBareString(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := extentmap.NewWriter(&buf)
	require.NoError(t, w.WriteExtent(extentmap.Extent{DestinationOffset: 0, Length: 4, Source: extentmap.Source{Kind: extentmap.Zeros}}))

	require.Contains(t, buf.String(), `"source":"Zeros"`)
}

func Test_Writer_EncodesOffsetAsTaggedObject(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := extentmap.NewWriter(&buf)
	require.NoError(t, w.WriteExtent(extentmap.Extent{
		DestinationOffset: 0, Length: 4,
		Source: extentmap.Source{Kind: extentmap.FromOffset, Offset: 100, Checksum: 42},
	}))

	require.Contains(t, buf.String(), `"Offset":{"offset":100,"checksum":42}`)
}

func Test_Reader_ReadExtent_RejectsUnknownSourceVariant(t *testing.T) {
	t.Parallel()

	r := extentmap.NewReader(bytes.NewBufferString(`{"destination_offset":0,"length":4,"source":"Bogus"}`))
	_, err := r.ReadExtent()
	require.Error(t, err)
}
