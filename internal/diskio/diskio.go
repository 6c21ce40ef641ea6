// Package diskio provides buffered, positional random-access I/O over an
// open device, plus the fingerprint routine and the copy/swap/zero-fill
// primitives the planner and shuffler build on.
//
// xxhash is a pure streaming hash, so its digest does not depend on how
// the input was chunked: a scan run and a later lift run may use
// different chunk sizes (e.g. via config.ChunkSizeBytes) and still agree
// on every fingerprint. The chunk size only bounds memory use and I/O
// call granularity, never correctness.
package diskio

import (
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/rangeops"
)

// ChunkSize is the default buffer size used when New is called directly;
// NewSized lets a caller (the lift/scan commands, driven by config) pick
// a different size.
const ChunkSize = 128 * 1024

// Device is the minimal surface this package needs from an open device:
// positional reads and writes at arbitrary byte offsets. *os.File
// satisfies it; tests use an in-memory fake.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// Stats accumulates read/write operation and byte counters for an
// end-of-run log line.
type Stats struct {
	ReadOps    uint64
	ReadBytes  uint64
	WriteOps   uint64
	WriteBytes uint64
}

// IO owns the two chunk-sized scratch buffers used by every operation
// below and the dry-run flag that suppresses writes. It holds no
// scratch storage proportional to device length: both buffers are a
// fixed chunk size regardless of how large the ranges being operated on
// are.
type IO struct {
	device    Device
	dryRun    bool
	chunkSize uint64
	bufA      []byte
	bufB      []byte
	Stats     Stats
}

// New creates an IO wrapping device with the default ChunkSize. When
// dryRun is true, writes are suppressed but reads and fingerprinting
// still occur — see WriteAllAt.
func New(device Device, dryRun bool) *IO {
	return NewSized(device, dryRun, ChunkSize)
}

// NewSized creates an IO wrapping device with an explicit chunk size,
// e.g. one read from config.ChunkSizeBytes. A chunkSize of 0 falls back
// to ChunkSize.
func NewSized(device Device, dryRun bool, chunkSize uint64) *IO {
	if chunkSize == 0 {
		chunkSize = ChunkSize
	}
	return &IO{
		device:    device,
		dryRun:    dryRun,
		chunkSize: chunkSize,
		bufA:      make([]byte, chunkSize),
		bufB:      make([]byte, chunkSize),
	}
}

// DryRun reports whether this IO suppresses writes.
func (d *IO) DryRun() bool {
	return d.dryRun
}

// ReadExactAt reads len(buf) bytes at off, failing if fewer are available.
func (d *IO) ReadExactAt(buf []byte, off uint64) error {
	n, err := d.device.ReadAt(buf, int64(off))
	if err != nil {
		return errs.WrapIO(err, "read %d bytes at offset %d", len(buf), off)
	}
	if n != len(buf) {
		return errs.IOf("short read at offset %d: got %d of %d bytes", off, n, len(buf))
	}
	d.Stats.ReadOps++
	d.Stats.ReadBytes += uint64(n)
	return nil
}

// WriteAllAt writes buf at off, unless this IO is in dry-run mode, in
// which case the call is a no-op success.
func (d *IO) WriteAllAt(buf []byte, off uint64) error {
	if d.dryRun {
		return nil
	}
	n, err := d.device.WriteAt(buf, int64(off))
	if err != nil {
		return errs.WrapIO(err, "write %d bytes at offset %d", len(buf), off)
	}
	if n != len(buf) {
		return errs.IOf("short write at offset %d: wrote %d of %d bytes", off, n, len(buf))
	}
	d.Stats.WriteOps++
	d.Stats.WriteBytes += uint64(n)
	return nil
}

// Fingerprint streams rng through chunk-sized reads and returns a 64-bit
// non-cryptographic hash of the byte stream.
func (d *IO) Fingerprint(rng rangeops.Range) (uint64, error) {
	h := xxhash.New()
	length := rng.Len()
	var read uint64
	for read < length {
		chunkLen := min(d.chunkSize, length-read)
		chunk := d.bufA[:chunkLen]
		if err := d.ReadExactAt(chunk, rng.Start+read); err != nil {
			return 0, err
		}
		_, _ = h.Write(chunk)
		read += chunkLen
	}
	return h.Sum64(), nil
}

// CopySegment copies the length(src) bytes at src to destOffset.
func (d *IO) CopySegment(src rangeops.Range, destOffset uint64) error {
	length := src.Len()
	var done uint64
	for done < length {
		chunkLen := min(d.chunkSize, length-done)
		chunk := d.bufA[:chunkLen]
		if err := d.ReadExactAt(chunk, src.Start+done); err != nil {
			return err
		}
		if err := d.WriteAllAt(chunk, destOffset+done); err != nil {
			return err
		}
		done += chunkLen
	}
	return nil
}

// SwapSegment exchanges the length(src) bytes at src with the bytes at
// destOffset, using two equal-size buffers so neither side is clobbered
// before it has been read.
func (d *IO) SwapSegment(src rangeops.Range, destOffset uint64) error {
	length := src.Len()
	var done uint64
	for done < length {
		chunkLen := min(d.chunkSize, length-done)
		chunkA := d.bufA[:chunkLen]
		chunkB := d.bufB[:chunkLen]

		if err := d.ReadExactAt(chunkA, src.Start+done); err != nil {
			return err
		}
		if err := d.ReadExactAt(chunkB, destOffset+done); err != nil {
			return err
		}
		if err := d.WriteAllAt(chunkA, destOffset+done); err != nil {
			return err
		}
		if err := d.WriteAllAt(chunkB, src.Start+done); err != nil {
			return err
		}
		done += chunkLen
	}
	return nil
}

// FillZeros writes zero bytes across rng.
func (d *IO) FillZeros(rng rangeops.Range) error {
	if d.dryRun {
		return nil
	}
	for i := range d.bufA {
		d.bufA[i] = 0
	}
	length := rng.Len()
	var done uint64
	for done < length {
		chunkLen := min(d.chunkSize, length-done)
		if err := d.WriteAllAt(d.bufA[:chunkLen], rng.Start+done); err != nil {
			return err
		}
		done += chunkLen
	}
	return nil
}
