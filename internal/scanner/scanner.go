// Package scanner produces the extent report the planner later consumes:
// for a file living on a mounted filesystem, it walks the file's physical
// extents via internal/fiemap, and for each mapped region fingerprints
// the device at the reported physical offset, asserting it matches the
// file's own bytes at the corresponding logical offset.
//
// Sparse holes and the tail past the last extent become Zeros records;
// unwritten extents become Zeros records without a device read; encoded
// extents are refused; everything else becomes an Offset record carrying
// the fingerprint the planner will re-check at lift time.
package scanner

import (
	"os"

	"github.com/dustin/go-humanize"

	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/extentmap"
	"github.com/gaby/looplift/internal/fiemap"
	"github.com/gaby/looplift/internal/rangeops"
	"github.com/gaby/looplift/internal/runlog"
)

// Progress is notified with the current logical offset as the scan
// proceeds, so the caller can drive a runlog.Progress ticker without this
// package depending on how progress is displayed.
type Progress func(logicalOffset uint64)

// Scan reads file's physical extents and writes a complete report to w:
// one Summary record followed by Extent records tiling [0, fileLength).
// device is opened read-only alongside file purely to fingerprint the
// bytes FIEMAP claims are already there; Scan never writes to device.
// chunkSize sizes the underlying diskio.IO buffers; 0 falls back to
// diskio.ChunkSize.
func Scan(file, device *os.File, w *extentmap.Writer, chunkSize uint64, onProgress Progress) error {
	info, err := file.Stat()
	if err != nil {
		return errs.WrapIO(err, "scanner: stat file")
	}
	fileLength := uint64(info.Size())
	if fileLength == 0 {
		return errs.Preconditionf("scanner: file is empty, nothing to lift")
	}

	if err := validateDeviceSize(device, fileLength); err != nil {
		return err
	}

	if err := w.WriteSummary(extentmap.Summary{DeviceLength: fileLength}); err != nil {
		return err
	}

	dio := diskio.NewSized(device, false, chunkSize)
	fileIO := diskio.NewSized(file, false, chunkSize)

	var logicalOffset uint64
	for logicalOffset < fileLength {
		if onProgress != nil {
			onProgress(logicalOffset)
		}

		extents, err := fiemap.Query(int(file.Fd()), logicalOffset, fileLength-logicalOffset)
		if err != nil {
			return err
		}
		if len(extents) == 0 {
			// No more mapped extents: the remainder is a hole.
			if err := w.WriteExtent(extentmap.Extent{
				DestinationOffset: logicalOffset,
				Length:            fileLength - logicalOffset,
				Source:            extentmap.Source{Kind: extentmap.Zeros},
			}); err != nil {
				return err
			}
			logicalOffset = fileLength
			break
		}

		for _, e := range extents {
			if e.Flags.Has(fiemap.ExtentEncoded) {
				return errs.Preconditionf("scanner: extent at logical offset %d uses an unsupported encoding", e.Logical)
			}
			if e.Logical < logicalOffset || e.Logical >= fileLength {
				errs.Bug("scanner: FIEMAP returned extent at logical offset %d outside the expected window [%d, %d)", e.Logical, logicalOffset, fileLength)
			}

			if e.Logical > logicalOffset {
				if err := w.WriteExtent(extentmap.Extent{
					DestinationOffset: logicalOffset,
					Length:            e.Logical - logicalOffset,
					Source:            extentmap.Source{Kind: extentmap.Zeros},
				}); err != nil {
					return err
				}
			}

			readable := min(fileLength-e.Logical, e.Length)

			if e.Flags.Has(fiemap.ExtentUnwritten) {
				if err := w.WriteExtent(extentmap.Extent{
					DestinationOffset: e.Logical,
					Length:            readable,
					Source:            extentmap.Source{Kind: extentmap.Zeros},
				}); err != nil {
					return err
				}
			} else {
				csum, err := checkEqualityAndFingerprint(fileIO, e.Logical, dio, e.Physical, readable)
				if err != nil {
					return err
				}
				if err := w.WriteExtent(extentmap.Extent{
					DestinationOffset: e.Logical,
					Length:            readable,
					Source:            extentmap.Source{Kind: extentmap.FromOffset, Offset: e.Physical, Checksum: csum},
				}); err != nil {
					return err
				}
			}

			logicalOffset = e.Logical + readable

			if e.Last() {
				if fileLength > logicalOffset {
					if err := w.WriteExtent(extentmap.Extent{
						DestinationOffset: logicalOffset,
						Length:            fileLength - logicalOffset,
						Source:            extentmap.Source{Kind: extentmap.Zeros},
					}); err != nil {
						return err
					}
				}
				logicalOffset = fileLength
				break
			}
		}
	}

	if onProgress != nil {
		onProgress(fileLength)
	}

	runlog.Default().Printf("scan: read %s in %s operations",
		humanize.Bytes(fileIO.Stats.ReadBytes+dio.Stats.ReadBytes),
		humanize.Comma(int64(fileIO.Stats.ReadOps+dio.Stats.ReadOps)))

	return nil
}

// checkEqualityAndFingerprint reads the same length from both file at
// fileOffset and device at deviceOffset, requires the bytes to be
// byte-for-byte equal (the file may have changed since FIEMAP reported
// this mapping), and returns the device-side fingerprint — the value the
// planner will re-check against the device at lift time.
func checkEqualityAndFingerprint(file *diskio.IO, fileOffset uint64, device *diskio.IO, deviceOffset, length uint64) (uint64, error) {
	fileBytes := rangeops.Of(fileOffset, length)
	deviceBytes := rangeops.Of(deviceOffset, length)

	fileFP, err := file.Fingerprint(fileBytes)
	if err != nil {
		return 0, err
	}
	deviceFP, err := device.Fingerprint(deviceBytes)
	if err != nil {
		return 0, err
	}
	if fileFP != deviceFP {
		return 0, errs.Preconditionf(
			"scanner: file bytes at offset %d do not match device bytes at physical offset %d: the source changed between open and scan",
			fileOffset, deviceOffset)
	}
	return deviceFP, nil
}

// validateDeviceSize checks device is exactly size bytes long by reading
// its last required byte and then requiring nothing past it.
func validateDeviceSize(device *os.File, size uint64) error {
	var buf [1]byte
	if _, err := device.ReadAt(buf[:], int64(size-1)); err != nil {
		return errs.Preconditionf("scanner: device is smaller than the file to lift: %w", err)
	}
	if n, _ := device.ReadAt(buf[:], int64(size)); n != 0 {
		return errs.Preconditionf("scanner: device is larger than the file to lift")
	}
	return nil
}
