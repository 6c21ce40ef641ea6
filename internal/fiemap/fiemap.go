// Package fiemap wraps the Linux FS_IOC_FIEMAP ioctl: given an open file,
// it reports the file's physical-extent map — where on the underlying
// block device each run of the file's logical bytes actually lives.
//
// Struct layouts mirror linux/fiemap.h directly (fiemap, fiemap_extent,
// FS_IOC_FIEMAP); the ioctl invocation uses the unix.Syscall(unix.SYS_IOCTL,
// ...) idiom rather than golang.org/x/sys/unix's higher-level helpers,
// since FIEMAP's variable-length trailing array has no stdlib wrapper.
package fiemap

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gaby/looplift/internal/errs"
)

// extentsPerCall sizes the fixed fm_extents array inlined in wireRequest;
// FIEMAP is called repeatedly, advancing fm_start past the last extent
// returned, until every extent has been retrieved.
const extentsPerCall = 32

// ExtentFlag holds the FIEMAP_EXTENT_* bits describing one mapped extent.
type ExtentFlag uint32

const (
	ExtentLast        ExtentFlag = 0x00000001
	ExtentUnknown     ExtentFlag = 0x00000002
	ExtentDelalloc    ExtentFlag = 0x00000004
	ExtentEncoded     ExtentFlag = 0x00000008
	ExtentEncrypted   ExtentFlag = 0x00000080
	ExtentNotAligned  ExtentFlag = 0x00000100
	ExtentDataInline  ExtentFlag = 0x00000200
	ExtentDataTail    ExtentFlag = 0x00000400
	ExtentUnwritten   ExtentFlag = 0x00000800
	ExtentMerged      ExtentFlag = 0x00001000
	ExtentShared      ExtentFlag = 0x00002000
	knownExtentFlags  = ExtentLast | ExtentUnknown | ExtentDelalloc | ExtentEncoded |
		ExtentEncrypted | ExtentNotAligned | ExtentDataInline | ExtentDataTail |
		ExtentUnwritten | ExtentMerged | ExtentShared
)

// Has reports whether flags contains all bits in want.
func (f ExtentFlag) Has(want ExtentFlag) bool { return f&want == want }

// requestFlagSync asks the kernel to flush dirty pages before mapping, so
// the extent map reflects data actually committed to the device. The only
// FIEMAP_FLAG_* bit this package sets.
const requestFlagSync uint32 = 0x00000001

// wireExtent mirrors struct fiemap_extent from linux/fiemap.h.
type wireExtent struct {
	Logical      uint64
	Physical     uint64
	Length       uint64
	reserved64   [2]uint64
	Flags        uint32
	reserved32   [3]uint32
}

// wireRequest mirrors struct fiemap from linux/fiemap.h, with its
// fm_extents array inlined at a fixed size instead of a flexible array
// member, since Go structs cannot express FAMs.
type wireRequest struct {
	Start         uint64
	Length        uint64
	Flags         uint32
	MappedExtents uint32
	ExtentCount   uint32
	reserved      uint32
	extents       [extentsPerCall]wireExtent
}

// requestHeaderSize is sizeof(struct fiemap) without the trailing
// fm_extents array, used by fsIOCFiemap below exactly as the reference
// implementation computes it from its FiemapRequest type (the struct
// without the array field).
const requestHeaderSize = 8 + 8 + 4 + 4 + 4 + 4

// fsIOCFiemap reconstructs the FS_IOC_FIEMAP ioctl request code from its
// components (direction, size, type, number) instead of hard-coding it,
// so an unexpected struct size is caught rather than silently
// misinterpreted by the kernel.
func fsIOCFiemap() uintptr {
	const (
		sizeMask = 0x3FFF
		dirBits  = uint64(0b11) << 30
		typ      = uint64('f')
		nr       = uint64(11)
	)
	return uintptr(dirBits | ((uint64(requestHeaderSize) & sizeMask) << 16) | (typ << 8) | nr)
}

// Extent is one mapped run of a file's logical bytes onto the underlying
// device, decoded from a wireExtent with its flags validated.
type Extent struct {
	Logical  uint64
	Physical uint64
	Length   uint64
	Flags    ExtentFlag
}

// Last reports whether this is the final extent the kernel will report
// for the file.
func (e Extent) Last() bool { return e.Flags.Has(ExtentLast) }

// Unwritten reports whether this extent is allocated-but-unwritten
// (reads as zero) rather than backed by real device bytes.
func (e Extent) Unwritten() bool { return e.Flags.Has(ExtentUnwritten) }

// Query retrieves every extent covering [start, start+length) of fd,
// calling FS_IOC_FIEMAP as many times as needed to drain fm_extents.
func Query(fd int, start, length uint64) ([]Extent, error) {
	var out []Extent

	for {
		req := wireRequest{
			Start:       start,
			Length:      length,
			Flags:       requestFlagSync,
			ExtentCount: extentsPerCall,
		}

		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), fsIOCFiemap(), uintptr(unsafe.Pointer(&req)))
		if errno != 0 {
			return nil, errs.WrapIO(errno, "fiemap: FS_IOC_FIEMAP ioctl at start=%d length=%d", start, length)
		}

		if req.MappedExtents == 0 {
			return out, nil
		}

		var advanced bool
		for i := uint32(0); i < req.MappedExtents; i++ {
			we := req.extents[i]
			if we.Flags&^uint32(knownExtentFlags) != 0 {
				return nil, errs.Preconditionf("fiemap: extent at logical offset %d has unknown flag bits %#x", we.Logical, we.Flags)
			}

			e := Extent{Logical: we.Logical, Physical: we.Physical, Length: we.Length, Flags: ExtentFlag(we.Flags)}
			out = append(out, e)

			next := we.Logical + we.Length
			if next > start {
				length -= next - start
				start = next
				advanced = true
			}

			if e.Last() {
				return out, nil
			}
		}

		if !advanced {
			errs.Bug("fiemap: FS_IOC_FIEMAP returned extents without advancing past start=%d", start)
		}
	}
}
