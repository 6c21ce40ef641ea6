// Package planner turns a streamed extent report into the three work
// collections the shuffler and finalizer drain: the copy-operation index,
// the zero-fill queue, and the post-verification queue.
//
// The planner makes one forward pass over the report, checking the
// device's length and the tiling of destination offsets, and fails closed
// with a Precondition error the moment anything does not line up.
package planner

import (
	"io"

	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/extentmap"
	"github.com/gaby/looplift/internal/interval"
	"github.com/gaby/looplift/internal/rangeops"
)

// CopyOp is a pending move of bytes from Source to Destination. Equality
// is value equality of both fields, matching the report's definition.
type CopyOp struct {
	Source      rangeops.Range
	Destination uint64
}

// Interval satisfies interval.Entry: a CopyOp's key is its source range.
func (c CopyOp) Interval() rangeops.Range { return c.Source }

// Equal satisfies interval.Entry.
func (c CopyOp) Equal(other interval.Entry) bool {
	o, ok := other.(CopyOp)
	return ok && o == c
}

// ZeroOp is a destination range to be filled with zero bytes.
type ZeroOp struct {
	Destination rangeops.Range
}

// VerifyOp records the fingerprint a destination range must have once the
// shuffler and the zero-fill pass have both completed.
type VerifyOp struct {
	Destination rangeops.Range
	Fingerprint uint64
}

// Plan is the output of Plan: the work the shuffler and finalizer drain.
type Plan struct {
	Copies   *interval.Index
	Zeros    []ZeroOp
	Verifies []VerifyOp
}

// Plan reads a report from r, validating it against the device opened
// behind dio, and builds the plan described at package level.
//
// deviceLength is the caller-observed length of the opened device (e.g.
// from seeking to its end); Plan requires it to equal the report's own
// summary.device_length before reading any extent.
func Plan(r io.Reader, dio *diskio.IO, deviceLength uint64) (*Plan, error) {
	reader := extentmap.NewReader(r)

	summary, err := reader.ReadSummary()
	if err != nil {
		return nil, err
	}
	if summary.DeviceLength != deviceLength {
		return nil, errs.Preconditionf(
			"planner: report device_length %d does not match opened device length %d",
			summary.DeviceLength, deviceLength)
	}
	if deviceLength == 0 {
		return nil, errs.Preconditionf("planner: device_length must be positive, got 0")
	}

	plan := &Plan{Copies: interval.New(deviceLength)}

	var next uint64
	for {
		ext, err := reader.ReadExtent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if ext.Length == 0 {
			return nil, errs.Preconditionf("planner: extent at destination %d has zero length", ext.DestinationOffset)
		}
		if ext.DestinationOffset != next {
			return nil, errs.Preconditionf(
				"planner: tiling gap or overlap: expected next destination offset %d, got %d",
				next, ext.DestinationOffset)
		}

		dest := rangeops.Of(ext.DestinationOffset, ext.Length)

		switch ext.Source.Kind {
		case extentmap.Zeros:
			plan.Zeros = append(plan.Zeros, ZeroOp{Destination: dest})

		case extentmap.FromOffset:
			src := rangeops.Of(ext.Source.Offset, ext.Length)
			if src.End > deviceLength {
				return nil, errs.Preconditionf(
					"planner: source range %v for destination offset %d exceeds device length %d",
					src, ext.DestinationOffset, deviceLength)
			}

			fp, err := dio.Fingerprint(src)
			if err != nil {
				return nil, err
			}
			if fp != ext.Source.Checksum {
				return nil, errs.Preconditionf(
					"planner: fingerprint mismatch at source offset %d length %d: recorded %x, observed %x",
					ext.Source.Offset, ext.Length, ext.Source.Checksum, fp)
			}

			plan.Verifies = append(plan.Verifies, VerifyOp{Destination: dest, Fingerprint: ext.Source.Checksum})

			op := CopyOp{Source: src, Destination: ext.DestinationOffset}
			if !plan.Copies.Insert(op) {
				return nil, errs.Preconditionf(
					"planner: duplicate copy operation for source range %v (malformed report)", src)
			}

		default:
			errs.Bug("planner: extent has unknown source kind %d", ext.Source.Kind)
		}

		next += ext.Length
	}

	if next != deviceLength {
		return nil, errs.Preconditionf(
			"planner: report extents tile only %d of %d device bytes", next, deviceLength)
	}

	return plan, nil
}
