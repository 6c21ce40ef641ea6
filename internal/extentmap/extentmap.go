// Package extentmap is the streaming wire codec for the scan report: one
// Summary record followed by a sequence of Extent records, encoded as
// concatenated JSON objects so a reader can decode record-by-record
// without holding the whole report in memory.
//
// A Source is either the bare string "Zeros" or an object
// {"Offset":{"offset":...,"checksum":...}}, a tagged union encoded by hand
// since the two variants don't share a field shape.
package extentmap

import (
	"encoding/json"
	"io"

	"github.com/gaby/looplift/internal/errs"
)

// Summary is the single header record every report begins with.
type Summary struct {
	DeviceLength uint64 `json:"device_length"`
}

// SourceKind distinguishes a Zeros extent from an Offset extent.
type SourceKind int

const (
	// Zeros marks a destination region that must end up all-zero.
	Zeros SourceKind = iota
	// FromOffset marks a destination region that must end up equal to
	// the device's current bytes at Offset, which fingerprinted to
	// Checksum at scan time.
	FromOffset
)

// Source is the tagged union carried by an Extent record.
type Source struct {
	Kind     SourceKind
	Offset   uint64
	Checksum uint64
}

// Extent is one record in the report body.
type Extent struct {
	DestinationOffset uint64
	Length            uint64
	Source            Source
}

// wireSource is the on-disk shape of Source: "Zeros" or
// {"Offset":{"offset":...,"checksum":...}}.
type wireSource struct {
	Offset *struct {
		Offset   uint64 `json:"offset"`
		Checksum uint64 `json:"checksum"`
	} `json:"Offset,omitempty"`
}

type wireExtent struct {
	DestinationOffset uint64      `json:"destination_offset"`
	Length            uint64      `json:"length"`
	Source            interface{} `json:"source"`
}

// MarshalJSON renders Source as the bare string "Zeros" or an
// {"Offset":{...}} object, matching the reference wire format.
func (s Source) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Zeros:
		return json.Marshal("Zeros")
	case FromOffset:
		return json.Marshal(wireSource{Offset: &struct {
			Offset   uint64 `json:"offset"`
			Checksum uint64 `json:"checksum"`
		}{Offset: s.Offset, Checksum: s.Checksum}})
	default:
		errs.Bug("extentmap: Source has unknown kind %d", s.Kind)
		return nil, nil
	}
}

// UnmarshalJSON accepts either the bare string "Zeros" or an
// {"Offset":{...}} object.
func (s *Source) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != "Zeros" {
			return errs.Preconditionf("extentmap: unknown string source variant %q", asString)
		}
		*s = Source{Kind: Zeros}
		return nil
	}

	var w wireSource
	if err := json.Unmarshal(data, &w); err != nil {
		return errs.Preconditionf("extentmap: malformed source: %w", err)
	}
	if w.Offset == nil {
		return errs.Preconditionf("extentmap: source object missing Offset field")
	}
	*s = Source{Kind: FromOffset, Offset: w.Offset.Offset, Checksum: w.Offset.Checksum}
	return nil
}

// Reader decodes a report record-by-record.
type Reader struct {
	dec *json.Decoder
}

// NewReader wraps r; the caller must first call ReadSummary, then repeat
// ReadExtent until io.EOF.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(r)}
}

// ReadSummary decodes the report's single header record.
func (r *Reader) ReadSummary() (Summary, error) {
	var s Summary
	if err := r.dec.Decode(&s); err != nil {
		return Summary{}, errs.Preconditionf("extentmap: reading report summary: %w", err)
	}
	return s, nil
}

// ReadExtent decodes the next extent record. Returns io.EOF when the
// stream is exhausted.
func (r *Reader) ReadExtent() (Extent, error) {
	var w wireExtent
	w.Source = &Source{}
	if err := r.dec.Decode(&w); err != nil {
		if err == io.EOF {
			return Extent{}, io.EOF
		}
		return Extent{}, errs.Preconditionf("extentmap: reading extent record: %w", err)
	}
	src, ok := w.Source.(*Source)
	if !ok {
		errs.Bug("extentmap: decoded source field has unexpected type %T", w.Source)
	}
	return Extent{
		DestinationOffset: w.DestinationOffset,
		Length:            w.Length,
		Source:            *src,
	}, nil
}

// Writer encodes a report record-by-record.
type Writer struct {
	enc *json.Encoder
}

// NewWriter wraps w; the caller must call WriteSummary exactly once
// before any WriteExtent calls.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// WriteSummary encodes the report's header record.
func (w *Writer) WriteSummary(s Summary) error {
	if err := w.enc.Encode(s); err != nil {
		return errs.WrapIO(err, "extentmap: writing report summary")
	}
	return nil
}

// WriteExtent encodes one extent record.
func (w *Writer) WriteExtent(e Extent) error {
	if err := w.enc.Encode(wireExtent{
		DestinationOffset: e.DestinationOffset,
		Length:            e.Length,
		Source:            e.Source,
	}); err != nil {
		return errs.WrapIO(err, "extentmap: writing extent record")
	}
	return nil
}
