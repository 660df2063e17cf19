// Package jpegquality estimates the encoding quality a JPEG image was saved
// at by reading its quantization tables directly, without decoding the
// image. This lets the asset pipeline decide whether an embedded JPEG is
// already compressed below a requested quality level and can be left alone.
package jpegquality

import (
	"bytes"
	"errors"
	"io"
)

var (
	ErrInvalidJPEG  = errors.New("invalid JPEG header")
	ErrWrongTable   = errors.New("wrong size for quantization table")
	ErrShortSegment = errors.New("short segment length")
	ErrShortDQT     = errors.New("section DQT is too short")
	ErrNoQuantTable = errors.New("no quantization table found")
)

const (
	markerSOI = 0xffd8
	markerEOI = 0xffd9
	markerSOS = 0xffda
	markerDQT = 0xffdb
)

// standalone markers carry no length/payload: TEM and the RSTn restart markers.
func isStandaloneMarker(marker int) bool {
	if marker == 0xff01 {
		return true
	}
	return marker >= 0xffd0 && marker <= 0xffd7
}

// baseLuminanceQuantTable is the IJG quality-50 luminance quantization table
// in zig-zag order, the same table (and the same order) libjpeg - and the
// standard library's image/jpeg encoder - derives every other quality level
// from by linear scaling. Comparing a file's actual table against this one
// inverts that scaling back into an approximate quality percentage.
var baseLuminanceQuantTable = [64]int{
	16, 11, 12, 14, 12, 10, 16, 14,
	13, 14, 18, 17, 16, 19, 24, 40,
	26, 24, 22, 22, 24, 49, 35, 37,
	29, 40, 58, 51, 61, 60, 57, 51,
	56, 55, 64, 72, 92, 78, 64, 68,
	87, 69, 55, 56, 80, 109, 81, 87,
	95, 98, 103, 104, 103, 62, 77, 113,
	121, 112, 100, 120, 92, 101, 103, 99,
}

// Reader holds the quality estimate derived from a parsed JPEG stream.
type Reader struct {
	quality int
}

// Quality returns the estimated JPEG quality, from 1 (heavily compressed)
// to 100 (the quantization table is effectively unity).
func (r *Reader) Quality() int {
	return r.quality
}

// New parses a JPEG stream up to (and not including) the scan data,
// estimating its encoding quality from the quantization table(s) it finds.
func New(rs io.ReadSeeker) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	jr := &jpegReader{rs: rs}
	if jr.readMarker() != markerSOI {
		return nil, ErrInvalidJPEG
	}

	var table [64]int
	haveTable := false

	for {
		marker := jr.readMarker()
		switch {
		case marker == 0:
			return nil, io.ErrUnexpectedEOF
		case marker == markerEOI, marker == markerSOS:
			if !haveTable {
				return nil, ErrNoQuantTable
			}
			return &Reader{quality: estimateQuality(table)}, nil
		case marker == markerSOI, isStandaloneMarker(marker):
			continue
		}

		length, err := jr.readUint16()
		if err != nil {
			return nil, err
		}
		if length < 2 {
			return nil, ErrShortSegment
		}
		segLen := length - 2

		if marker != markerDQT {
			if err := jr.skip(segLen); err != nil {
				return nil, err
			}
			continue
		}

		tables, remaining, err := jr.readDQTSegment(segLen)
		if err != nil {
			return nil, err
		}
		if remaining != 0 {
			return nil, ErrShortDQT
		}
		if t, ok := tables[0]; ok {
			table = t
			haveTable = true
		} else if !haveTable {
			for _, t := range tables {
				table = t
				haveTable = true
				break
			}
		}
	}
}

// NewWithBytes is a convenience wrapper around New for callers that already
// hold the JPEG data in memory.
func NewWithBytes(data []byte) (*Reader, error) {
	return New(bytes.NewReader(data))
}

// estimateQuality inverts the IJG scaling formula (see image/jpeg's
// encoder, section K.1): scale<=100 means quality=(200-scale)/2, while
// scale>100 means quality=5000/scale. Averaging the per-coefficient scale
// estimate across the whole table smooths out rounding noise from any
// single coefficient.
func estimateQuality(table [64]int) int {
	sum := 0.0
	for i, base := range baseLuminanceQuantTable {
		sum += float64(table[i]) * 100.0 / float64(base)
	}
	scale := sum / float64(len(baseLuminanceQuantTable))

	var quality float64
	if scale <= 100 {
		quality = (200 - scale) / 2
	} else {
		quality = 5000 / scale
	}

	q := int(quality + 0.5)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}

// jpegReader is a minimal JPEG marker-segment cursor: just enough to walk
// markers and their segment lengths without decoding any image data.
type jpegReader struct {
	rs io.ReadSeeker
}

// readMarker returns the next marker as 0xff00|code, or 0 on EOF/read error.
// It skips fill bytes (0xff repeated before a marker code) and treats a
// stuffed 0x00 following 0xff as not-a-marker, matching the byte stream a
// real encoder never produces outside entropy-coded scan data - which this
// reader never walks into.
func (jr *jpegReader) readMarker() int {
	var b [1]byte
	for {
		if _, err := io.ReadFull(jr.rs, b[:]); err != nil {
			return 0
		}
		if b[0] == 0xff {
			break
		}
	}
	for {
		if _, err := io.ReadFull(jr.rs, b[:]); err != nil {
			return 0
		}
		if b[0] != 0xff {
			break
		}
	}
	if b[0] == 0x00 {
		return 0
	}
	return 0xff00 | int(b[0])
}

func (jr *jpegReader) readUint16() (int, error) {
	var b [2]byte
	if _, err := io.ReadFull(jr.rs, b[:]); err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

func (jr *jpegReader) skip(n int) error {
	if n == 0 {
		return nil
	}
	_, err := jr.rs.Seek(int64(n), io.SeekCurrent)
	return err
}

// readDQTSegment reads every quantization table packed into one DQT
// segment of the given payload length, keyed by the table id each entry
// declares (0 is always luminance per the JFIF/baseline convention every
// encoder in practice follows), along with any unconsumed byte count
// (non-zero means the segment's length didn't line up with whole tables,
// i.e. it was truncated).
func (jr *jpegReader) readDQTSegment(segLen int) (map[int][64]int, int, error) {
	tables := make(map[int][64]int)
	remaining := segLen

	for remaining > 0 {
		var hdr [1]byte
		if _, err := io.ReadFull(jr.rs, hdr[:]); err != nil {
			return tables, 0, err
		}
		remaining--

		precision := hdr[0] >> 4
		id := int(hdr[0] & 0x0f)
		entrySize := 1
		if precision != 0 {
			entrySize = 2
		}
		need := 64 * entrySize
		if remaining < need {
			return tables, 0, ErrWrongTable
		}

		buf := make([]byte, need)
		if _, err := io.ReadFull(jr.rs, buf); err != nil {
			return tables, 0, err
		}
		remaining -= need

		var table [64]int
		if entrySize == 1 {
			for i := 0; i < 64; i++ {
				table[i] = int(buf[i])
			}
		} else {
			for i := 0; i < 64; i++ {
				table[i] = int(buf[2*i])<<8 | int(buf[2*i+1])
			}
		}
		tables[id] = table
	}

	return tables, remaining, nil
}
