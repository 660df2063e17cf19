// Package palmdb parses the 78-byte Palm database header and record
// offset table shared by MOBI and AZW3 files.
package palmdb

import (
	"encoding/binary"

	"bookforge/bookerr"
)

const (
	headerLen    = 78
	recordEntLen = 8
)

// ByteSource is random-access storage over a file or in-memory buffer.
// Implementations must serialize concurrent seek+read pairs
// internally; no caller assumes sequential access.
type ByteSource interface {
	Len() int64
	ReadAt(offset int64, n int) ([]byte, error)
}

// MemSource is a ByteSource backed by an in-memory byte slice.
type MemSource struct{ Data []byte }

func (m *MemSource) Len() int64 { return int64(len(m.Data)) }

func (m *MemSource) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset > int64(len(m.Data)) {
		return nil, bookerr.New(bookerr.InputIo, "read offset out of range")
	}
	end := offset + int64(n)
	if end > int64(len(m.Data)) {
		return nil, bookerr.New(bookerr.InputIo, "short read")
	}
	return m.Data[offset:end], nil
}

// recordEntry is one (record_offset, record_id) pair from the offset
// table. The top byte of the id word carries record attributes.
type recordEntry struct {
	offset uint32
	id     uint32
}

// Info holds the parsed PalmDB header and record table.
type Info struct {
	Name       string
	Attributes uint16
	Version    uint16
	CreateTime uint32
	ModifyTime uint32
	BackupTime uint32
	ModNum     uint32
	Type       [4]byte
	Creator    [4]byte
	UniqueSeed uint32

	records []recordEntry
	fileLen int64
}

// RecordCount returns the number of records declared in the offset table.
func (i *Info) RecordCount() int { return len(i.records) }

// RecordRange returns the half-open byte range [start, end) for record i,
// clamped to file length for the trailing record.
func (i *Info) RecordRange(idx int) (start, end int64, err error) {
	if idx < 0 || idx >= len(i.records) {
		return 0, 0, bookerr.New(bookerr.InvalidContainer, "record index out of range")
	}
	start = int64(i.records[idx].offset)
	if idx+1 < len(i.records) {
		end = int64(i.records[idx+1].offset)
	} else {
		end = i.fileLen
	}
	if end > i.fileLen {
		end = i.fileLen
	}
	if end < start {
		return 0, 0, bookerr.New(bookerr.InvalidContainer, "record offsets out of order")
	}
	return start, end, nil
}

// ReadRecord reads record i's bytes from src.
func (i *Info) ReadRecord(src ByteSource, idx int) ([]byte, error) {
	start, end, err := i.RecordRange(idx)
	if err != nil {
		return nil, err
	}
	return src.ReadAt(start, int(end-start))
}

// Parse reads the PalmDB header and offset table from src.
func Parse(src ByteSource) (*Info, error) {
	fileLen := src.Len()
	if fileLen < headerLen {
		return nil, bookerr.New(bookerr.InvalidContainer, "file too short for PalmDB header")
	}
	hdr, err := src.ReadAt(0, headerLen)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InputIo, "reading PalmDB header", err)
	}

	info := &Info{fileLen: fileLen}
	info.Name = trimName(hdr[0:32])
	info.Attributes = binary.BigEndian.Uint16(hdr[32:34])
	info.Version = binary.BigEndian.Uint16(hdr[34:36])
	info.CreateTime = binary.BigEndian.Uint32(hdr[36:40])
	info.ModifyTime = binary.BigEndian.Uint32(hdr[40:44])
	info.BackupTime = binary.BigEndian.Uint32(hdr[44:48])
	info.ModNum = binary.BigEndian.Uint32(hdr[48:52])
	copy(info.Type[:], hdr[60:64])
	copy(info.Creator[:], hdr[64:68])
	info.UniqueSeed = binary.BigEndian.Uint32(hdr[68:72])
	recCount := binary.BigEndian.Uint16(hdr[76:78])

	tableLen := int64(recCount) * recordEntLen
	if headerLen+tableLen > fileLen {
		return nil, bookerr.New(bookerr.InvalidContainer, "record offset table extends past end of file")
	}
	table, err := src.ReadAt(headerLen, int(tableLen))
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InputIo, "reading PalmDB record table", err)
	}

	info.records = make([]recordEntry, recCount)
	var prevOffset uint32
	for i := 0; i < int(recCount); i++ {
		off := binary.BigEndian.Uint32(table[i*8 : i*8+4])
		id := binary.BigEndian.Uint32(table[i*8+4 : i*8+8])
		if i > 0 && off < prevOffset {
			return nil, bookerr.New(bookerr.InvalidContainer, "PalmDB record offsets out of order")
		}
		prevOffset = off
		info.records[i] = recordEntry{offset: off, id: id}
	}
	return info, nil
}

func trimName(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
