package palmdb

import (
	"bytes"
	"encoding/binary"
)

// WriteParams holds the fields a writer must supply for a new PalmDB
// envelope. Record 0 is always the MOBI header; records carries
// every record's raw bytes in final order.
type WriteParams struct {
	Name       string // truncated/padded to 32 bytes
	CreateTime uint32 // seconds since 1904
	ModifyTime uint32
	Type       [4]byte // "BOOK"
	Creator    [4]byte // "MOBI"
	UniqueSeed uint32
	Records    [][]byte
}

// Write serializes a complete PalmDB file: 78-byte header, record offset
// table, a 2-byte gap, then the record bodies back to back.
func Write(p WriteParams) []byte {
	var buf bytes.Buffer

	var name [32]byte
	copy(name[:], p.Name)
	buf.Write(name[:])

	writeU16 := func(v uint16) { binary.Write(&buf, binary.BigEndian, v) }
	writeU32 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }

	writeU16(0)             // attributes
	writeU16(0)             // version
	writeU32(p.CreateTime)
	writeU32(p.ModifyTime)
	writeU32(0) // backup time
	writeU32(1) // modification number
	writeU32(0) // app info offset
	writeU32(0) // sort info offset
	buf.Write(p.Type[:])
	buf.Write(p.Creator[:])
	writeU32(p.UniqueSeed)
	writeU32(0) // next record list id
	writeU16(uint16(len(p.Records)))

	headerLen := 78
	tableLen := len(p.Records) * 8
	offset := headerLen + tableLen + 2 // 2 gap bytes before records

	for _, rec := range p.Records {
		writeU32(uint32(offset))
		writeU32(0) // record id/attributes, top byte = attributes = 0
		offset += len(rec)
	}

	buf.Write([]byte{0, 0}) // gap bytes

	for _, rec := range p.Records {
		buf.Write(rec)
	}

	return buf.Bytes()
}
