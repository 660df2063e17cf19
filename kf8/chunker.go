package kf8

import (
	"bytes"
	"fmt"
)

// aidableTags is roughly the block-level HTML5 element set that the
// chunker tags with aid attributes.
var aidableTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "ul": true, "ol": true,
	"li": true, "table": true, "tr": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"figure": true, "figcaption": true, "img": true, "svg": true, "hr": true,
	"header": true, "footer": true, "nav": true, "aside": true, "span": true,
}

// Chunker assembles the flow-0 byte stream from per-chapter HTML blobs,
// tagging aid-able elements and deferring kindle:pos placeholders for a
// single patch pass at the end. It is created fresh for each
// write operation and dropped on completion"no global
// state".
type Chunker struct {
	aidCounter  uint64
	IDToAid     map[string]string
	ByteposToAid map[int]string // per-chapter byte position -> aid, for MOBI6 filepos compat

	Skeletons []Skel
	Fragments []Frag
	Pending   []PendingRef
	Stream    []byte
}

// NewChunker creates an empty Chunker.
func NewChunker() *Chunker {
	return &Chunker{
		IDToAid:      make(map[string]string),
		ByteposToAid: make(map[int]string),
	}
}

// nextAid returns the next 4-character base-32 aid.
func (c *Chunker) nextAid() string {
	import_ := aidEncode(c.aidCounter)
	c.aidCounter++
	return import_
}

func aidEncode(n uint64) string {
	// 4-character base-32, matching kindleref.go's encoding.
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUV"
	buf := [4]byte{}
	for i := 3; i >= 0; i-- {
		buf[i] = alphabet[n&0x1F]
		n >>= 5
	}
	return string(buf[:])
}

// AddChapter tags aid-able open tags in html, lays it out as a single
// skeleton+fragment, and appends it to the
// accumulated flow-0 stream.
func (c *Chunker) AddChapter(fileNumber int, html []byte) {
	tagged, ids := c.tagAids(html)

	start := len(c.Stream)
	length := len(tagged)
	c.Stream = append(c.Stream, tagged...)

	c.Skeletons = append(c.Skeletons, Skel{
		FileNumber:    fileNumber,
		FragmentCount: 1,
		Start:         start,
		Length:        length,
	})
	c.Fragments = append(c.Fragments, Frag{
		InsertPos:   length,
		FileNumber:  fileNumber,
		SequenceNum: fileNumber,
		Start:       start,
		Length:      length,
	})

	for id, aid := range ids {
		c.IDToAid[id] = aid
	}
}

// tagAids rewrites each aid-able open tag to add aid="XXXX", returning
// the tagged bytes and a map from that chapter's id="..." attributes to
// their assigned aid.
func (c *Chunker) tagAids(html []byte) ([]byte, map[string]string) {
	var out bytes.Buffer
	ids := make(map[string]string)
	i := 0
	for i < len(html) {
		if html[i] != '<' {
			out.WriteByte(html[i])
			i++
			continue
		}
		// Not a closing tag or comment/doctype: look for a tag name.
		if i+1 < len(html) && (html[i+1] == '/' || html[i+1] == '!' || html[i+1] == '?') {
			out.WriteByte(html[i])
			i++
			continue
		}
		tagEnd := bytes.IndexByte(html[i:], '>')
		if tagEnd < 0 {
			out.Write(html[i:])
			break
		}
		tag := html[i : i+tagEnd+1]
		name := tagName(tag)
		if aidableTags[name] {
			aid := c.nextAid()
			if id := attrValue(tag, "id"); id != "" {
				ids[id] = aid
			}
			out.Write(insertAttr(tag, "aid", aid))
		} else {
			out.Write(tag)
		}
		i += tagEnd + 1
	}
	return out.Bytes(), ids
}

func tagName(tag []byte) string {
	i := 1
	for i < len(tag) && (tag[i] == ' ' || tag[i] == '\t' || tag[i] == '\n') {
		i++
	}
	start := i
	for i < len(tag) && tag[i] != ' ' && tag[i] != '\t' && tag[i] != '\n' && tag[i] != '>' && tag[i] != '/' {
		i++
	}
	return string(bytes.ToLower(tag[start:i]))
}

func attrValue(tag []byte, attr string) string {
	needle := []byte(attr + `="`)
	idx := bytes.Index(tag, needle)
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len(needle):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return string(rest[:end])
}

func insertAttr(tag []byte, attr, value string) []byte {
	// Insert right after the tag name, before any existing attributes.
	i := 1
	for i < len(tag) && (tag[i] == ' ' || tag[i] == '\t' || tag[i] == '\n') {
		i++
	}
	for i < len(tag) && tag[i] != ' ' && tag[i] != '\t' && tag[i] != '\n' && tag[i] != '>' && tag[i] != '/' {
		i++
	}
	var out bytes.Buffer
	out.Write(tag[:i])
	out.WriteString(fmt.Sprintf(` %s="%s"`, attr, value))
	out.Write(tag[i:])
	return out.Bytes()
}

// DeferPlaceholder appends a 34-byte `kindle:pos:fid:0000:off:...` (with
// a zeroed fid, patched later) to buf and records the pending patch.
func (c *Chunker) DeferPlaceholder(buf []byte, href string) []byte {
	placeholder := EncodePlaceholder(0, 0)
	c.Pending = append(c.Pending, PendingRef{WriteOffset: len(buf), TargetHref: href})
	return append(buf, []byte(placeholder)...)
}

// BuildAidMapFromStream walks the assembled stream with the shared
// aid-attribute scanner to build the sequence/offset map needed to patch
// deferred placeholders.
func (c *Chunker) BuildAidMapFromStream() map[string]AidEntry {
	aidMap := BuildAidMap(c.Stream, nil)
	for aid, e := range aidMap {
		e.SequenceNum = c.sequenceAt(e.AbsoluteOffset)
		e.OffsetInChunk = e.AbsoluteOffset - c.fragmentStart(e.SequenceNum)
		aidMap[aid] = e
	}
	return aidMap
}

func (c *Chunker) sequenceAt(absOffset int) int {
	for _, f := range c.Fragments {
		if absOffset >= f.Start && absOffset < f.Start+f.Length {
			return f.SequenceNum
		}
	}
	return 0
}

func (c *Chunker) fragmentStart(seq int) int {
	for _, f := range c.Fragments {
		if f.SequenceNum == seq {
			return f.Start
		}
	}
	return 0
}
