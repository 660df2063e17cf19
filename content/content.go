// Package content detects an ebook input's container format and parses it
// into the shared book.Book intermediate representation, dispatching to
// the importer for whichever of EPUB, legacy MOBI, KF8/AZW3, or KFX the
// input turns out to be.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/bookerr"
	"bookforge/config"
	"bookforge/convert/epub"
	"bookforge/convert/kfx"
	"bookforge/kf8read"
	"bookforge/palmdb"
	"bookforge/state"
)

// Content wraps a parsed book.Book with the bookkeeping the rest of the
// converter needs regardless of which format it came from.
type Content struct {
	Book         *book.Book
	SrcName      string
	OutputFormat config.OutputFmt
}

// Prepare reads r fully, detects its container format, and parses it into
// a Content. format is the requested output format, carried through
// unchanged for the generator dispatch in convert.Run.
func Prepare(ctx context.Context, r io.Reader, srcName string, format config.OutputFmt, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = state.EnvFromContext(ctx) // validates a LocalEnv is attached to ctx

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, bookerr.Wrap(bookerr.InputIo, "reading "+srcName, err)
	}

	kind, err := detectFormat(data)
	if err != nil {
		return nil, err
	}

	var b *book.Book
	switch kind {
	case formatPalmDB:
		b, err = kf8read.Read(&palmdb.MemSource{Data: data})
	case formatKFX:
		b, err = kfx.Import(data, log)
	case formatEPUB:
		b, err = epub.Import(data, log)
	default:
		return nil, bookerr.New(bookerr.InvalidContainer, "unrecognized ebook container: "+srcName)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s (%s): %w", kind, srcName, err)
	}

	return &Content{Book: b, SrcName: srcName, OutputFormat: format}, nil
}

// Sniff reports whether data's leading bytes match one of the supported
// ebook container signatures, for callers that need to decide whether a
// file is worth handing to Prepare before reading it in full (e.g. walking
// a directory tree or a zip archive looking for convertible input).
func Sniff(data []byte) bool {
	_, err := detectFormat(data)
	return err == nil
}

type containerKind int

const (
	formatUnknown containerKind = iota
	formatPalmDB
	formatEPUB
	formatKFX
)

func (k containerKind) String() string {
	switch k {
	case formatPalmDB:
		return "MOBI/AZW3"
	case formatEPUB:
		return "EPUB"
	case formatKFX:
		return "KFX"
	default:
		return "unknown"
	}
}

// detectFormat sniffs the container magic bytes every supported format
// declares at a fixed offset: PalmDB's 32-byte name field followed by
// "BOOKMOBI" type+creator at offset 60, KFX's "CONT" envelope signature,
// and a ZIP local-file-header signature (EPUB is a ZIP archive whose
// first stored entry is always "mimetype").
func detectFormat(data []byte) (containerKind, error) {
	if len(data) >= 68 && string(data[60:68]) == "BOOKMOBI" {
		return formatPalmDB, nil
	}
	if len(data) >= 4 && string(data[0:4]) == "CONT" {
		return formatKFX, nil
	}
	if len(data) >= 4 && bytes.Equal(data[0:2], []byte{0x50, 0x4B}) {
		return formatEPUB, nil
	}
	return formatUnknown, bookerr.New(bookerr.InvalidContainer, "input does not match any known ebook container signature")
}
