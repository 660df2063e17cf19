// Code generated by go-enum. Hand-maintained here since the go:generate
// invocation (github.com/abice/go-enum) is not run as part of this build;
// keep in sync with the ENUM() directives in enums.go if they change.
package config

import "fmt"

const (
	FootnotesModeDefault FootnotesMode = iota
	FootnotesModeFloat
	FootnotesModeFloatRenumbered
)

var footnotesModeNames = [...]string{"default", "float", "floatRenumbered"}

func (f FootnotesMode) String() string {
	if f < 0 || int(f) >= len(footnotesModeNames) {
		return fmt.Sprintf("FootnotesMode(%d)", int(f))
	}
	return footnotesModeNames[f]
}

func (f FootnotesMode) IsValid() bool {
	return f >= 0 && int(f) < len(footnotesModeNames)
}

const (
	ImageResizeModeNone ImageResizeMode = iota
	ImageResizeModeKeepAR
	ImageResizeModeStretch
)

var imageResizeModeNames = [...]string{"none", "keepAR", "stretch"}

func (i ImageResizeMode) String() string {
	if i < 0 || int(i) >= len(imageResizeModeNames) {
		return fmt.Sprintf("ImageResizeMode(%d)", int(i))
	}
	return imageResizeModeNames[i]
}

func (i ImageResizeMode) IsValid() bool {
	return i >= 0 && int(i) < len(imageResizeModeNames)
}

const (
	TOCPagePlacementNone TOCPagePlacement = iota
	TOCPagePlacementBefore
	TOCPagePlacementAfter
)

var tocPagePlacementNames = [...]string{"none", "before", "after"}

func (t TOCPagePlacement) String() string {
	if t < 0 || int(t) >= len(tocPagePlacementNames) {
		return fmt.Sprintf("TOCPagePlacement(%d)", int(t))
	}
	return tocPagePlacementNames[t]
}

func (t TOCPagePlacement) IsValid() bool {
	return t >= 0 && int(t) < len(tocPagePlacementNames)
}

const (
	VignettePosBookTitleTop       VignettePos = "book-title-top"
	VignettePosBookTitleBottom    VignettePos = "book-title-bottom"
	VignettePosChapterTitleTop    VignettePos = "chapter-title-top"
	VignettePosChapterTitleBottom VignettePos = "chapter-title-bottom"
	VignettePosChapterEnd         VignettePos = "chapter-end"
	VignettePosSectionTitleTop    VignettePos = "section-title-top"
	VignettePosSectionTitleBottom VignettePos = "section-title-bottom"
	VignettePosSectionEnd         VignettePos = "section-end"
)

const (
	OutputFmtEpub2 OutputFmt = iota
	OutputFmtEpub3
	OutputFmtAzw3
	OutputFmtKfx
)

var outputFmtNames = [...]string{"epub2", "epub3", "azw3", "kfx"}

func OutputFmtNames() []string {
	return append([]string(nil), outputFmtNames[:]...)
}

func (o OutputFmt) String() string {
	if o < 0 || int(o) >= len(outputFmtNames) {
		return fmt.Sprintf("OutputFmt(%d)", int(o))
	}
	return outputFmtNames[o]
}

func (o OutputFmt) IsValid() bool {
	return o >= 0 && int(o) < len(outputFmtNames)
}

func ParseOutputFmt(s string) (OutputFmt, error) {
	for i, n := range outputFmtNames {
		if equalFold(n, s) {
			return OutputFmt(i), nil
		}
	}
	return OutputFmt(0), fmt.Errorf("%q is not a valid OutputFmt", s)
}

func MustParseOutputFmt(s string) OutputFmt {
	v, err := ParseOutputFmt(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (o OutputFmt) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%q is not a valid OutputFmt", o.String())
	}
	return []byte(o.String()), nil
}

func (o *OutputFmt) UnmarshalText(text []byte) error {
	v, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
