package kfx

import (
	"bytes"
	"compress/zlib"
	"crypto/rand"
	"encoding/binary"
)

const (
	fontObfuscationXORLength = 1040
	fontXORKeyLength         = 20
	fontHeaderLength         = 24
)

const fontFlagZlib = 1 << 0
const fontFlagXOR = 1 << 1

// wrapFontResource encodes raw font bytes inside a $418 (bcRawFont) payload:
// a 24-byte "FONT" header, an optional 20-byte XOR key, then the zlib-
// compressed font data. Zlib compression
// is always applied; XOR obfuscation is applied only when the compressed
// payload is at least 1040 bytes, and then only to the leading 1040 bytes
// (or the whole payload if shorter), with the key wrapped mod 20.
func wrapFontResource(fontData []byte) ([]byte, error) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(fontData); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	payload := compressed.Bytes()

	flags := uint32(fontFlagZlib)
	var key []byte
	if len(payload) >= fontObfuscationXORLength {
		flags |= fontFlagXOR
		key = make([]byte, fontXORKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		xorLen := fontObfuscationXORLength
		if len(payload) < xorLen {
			xorLen = len(payload)
		}
		for i := 0; i < xorLen; i++ {
			payload[i] ^= key[i%fontXORKeyLength]
		}
	}

	dataStart := uint32(fontHeaderLength)
	keyStart := uint32(0)
	xorKeyLength := uint32(0)
	if flags&fontFlagXOR != 0 {
		keyStart = dataStart
		xorKeyLength = fontXORKeyLength
		dataStart += fontXORKeyLength
	}

	var out bytes.Buffer
	out.WriteString("FONT")
	binary.Write(&out, binary.LittleEndian, uint32(len(fontData)))
	binary.Write(&out, binary.LittleEndian, flags)
	binary.Write(&out, binary.LittleEndian, dataStart)
	binary.Write(&out, binary.LittleEndian, xorKeyLength)
	binary.Write(&out, binary.LittleEndian, keyStart)
	if len(key) > 0 {
		out.Write(key)
	}
	out.Write(payload)

	return out.Bytes(), nil
}

// BuildFontResourceFragments walks b.AssetPaths for font assets and builds a
// $164/$418 fragment pair for each, with the raw payload wrapped per
// wrapFontResource. Fonts are always included regardless of whether any
// style references them, matching the reference writer's resource pass.
func BuildFontResourceFragments(assetPaths []string, loadAsset func(path string) ([]byte, error), startIndex int) ([]*Fragment, map[string]string, error) {
	var frags []*Fragment
	resourceNames := make(map[string]string) // assetPath -> resource name
	idx := startIndex

	for _, assetPath := range assetPaths {
		if !isFontAsset(assetPath) {
			continue
		}
		data, err := loadAsset(assetPath)
		if err != nil {
			return nil, nil, err
		}
		wrapped, err := wrapFontResource(data)
		if err != nil {
			return nil, nil, err
		}

		resourceName := bookResourceName(idx)
		idx++
		location := "resource/" + resourceName

		resDesc := NewStruct().
			SetSymbol(SymFormat, SymFormatFont).
			SetString(SymMIME, mimeTypeForAsset(assetPath)).
			SetString(SymLocation, location).
			Set(SymResourceName, SymbolByName(resourceName))

		frags = append(frags,
			&Fragment{FType: SymExtResource, FIDName: resourceName, Value: resDesc},
			&Fragment{FType: SymRawFont, FIDName: location, Value: RawValue(wrapped)},
		)
		resourceNames[assetPath] = resourceName
	}

	return frags, resourceNames, nil
}
