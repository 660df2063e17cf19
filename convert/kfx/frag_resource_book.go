package kfx

import (
	"bytes"
	"image"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/config"
	"bookforge/jpegquality"
	imgutil "bookforge/utils/images"
)

// fontExtensions recognizes font assets by file extension, since
// book.Metadata carries no font-specific fields (fonts are plain assets
// like images, distinguished only by path).
var fontExtensions = map[string]bool{
	".ttf":   true,
	".otf":   true,
	".woff":  true,
	".woff2": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

func isFontAsset(assetPath string) bool {
	return fontExtensions[strings.ToLower(path.Ext(assetPath))]
}

func isImageAsset(assetPath string) bool {
	return imageExtensions[strings.ToLower(path.Ext(assetPath))]
}

func imageFormatSymbol(assetPath string, data []byte) KFXSymbol {
	switch {
	case isPNGData(data):
		return SymFormatPNG
	case isGIFData(data):
		return SymFormatGIF
	default:
		ext := strings.ToLower(path.Ext(assetPath))
		if ext == ".gif" {
			return SymFormatGIF
		}
		if ext == ".png" {
			return SymFormatPNG
		}
		return SymFormatJPG
	}
}

func isPNGData(data []byte) bool {
	sig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return len(data) >= len(sig) && string(data[:len(sig)]) == string(sig)
}

func isGIFData(data []byte) bool {
	return len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a")
}

func mimeTypeForAsset(assetPath string) string {
	switch strings.ToLower(path.Ext(assetPath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".ttf":
		return "font/ttf"
	case ".otf":
		return "font/otf"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}

// BuildImageResourceFragments walks b.AssetPaths and builds a $164/$417
// fragment pair for every image asset, matching the resource/rsrcN naming
// and format detection used by the reference KFX writer (resources.rs).
// Returns the fragments in asset order plus a path->info lookup used to
// resolve content references and width-based image styles.
//
// imgCfg, if non-nil and imgCfg.Optimize is set, gates JPEG recompression
// of the cover image: jpegquality probes the cover's existing quantization
// table, and only re-encodes (via imgutil.EncodeJPEGWithDPI) when its
// detected quality exceeds imgCfg.JPEGQuality, mirroring how Amazon's own
// toolchain avoids needlessly re-encoding an already-low-quality JPEG.
func BuildImageResourceFragments(b *book.Book, imgDims func(data []byte) (w, h int, ok bool), imgCfg *config.ImagesConfig, log *zap.Logger) ([]*Fragment, imageResourceInfoByID, error) {
	var frags []*Fragment
	info := make(imageResourceInfoByID)
	idx := 0
	coverPath := book.NormalizePath(b.Metadata.CoverHref)

	for _, assetPath := range b.AssetPaths {
		if !isImageAsset(assetPath) {
			continue
		}
		data, err := b.Asset(assetPath)
		if err != nil {
			return nil, nil, err
		}

		if assetPath == coverPath {
			data = maybeRecompressCoverJPEG(assetPath, data, imgCfg, log)
		}

		resourceName := bookResourceName(idx)
		idx++

		width, height := 0, 0
		if imgDims != nil {
			if w, h, ok := imgDims(data); ok {
				width, height = w, h
			}
		}

		location := "resource/" + resourceName
		resDesc := NewExternalResource(location, imageFormatSymbol(assetPath, data), mimeTypeForAsset(assetPath), int64(width), int64(height))

		frags = append(frags,
			&Fragment{FType: SymExtResource, FIDName: resourceName, Value: resDesc.Set(SymResourceName, SymbolByName(resourceName))},
			&Fragment{FType: SymRawMedia, FIDName: location, Value: RawValue(data)},
		)

		info[assetPath] = imageResourceInfo{ResourceName: resourceName, Width: width, Height: height}
	}

	return frags, info, nil
}

// maybeRecompressCoverJPEG probes data's existing JPEG quality and
// re-encodes it at imgCfg.JPEGQuality when the source is already better
// than requested. Non-JPEG covers, and any probe/decode failure, pass
// data through unchanged rather than risk corrupting the cover image.
func maybeRecompressCoverJPEG(assetPath string, data []byte, imgCfg *config.ImagesConfig, log *zap.Logger) []byte {
	if imgCfg == nil || !imgCfg.Optimize {
		return data
	}
	if isPNGData(data) || isGIFData(data) {
		return data
	}

	qr, err := jpegquality.NewWithBytes(data)
	if err != nil {
		if log != nil {
			log.Debug("unable to detect cover JPEG quality, leaving it alone", zap.String("asset", assetPath), zap.Error(err))
		}
		return data
	}
	detected := qr.Quality()
	if detected <= imgCfg.JPEGQuality {
		if log != nil {
			log.Debug("cover JPEG quality already at or below requested level, skipping recompression",
				zap.String("asset", assetPath), zap.Int("detected", detected), zap.Int("requested", imgCfg.JPEGQuality))
		}
		return data
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if log != nil {
			log.Warn("unable to decode cover JPEG for recompression, leaving it alone", zap.String("asset", assetPath), zap.Error(err))
		}
		return data
	}
	recompressed, err := imgutil.EncodeJPEGWithDPI(img, imgCfg.JPEGQuality, imgutil.DpiNoUnits, 0, 0)
	if err != nil {
		if log != nil {
			log.Warn("unable to recompress cover JPEG, leaving it alone", zap.String("asset", assetPath), zap.Error(err))
		}
		return data
	}
	if log != nil {
		log.Debug("recompressed cover JPEG", zap.String("asset", assetPath), zap.Int("detected", detected), zap.Int("requested", imgCfg.JPEGQuality))
	}
	return recompressed
}

func bookResourceName(idx int) string {
	return "rsrc" + strconv.Itoa(idx)
}
