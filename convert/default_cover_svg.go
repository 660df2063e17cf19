package convert

import "bookforge/utils/images"

// defaultCoverSVG is rasterized into a plain JPEG cover for inputs that have
// no cover image of their own and env.Cfg.Document.Images.Cover.Generate is
// set (always true for Kindle formats).
var defaultCoverSVG = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 600 800">
  <rect width="600" height="800" fill="#ffffff"/>
  <rect x="20" y="20" width="560" height="760" fill="none" stroke="#000000" stroke-width="2"/>
  <line x1="100" y1="400" x2="500" y2="400" stroke="#000000" stroke-width="1"/>
</svg>`)

// renderDefaultCover rasterizes defaultCoverSVG at a fixed 1200x1600 pixels
// and encodes it as a JPEG, for use as env.DefaultCover.
func renderDefaultCover() ([]byte, error) {
	img, err := images.RasterizeSVGToImage(defaultCoverSVG, 1200, 1600, 0)
	if err != nil {
		return nil, err
	}
	return images.EncodeJPEGWithDPI(img, 90, images.DpiNoUnits, 0, 0)
}
