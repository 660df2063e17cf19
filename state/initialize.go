package state

import (
	"embed"
	"time"

	"bookforge/config"
)

//go:embed vignettes/*.svg
var vignetteFiles embed.FS

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		DefaultVignettes: map[config.VignettePos][]byte{
			config.VignettePosBookTitleTop:       mustReadVignette("vignettes/book-title-top.svg"),
			config.VignettePosBookTitleBottom:    mustReadVignette("vignettes/book-title-bottom.svg"),
			config.VignettePosChapterTitleTop:    mustReadVignette("vignettes/chapter-title-top.svg"),
			config.VignettePosChapterTitleBottom: mustReadVignette("vignettes/chapter-title-bottom.svg"),
			config.VignettePosChapterEnd:         mustReadVignette("vignettes/chapter-end.svg"),
			config.VignettePosSectionTitleTop:    mustReadVignette("vignettes/section-title-top.svg"),
			config.VignettePosSectionTitleBottom: mustReadVignette("vignettes/section-title-bottom.svg"),
			config.VignettePosSectionEnd:         mustReadVignette("vignettes/section-end.svg"),
		},
	}
}

func mustReadVignette(name string) []byte {
	data, err := vignetteFiles.ReadFile(name)
	if err != nil {
		panic("embedded vignette missing: " + name + ": " + err.Error())
	}
	return data
}
