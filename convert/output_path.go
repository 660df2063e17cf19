package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"bookforge/config"
	"bookforge/state"
)

// buildOutputPath returns the output file path for src: its original
// basename under outDir (preserving the source's relative directory unless
// NoDirs is set), re-extensioned for format.
func buildOutputPath(src, dst string, format config.OutputFmt, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}
	return filepath.Join(outDir, buildDefaultFileName(src, format, env))
}

// writeOutputFile writes data to outputPath, honoring env.Overwrite the same
// way epub.Generate does for the formats that assemble their own archive.
func writeOutputFile(outputPath string, data []byte, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputPath); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputPath)
		}
		log.Warn("overwriting existing file", zap.String("file", outputPath))
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return os.WriteFile(outputPath, data, 0644)
}

func buildDefaultFileName(src string, format config.OutputFmt, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Document.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + format.Ext()
}
