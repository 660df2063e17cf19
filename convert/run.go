// Package convert drives end-to-end ebook conversion: locating input files
// (a single file, a directory tree, or files bundled inside a zip archive),
// parsing each into the shared book.Book representation, and writing it
// back out in the requested format.
package convert

import (
	"archive/zip"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bookforge/archive"
	"bookforge/common"
	"bookforge/config"
	"bookforge/content"
	"bookforge/convert/epub"
	"bookforge/convert/kfx"
	"bookforge/kf8write"
	"bookforge/state"
)

//go:embed default.css
var defaultStylesheet []byte

// Run is the entry point for the "convert" CLI command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format, err := config.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("unknown output format requested, switching to epub2", zap.Error(err))
		format = config.OutputFmtEpub2
	}

	// Kindle formats must always have a valid cover page.
	if format.ForKindle() {
		env.Cfg.Document.Images.Cover.Generate = true
		if env.Cfg.Document.Images.Cover.Resize == config.ImageResizeModeNone {
			env.Cfg.Document.Images.Cover.Resize = config.ImageResizeModeKeepAR
		}
	}

	if env.Cfg.Document.Images.Cover.Generate {
		cover, err := renderDefaultCover()
		if err != nil {
			return fmt.Errorf("unable to render default cover image: %w", err)
		}
		env.DefaultCover = cover
		if env.Cfg.Document.Images.Cover.DefaultImagePath != "" {
			data, err := os.ReadFile(env.Cfg.Document.Images.Cover.DefaultImagePath)
			if err != nil {
				return fmt.Errorf("unable to read default cover image from %q: %w", env.Cfg.Document.Images.Cover.DefaultImagePath, err)
			}
			env.DefaultCover = data
		}
	}

	env.DefaultStyle = defaultStylesheet
	if env.Cfg.Document.StylesheetPath != "" {
		data, err := os.ReadFile(env.Cfg.Document.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", env.Cfg.Document.StylesheetPath, err)
		}
		env.DefaultStyle = data
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.KindleEbook = cmd.Bool("ebook")
	if asin := cmd.String("asin"); asin != "" {
		normalized, err := common.NormalizeASIN(asin)
		if err != nil {
			return fmt.Errorf("invalid --asin: %w", err)
		}
		env.KindleASIN = normalized
	}

	log.Info("processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, format, log)
}

// process determines whether src is a directory, a zip archive, or a
// single book file, and dispatches accordingly.
func process(ctx context.Context, src, dst string, format config.OutputFmt, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist - probably a path inside an archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, format, log); err != nil {
				return errors.New("unable to process directory")
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, tail, "", dst, format, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		isBook, err := isBookFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if isBook && len(tail) == 0 {
			if file, err := os.Open(head); err != nil {
				log.Error("unable to process file", zap.String("file", head), zap.Error(err))
			} else {
				defer file.Close()
				if err := processBook(ctx, file, filepath.Base(head), dst, format, log); err != nil {
					log.Error("unable to process file", zap.String("file", head), zap.Error(err))
				}
			}
			break
		}
		return fmt.Errorf("input was not recognized as a supported ebook (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks a directory tree converting every file recognized as a
// supported ebook or bundled inside a recognized zip archive.
func processDir(ctx context.Context, dir, dst string, format config.OutputFmt, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, format, log); err != nil {
				log.Error("unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		isBook, err := isBookFile(path)
		if err != nil {
			log.Warn("skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !isBook {
			log.Debug("skipping file, not recognized as a book or archive", zap.String("file", path))
			return nil
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		defer file.Close()

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processBook(ctx, file, src, dst, format, log); err != nil {
			log.Error("unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processArchive walks every file inside a zip archive under pathIn,
// converting each entry recognized as a supported ebook.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, format config.OutputFmt, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(path, pathIn, func(archivePath string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		isBook, err := isBookInArchive(f)
		if err != nil {
			log.Warn("skipping file in archive",
				zap.String("archive", archivePath), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !isBook {
			log.Debug("skipping file, not recognized as a book", zap.String("archive", archivePath), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("unable to process file in archive",
				zap.String("archive", archivePath), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processBook(ctx, r, filepath.Join(pathOut, f.FileHeader.Name), dst, format, log); err != nil {
			log.Error("unable to process file in archive",
				zap.String("archive", archivePath), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	return err
}

// processBook parses a single ebook and writes the converted output. src is
// the source path for naming purposes only (a base filename, or a path
// relative to an archive/directory root).
func processBook(ctx context.Context, r io.Reader, src string, dst string, format config.OutputFmt, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// Some of the image-processing libraries in play are not mature
		// enough that a single malformed input should take down a batch run.
		if r := recover(); r != nil {
			log.Error("conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	c, err := content.Prepare(ctx, r, src, format, log)
	if err != nil {
		return fmt.Errorf("unable to parse source (%s): %w", src, err)
	}

	outputName = buildOutputPath(src, dst, format, env)

	switch c.OutputFormat {
	case config.OutputFmtEpub2, config.OutputFmtEpub3:
		if err := epub.Generate(ctx, c.Book, c.OutputFormat, outputName, &env.Cfg.Document, log); err != nil {
			return fmt.Errorf("unable to generate output: %w", err)
		}
	case config.OutputFmtAzw3:
		data, err := kf8write.Write(c.Book)
		if err != nil {
			return fmt.Errorf("unable to generate output: %w", err)
		}
		if err := writeOutputFile(outputName, data, env, log); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
	case config.OutputFmtKfx:
		if err := kfx.Generate(ctx, c.Book, outputName, &env.Cfg.Document, log); err != nil {
			return fmt.Errorf("unable to generate output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", c.OutputFormat)
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s", filepath.Base(outputName)), outputName)
	}

	return nil
}
