package kfx

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bookforge/book"
	"bookforge/config"
	"bookforge/state"
)

// Generate writes b to outputPath as a single KFX container. Unlike the
// EPUB writer, there is no incremental archive to build: the whole
// container is assembled as fragments in memory, then serialized once by
// Container.WriteContainer.
func Generate(ctx context.Context, b *book.Book, outputPath string, docCfg *config.DocumentConfig, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	if _, err := os.Stat(outputPath); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputPath)
		}
		log.Warn("overwriting existing file", zap.String("file", outputPath))
		if err := os.Remove(outputPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	log.Info("generating KFX", zap.String("output", outputPath))

	data, err := build(ctx, b, docCfg, log)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".kfx-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	return nil
}

// build assembles every fragment that makes up a complete KFX container
// and serializes it. Order matters in a few places: position maps can
// only be derived after every storyline/section fragment has been added,
// and the entity map must be computed last since it inventories the
// final fragment set.
func build(ctx context.Context, b *book.Book, docCfg *config.DocumentConfig, log *zap.Logger) ([]byte, error) {
	styles := DefaultStyleRegistry()

	imageFrags, imageInfo, err := BuildImageResourceFragments(b, decodeImageDims, &docCfg.Images, log)
	if err != nil {
		return nil, fmt.Errorf("unable to build image resources: %w", err)
	}

	fontFrags, _, err := BuildFontResourceFragments(b.AssetPaths, b.Asset, len(imageInfo))
	if err != nil {
		return nil, fmt.Errorf("unable to build font resources: %w", err)
	}

	chapters, idToEID, anchorFrags, contentFrags, resolver, err := linearizeBook(ctx, b, styles, imageInfo, log)
	if err != nil {
		return nil, fmt.Errorf("unable to linearize book content: %w", err)
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("book has no content to convert")
	}

	container := NewContainer()
	container.ContainerID = containerID(b.Metadata)
	container.GeneratorApp = "bookforge"
	container.GeneratorPkg = "bookforge/convert/kfx"
	container.ContainerFormat = "KFX main"

	sectionNames := make(sectionNameList, 0, len(chapters))
	sectionEIDs := make(sectionEIDsBySectionName, len(chapters))
	chapterByID := make(map[string]*linearizedChapter, len(chapters))
	chapterStartSections := make(map[string]bool, len(chapters))
	totalItems := 0

	for i, ch := range chapters {
		if err := addFragment(container, ch.storylineFrag); err != nil {
			return nil, err
		}
		if err := addFragment(container, ch.sectionFrag); err != nil {
			return nil, err
		}
		sectionNames = append(sectionNames, ch.sectionName)
		sectionEIDs[ch.sectionName] = ch.allEIDs
		chapterByID[ch.spineID] = ch
		totalItems += len(ch.allEIDs)
		if i == 0 {
			chapterStartSections[ch.sectionName] = true
		}
	}

	for _, f := range imageFrags {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}
	for _, f := range fontFrags {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}
	for _, f := range anchorFrags {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}
	for _, f := range contentFrags {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}

	tocEntries := buildTOCEntries(b.TOC, resolver, chapterByID, idToEID)

	landmarks := LandmarkInfo{}
	if len(chapters) > 0 {
		landmarks.StartEID = chapters[0].firstEID
	}
	for _, lm := range b.Landmarks {
		eid, ok := landmarkEID(lm.Href, idToEID)
		if !ok {
			continue
		}
		switch lm.Kind {
		case book.LandmarkCover:
			landmarks.CoverEID = eid
		case book.LandmarkTOC:
			landmarks.TOCEID = eid
		}
	}

	var posItems []PositionItem
	pageSize := 0
	if docCfg.PageMap.Enable {
		posItems = CollectPositionItems(container.Fragments, sectionNames, chapterStartSections)
		pageSize = docCfg.PageMap.Size
	}
	navStartEID := container.Fragments.Len() + 1
	if err := addFragment(container, BuildNavigation(tocEntries, navStartEID, posItems, pageSize, landmarks)); err != nil {
		return nil, err
	}

	coverResourceName := ""
	if b.Metadata.CoverHref != "" {
		if info, ok := imageInfo[book.NormalizePath(b.Metadata.CoverHref)]; ok {
			coverResourceName = info.ResourceName
		}
	}
	if err := addFragment(container, BuildBookMetadata(b.Metadata, coverResourceName)); err != nil {
		return nil, err
	}
	if err := addFragment(container, BuildReadingOrderMetadata(sectionNames)); err != nil {
		return nil, err
	}
	if err := addFragment(container, BuildDocumentData(sectionNames, totalItems)); err != nil {
		return nil, err
	}

	posItems = CollectPositionItems(container.Fragments, sectionNames, chapterStartSections)
	allEIDs := CollectAllEIDs(sectionEIDs)
	if err := addFragment(container, BuildPositionMap(sectionNames, sectionEIDs)); err != nil {
		return nil, err
	}
	if err := addFragment(container, BuildPositionIDMap(allEIDs, posItems)); err != nil {
		return nil, err
	}
	if err := addFragment(container, BuildLocationMap(posItems)); err != nil {
		return nil, err
	}

	for _, f := range BuildAuxiliaryDataFragments(sectionNames) {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}
	if err := addFragment(container, BuildContentFeatures(docCfg.PageMap.Size)); err != nil {
		return nil, err
	}
	container.FormatCapabilities = BuildFormatCapabilities(DefaultFormatFeatures()).Value

	for _, f := range styles.BuildFragments() {
		if err := addFragment(container, f); err != nil {
			return nil, err
		}
	}

	deps := ComputeEntityDependencies(container.Fragments)
	if err := addFragment(container, BuildContainerEntityMapFragment(container.ContainerID, container.Fragments, deps)); err != nil {
		return nil, err
	}

	return container.WriteContainer()
}

// addFragment adds f to the container's fragment list, wrapping any
// duplicate-key error with enough context to locate the offending
// fragment (this should only ever fire on a construction bug, since every
// EID and fragment name handed out during linearization is unique).
func addFragment(container *Container, f *Fragment) error {
	if f == nil {
		return nil
	}
	if err := container.Fragments.Add(f); err != nil {
		return fmt.Errorf("unable to add fragment %s/%s: %w", f.FType, f.FIDName, err)
	}
	return nil
}

// containerID derives a short, stable container identifier from the
// book's own identifying metadata, mirroring how bookASIN derives the
// synthetic ASIN used in kindle_title_metadata.
func containerID(meta book.Metadata) string {
	h := sha1.New()
	h.Write([]byte(meta.Title))
	h.Write([]byte(meta.Identifier))
	sum := h.Sum(nil)
	return "CR!" + hex.EncodeToString(sum[:8])
}

// decodeImageDims reports the pixel dimensions of an encoded image. No
// library in the dependency set exposes dimension decoding directly, so
// this falls back to the standard image package (registering png/jpeg/gif
// via blank imports matches the formats BuildImageResourceFragments
// recognizes through isImageAsset).
func decodeImageDims(data []byte) (w, h int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// landmarkEID resolves a book-root-relative landmark href (chapter path,
// or "path#fragment") to the EID recorded for it during linearization.
func landmarkEID(href string, idToEID eidByNodeID) (int, bool) {
	path := href
	frag := ""
	for i := 0; i < len(href); i++ {
		if href[i] == '#' {
			path = href[:i]
			frag = href[i+1:]
			break
		}
	}
	path = book.NormalizePath(path)
	if frag == "" {
		eid, ok := idToEID["chapter:"+path]
		return eid, ok
	}
	eid, ok := idToEID[path+"#"+frag]
	return eid, ok
}
