/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a folder of images into shareable files: a
// paginated contact sheet PDF for review on paper, and a CBZ bundle for
// comic readers.
package export

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"

	"croppy/internal/geom"
	applog "croppy/internal/log"
	"croppy/internal/media"
)

// SheetOptions controls contact sheet rendering. The zero value renders
// the default A4 grid with captions.
type SheetOptions struct {
	Preset       string // layout preset name, empty means DefaultSheetPreset
	Title        string // page header, empty means "Contact Sheet"
	HideCaptions bool   // omit the filename under each image
	JPEGQuality  int    // embed quality, <=0 means media.DefaultJPEGQuality
}

// embedMaxEdge bounds the pixel size of images embedded in the sheet.
// Cells are a few hundred points wide, so full-resolution photos would
// only bloat the file.
const embedMaxEdge = 800

// ContactSheetPDF renders the images, in order, into a paginated grid PDF
// at outPath and reports how many were placed. Files that cannot be
// decoded are skipped; the export fails only if nothing could be placed.
func ContactSheetPDF(paths []string, outPath string, opt SheetOptions) (int, error) {
	l := applog.WithComponent("export")
	if len(paths) == 0 {
		return 0, fmt.Errorf("no images to place")
	}
	preset, err := FindSheetPreset(opt.Preset)
	if err != nil {
		return 0, err
	}
	quality := opt.JPEGQuality
	if quality <= 0 {
		quality = media.DefaultJPEGQuality
	}
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = "Contact Sheet"
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: preset.PageW, Ht: preset.PageH},
	})
	pdf.SetTitle(title, false)
	pdf.SetAuthor("Croppy", false)

	captionH := 12.0
	if opt.HideCaptions {
		captionH = 0
	}
	innerW := preset.PageW - 2*preset.Margin
	innerH := preset.PageH - 2*preset.Margin
	cellW := (innerW - float64(preset.Cols-1)*preset.Gutter) / float64(preset.Cols)
	cellH := (innerH - float64(preset.Rows-1)*preset.Gutter) / float64(preset.Rows)
	boxH := cellH - captionH
	perPage := preset.Cols * preset.Rows

	placed := 0
	var buf bytes.Buffer
	for _, path := range paths {
		img, err := media.Decode(path)
		if err != nil {
			l.Warn("skipping image", slog.String("path", path), slog.Any("err", err))
			continue
		}
		small := imaging.Fit(img, embedMaxEdge, embedMaxEdge, imaging.Lanczos)
		buf.Reset()
		if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: quality}); err != nil {
			l.Warn("skipping image", slog.String("path", path), slog.Any("err", err))
			continue
		}

		slot := placed % perPage
		if slot == 0 {
			pdf.AddPageFormat("", gofpdf.SizeType{Wd: preset.PageW, Ht: preset.PageH})
			pdf.SetFont("Helvetica", "", 9)
			pdf.Text(preset.Margin, preset.Margin-10, title)
			pn := fmt.Sprintf("%d", pdf.PageNo())
			pdf.Text(preset.PageW-preset.Margin-pdf.GetStringWidth(pn), preset.Margin-10, pn)
		}
		col := slot % preset.Cols
		row := slot / preset.Cols
		cellX := preset.Margin + float64(col)*(cellW+preset.Gutter)
		cellY := preset.Margin + float64(row)*(cellH+preset.Gutter)

		// Aspect-fit inside the cell box, reusing the letterbox math the
		// canvas uses.
		b := small.Bounds()
		lay, lerr := geom.Compute(b.Dx(), b.Dy(), int(cellW), int(boxH), 0)
		if lerr != nil {
			continue
		}
		name := fmt.Sprintf("sheet-%d", placed)
		imgOpt := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, imgOpt, bytes.NewReader(buf.Bytes()))
		pdf.ImageOptions(name, cellX+float64(lay.OffsetX), cellY+float64(lay.OffsetY),
			float64(lay.DisplayW), float64(lay.DisplayH), false, imgOpt, 0, "")

		if !opt.HideCaptions {
			pdf.SetFont("Helvetica", "", 7)
			caption := filepath.Base(path)
			if pdf.GetStringWidth(caption) > cellW {
				r := []rune(caption)
				for len(r) > 1 && pdf.GetStringWidth(string(r)+"...") > cellW {
					r = r[:len(r)-1]
				}
				caption = string(r) + "..."
			}
			tx := cellX + (cellW-pdf.GetStringWidth(caption))/2
			if tx < cellX {
				tx = cellX
			}
			pdf.Text(tx, cellY+boxH+9, caption)
		}
		placed++
	}

	if placed == 0 {
		return 0, fmt.Errorf("none of %d images could be decoded", len(paths))
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	l.Info("contact sheet written", slog.String("path", outPath),
		slog.Int("images", placed), slog.Int("pages", pdf.PageNo()))
	return placed, nil
}
