/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "croppy/internal/log"
)

// CBZOptions controls CBZ packaging.
type CBZOptions struct {
	Series string // manifest series, empty means the folder name of the first image
	Title  string // manifest title, empty means Series
}

// ExportCBZ packages the image files, in order, into a CBZ (ZIP) archive
// at outPath with a ComicInfo.xml manifest so comic readers pick up the
// page order. Files are stored byte for byte, renamed to zero-padded
// page numbers. Unreadable files are skipped; the export fails only if
// nothing could be added. A .cbz extension is enforced on outPath.
func ExportCBZ(paths []string, outPath string, opt CBZOptions) (int, error) {
	l := applog.WithComponent("export")
	if len(paths) == 0 {
		return 0, fmt.Errorf("no images to package")
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".cbz") {
		outPath += ".cbz"
	}
	zw, f, err := createZip(outPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	pad := 1
	switch n := len(paths); {
	case n >= 1000:
		pad = 4
	case n >= 100:
		pad = 3
	case n >= 10:
		pad = 2
	}

	added := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			l.Warn("skipping file", slog.String("path", p), slog.Any("err", err))
			continue
		}
		name := fmt.Sprintf("%0*d%s", pad, added+1, strings.ToLower(filepath.Ext(p)))
		if err := addZipFile(zw, name, data); err != nil {
			return 0, fmt.Errorf("zip add image: %w", err)
		}
		added++
	}
	if added == 0 {
		return 0, fmt.Errorf("none of %d files could be read", len(paths))
	}

	series := strings.TrimSpace(opt.Series)
	if series == "" {
		series = filepath.Base(filepath.Dir(paths[0]))
	}
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = series
	}
	if err := addZipFile(zw, "ComicInfo.xml", []byte(buildComicInfoXML(series, title, added))); err != nil {
		return 0, fmt.Errorf("zip add manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zip: %w", err)
	}
	l.Info("cbz written", slog.String("path", outPath), slog.Int("pages", added))
	return added, nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create cbz: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildComicInfoXML(series, title string, pageCount int) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<ComicInfo xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\">\n")
	fmt.Fprintf(&b, "  <Series>%s</Series>\n", xmlEsc(series))
	fmt.Fprintf(&b, "  <Title>%s</Title>\n", xmlEsc(title))
	fmt.Fprintf(&b, "  <PageCount>%d</PageCount>\n", pageCount)
	b.WriteString("  <ReadingDirection>LeftToRight</ReadingDirection>\n")
	b.WriteString("</ComicInfo>\n")
	return b.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

func xmlEsc(s string) string { return xmlEscaper.Replace(s) }
