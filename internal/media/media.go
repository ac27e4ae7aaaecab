/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media decodes, measures and writes image files for the viewer.
// Everything here works on whole files and buffers; geometry stays in
// geom and crop.
package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fyne-io/image/ico"
	"github.com/rwcarlsen/goexif/exif"

	// Register decoders beyond imaging's built-ins (png/jpeg/gif/tiff/bmp).
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used when the configured quality is out of range.
const DefaultJPEGQuality = 95

// Decode reads and decodes the image at path, applying the EXIF
// orientation so the pixels face the way the camera saw them.
func Decode(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".ico") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		img, err := ico.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Info is the cheap metadata of an image file, read without decoding
// the full pixel buffer when the format allows it.
type Info struct {
	W, H   int
	Format string
}

// ReadInfo returns dimensions and format of the image at path. Formats
// whose header parsing is unavailable fall back to a full decode.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	cfg, format, err := image.DecodeConfig(f)
	cerr := f.Close()
	if err == nil && cerr == nil {
		return Info{W: cfg.Width, H: cfg.Height, Format: format}, nil
	}
	img, derr := Decode(path)
	if derr != nil {
		return Info{}, fmt.Errorf("read info %s: %w", path, derr)
	}
	b := img.Bounds()
	return Info{W: b.Dx(), H: b.Dy(), Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")}, nil
}

// EmbeddedThumb extracts the EXIF thumbnail of a JPEG, when present.
// Cameras write these small previews alongside the full image; reading
// one is far cheaper than decoding and shrinking the original.
func EmbeddedThumb(path string) (image.Image, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	x, err := exif.Decode(f)
	if err != nil {
		return nil, false
	}
	raw, err := x.JpegThumbnail()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	return img, true
}

// Save encodes img to path, picking the format from the extension.
// Extensions without an encoder are written as PNG with the extension
// adjusted; the path actually written is returned. An existing file is
// overwritten.
func Save(img image.Image, path string, jpegQuality int) (string, error) {
	ext := filepath.Ext(path)
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		path = strings.TrimSuffix(path, ext) + ".png"
		format = imaging.PNG
	}
	var opts []imaging.EncodeOption
	if format == imaging.JPEG {
		if jpegQuality < 1 || jpegQuality > 100 {
			jpegQuality = DefaultJPEGQuality
		}
		opts = append(opts, imaging.JPEGQuality(jpegQuality))
	}
	if err := imaging.Save(img, path, opts...); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// CornerBrightness averages the brightness (0..255) of the four corner
// pixels. The letterbox picks a shade that contrasts with the image
// edges, so only the corners matter.
func CornerBrightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	corners := []image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X - 1, b.Min.Y},
		{b.Min.X, b.Max.Y - 1},
		{b.Max.X - 1, b.Max.Y - 1},
	}
	var sum float64
	for _, p := range corners {
		r, g, bl, _ := img.At(p.X, p.Y).RGBA()
		sum += (float64(r>>8) + float64(g>>8) + float64(bl>>8)) / 3
	}
	return sum / float64(len(corners))
}

// BrightAtCorners reports whether the image edges read as bright, the
// cue for choosing a dark letterbox behind it.
func BrightAtCorners(img image.Image) bool { return CornerBrightness(img) > 127 }
