/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSaveDecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := solidImage(64, 48, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	for _, name := range []string{"out.png", "out.jpg", "out.bmp"} {
		p := filepath.Join(dir, name)
		written, err := Save(src, p, 95)
		if err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		if written != p {
			t.Fatalf("Save rewrote path to %s", written)
		}
		img, err := Decode(written)
		if err != nil {
			t.Fatalf("Decode(%s): %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Fatalf("%s decoded as %v", name, b)
		}
	}
}

func TestSaveUnknownExtensionFallsBackToPNG(t *testing.T) {
	dir := t.TempDir()
	src := solidImage(10, 10, color.NRGBA{A: 255})
	written, err := Save(src, filepath.Join(dir, "frame.ppm"), 95)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(written, "frame.png") {
		t.Fatalf("fallback path = %s, want .png", written)
	}
	if _, err := Decode(written); err != nil {
		t.Fatalf("decode fallback: %v", err)
	}
}

func TestReadInfo(t *testing.T) {
	dir := t.TempDir()
	src := solidImage(123, 77, color.NRGBA{G: 128, A: 255})
	p := filepath.Join(dir, "probe.png")
	if _, err := Save(src, p, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := ReadInfo(p)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.W != 123 || info.H != 77 || info.Format != "png" {
		t.Fatalf("info = %+v", info)
	}
}

func TestReadInfoMissingFile(t *testing.T) {
	if _, err := ReadInfo(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEmbeddedThumbAbsent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "plain.jpg")
	if _, err := Save(solidImage(32, 32, color.NRGBA{B: 99, A: 255}), p, 80); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// A freshly encoded JPEG has no EXIF thumbnail.
	if _, ok := EmbeddedThumb(p); ok {
		t.Fatalf("unexpected thumbnail in plain jpeg")
	}
	if _, ok := EmbeddedThumb(filepath.Join(dir, "x.png")); ok {
		t.Fatalf("non-jpeg must not report a thumbnail")
	}
}

func TestCornerBrightness(t *testing.T) {
	white := solidImage(20, 20, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	black := solidImage(20, 20, color.NRGBA{A: 255})
	if !BrightAtCorners(white) {
		t.Fatalf("white image should read bright")
	}
	if BrightAtCorners(black) {
		t.Fatalf("black image should read dark")
	}

	// A dark center must not matter: only corners are sampled.
	img := solidImage(21, 21, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	img.SetNRGBA(10, 10, color.NRGBA{A: 255})
	if !BrightAtCorners(img) {
		t.Fatalf("corner sampling should ignore the center")
	}
}

func TestSuggestCrop(t *testing.T) {
	// A bright block on dark ground gives the analyzer something to find.
	img := solidImage(120, 90, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	for y := 20; y < 60; y++ {
		for x := 30; x < 80; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 240, G: 220, B: 40, A: 255})
		}
	}
	r, err := SuggestCrop(context.Background(), img, 40, 40)
	if err != nil {
		t.Fatalf("SuggestCrop: %v", err)
	}
	if r.Empty() {
		t.Fatalf("empty suggestion")
	}
	if !r.In(img.Bounds()) {
		t.Fatalf("suggestion %v outside bounds %v", r, img.Bounds())
	}
}

func TestSuggestCropCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := solidImage(2000, 1500, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	if _, err := SuggestCrop(ctx, img, 400, 300); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestDecodePixelFidelity(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tiny.png")
	if _, err := Save(solidImage(3, 3, color.NRGBA{R: 5, G: 6, B: 7, A: 255}), p, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	img, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if c.R != 5 || c.G != 6 || c.B != 7 {
		t.Fatalf("pixel = %+v", c)
	}
}
