/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package theme holds the light/dark color palettes and the palette-file
// loader. It is UI-toolkit agnostic; the desktop shell maps these colors onto
// its widgets.
package theme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
)

// Mode selects one of the two palettes. "auto" is not a Mode: callers resolve
// the system preference first and then pick a Mode.
type Mode int

const (
	ModeLight Mode = iota
	ModeDark
)

func (m Mode) String() string {
	if m == ModeDark {
		return "dark"
	}
	return "light"
}

// ParseMode maps "light"/"dark" onto a Mode. Anything else reports ok=false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "light":
		return ModeLight, true
	case "dark":
		return ModeDark, true
	default:
		return ModeLight, false
	}
}

// Palette is the working color set for one brightness mode.
type Palette struct {
	WindowBG    color.NRGBA
	BarBG       color.NRGBA
	CanvasBG    color.NRGBA
	Text        color.NRGBA
	ErrorText   color.NRGBA
	CropBorder  color.NRGBA
	ImageBorder color.NRGBA

	// Letterbox fills behind the displayed image, chosen by the image's own
	// corner brightness so the image edge stays visible.
	LetterboxBright color.NRGBA // used when the image corners are bright
	LetterboxDark   color.NRGBA // used when the image corners are dark
}

// Dark returns the built-in dark palette.
func Dark() Palette {
	return Palette{
		WindowBG:        mustHex("#2b2b2b"),
		BarBG:           mustHex("#3c3c3c"),
		CanvasBG:        mustHex("#1e1e1e"),
		Text:            mustHex("#ffffff"),
		ErrorText:       mustHex("#ff6b6b"),
		CropBorder:      mustHex("#ff4444"),
		ImageBorder:     mustHex("#666666"),
		LetterboxBright: mustHex("#1a1a1a"),
		LetterboxDark:   mustHex("#3a3a3a"),
	}
}

// Light returns the built-in light palette.
func Light() Palette {
	return Palette{
		WindowBG:        mustHex("#f0f0f0"),
		BarBG:           mustHex("#e0e0e0"),
		CanvasBG:        mustHex("#ffffff"),
		Text:            mustHex("#333333"),
		ErrorText:       mustHex("#d32f2f"),
		CropBorder:      mustHex("#ff0000"),
		ImageBorder:     mustHex("#cccccc"),
		LetterboxBright: mustHex("#2c2c2c"),
		LetterboxDark:   mustHex("#e0e0e0"),
	}
}

// ForMode returns the built-in palette for m.
func ForMode(m Mode) Palette {
	if m == ModeDark {
		return Dark()
	}
	return Light()
}

// Letterbox picks the fill behind the image from its corner brightness.
func (p Palette) Letterbox(brightCorners bool) color.NRGBA {
	if brightCorners {
		return p.LetterboxBright
	}
	return p.LetterboxDark
}

// ParseHexColor parses #rrggbb or #rrggbbaa (case-insensitive).
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 7 && len(s) != 9 {
		return color.NRGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	if s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("color %q: missing leading #", s)
	}
	n, err := strconv.ParseUint(s[1:], 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(s) == 7 {
		return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func mustHex(s string) color.NRGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// paletteFile is the on-disk palette override document. Both sections are
// optional; keys follow docs/palette.schema.json.
type paletteFile struct {
	Version int               `json:"version"`
	Dark    map[string]string `json:"dark,omitempty"`
	Light   map[string]string `json:"light,omitempty"`
}

// LoadFile reads a palette override file and merges it over the built-in
// palettes. Unknown keys and malformed colors are errors so typos do not
// silently fall back.
func LoadFile(path string) (dark Palette, light Palette, err error) {
	dark, light = Dark(), Light()
	data, err := os.ReadFile(path)
	if err != nil {
		return dark, light, fmt.Errorf("read palette file: %w", err)
	}
	var pf paletteFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return dark, light, fmt.Errorf("parse palette file: %w", err)
	}
	if pf.Version != 1 {
		return dark, light, fmt.Errorf("palette file version %d not supported", pf.Version)
	}
	if err := applyOverrides(&dark, pf.Dark); err != nil {
		return dark, light, fmt.Errorf("dark palette: %w", err)
	}
	if err := applyOverrides(&light, pf.Light); err != nil {
		return dark, light, fmt.Errorf("light palette: %w", err)
	}
	return dark, light, nil
}

func applyOverrides(p *Palette, m map[string]string) error {
	for key, val := range m {
		c, err := ParseHexColor(val)
		if err != nil {
			return err
		}
		switch key {
		case "window_bg":
			p.WindowBG = c
		case "bottom_bar_bg":
			p.BarBG = c
		case "canvas_bg":
			p.CanvasBG = c
		case "text_color":
			p.Text = c
		case "error_text_color":
			p.ErrorText = c
		case "crop_border_color":
			p.CropBorder = c
		case "image_border_color":
			p.ImageBorder = c
		case "letterbox_bright":
			p.LetterboxBright = c
		case "letterbox_dark":
			p.LetterboxDark = c
		default:
			return errors.New("unknown palette key: " + key)
		}
	}
	return nil
}
