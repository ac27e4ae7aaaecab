/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinPaletteColors(t *testing.T) {
	d := Dark()
	if d.WindowBG != (color.NRGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}) {
		t.Fatalf("dark WindowBG = %v", d.WindowBG)
	}
	if d.CropBorder != (color.NRGBA{R: 0xff, G: 0x44, B: 0x44, A: 0xff}) {
		t.Fatalf("dark CropBorder = %v", d.CropBorder)
	}
	l := Light()
	if l.WindowBG != (color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}) {
		t.Fatalf("light WindowBG = %v", l.WindowBG)
	}
	if l.CropBorder != (color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}) {
		t.Fatalf("light CropBorder = %v", l.CropBorder)
	}
}

func TestLetterboxSelection(t *testing.T) {
	cases := []struct {
		name   string
		p      Palette
		bright bool
		want   string
	}{
		{"dark theme, bright image", Dark(), true, "#1a1a1a"},
		{"dark theme, dark image", Dark(), false, "#3a3a3a"},
		{"light theme, bright image", Light(), true, "#2c2c2c"},
		{"light theme, dark image", Light(), false, "#e0e0e0"},
	}
	for _, tc := range cases {
		want, err := ParseHexColor(tc.want)
		if err != nil {
			t.Fatalf("%s: bad want: %v", tc.name, err)
		}
		if got := tc.p.Letterbox(tc.bright); got != want {
			t.Fatalf("%s: Letterbox = %v, want %v", tc.name, got, want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (color.NRGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}) {
		t.Fatalf("got %v", c)
	}
	c, err = ParseHexColor("#11223344")
	if err != nil {
		t.Fatalf("parse rgba: %v", err)
	}
	if c != (color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}) {
		t.Fatalf("got %v", c)
	}
	for _, bad := range []string{"", "#fff", "123456", "#gg0000", "#1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("dark"); !ok || m != ModeDark {
		t.Fatalf("dark: %v %v", m, ok)
	}
	if m, ok := ParseMode("light"); !ok || m != ModeLight {
		t.Fatalf("light: %v %v", m, ok)
	}
	if _, ok := ParseMode("auto"); ok {
		t.Fatalf("auto must not parse as a Mode")
	}
}

func TestLoadFileMergesOverBuiltins(t *testing.T) {
	dark, light, err := LoadFile(filepath.Join("testdata", "palette.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if dark.WindowBG != (color.NRGBA{R: 0x10, G: 0x14, B: 0x18, A: 0xff}) {
		t.Fatalf("dark WindowBG override missing: %v", dark.WindowBG)
	}
	if dark.CropBorder != (color.NRGBA{R: 0xff, G: 0xaa, B: 0x00, A: 0xff}) {
		t.Fatalf("dark CropBorder override missing: %v", dark.CropBorder)
	}
	// Untouched keys keep their defaults.
	if dark.BarBG != Dark().BarBG {
		t.Fatalf("dark BarBG should stay default, got %v", dark.BarBG)
	}
	if light.CropBorder != (color.NRGBA{R: 0x00, G: 0x66, B: 0xcc, A: 0xff}) {
		t.Fatalf("light CropBorder override missing: %v", light.CropBorder)
	}
	if light.WindowBG != Light().WindowBG {
		t.Fatalf("light WindowBG should stay default, got %v", light.WindowBG)
	}
}

func TestLoadFileRejectsUnknownKeyAndBadColor(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version":1,"dark":{"window_color":"#000000"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadFile(bad); err == nil {
		t.Fatalf("unknown key should fail")
	}
	if err := os.WriteFile(bad, []byte(`{"version":1,"dark":{"window_bg":"red"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadFile(bad); err == nil {
		t.Fatalf("bad color should fail")
	}
	if err := os.WriteFile(bad, []byte(`{"version":2}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadFile(bad); err == nil {
		t.Fatalf("unsupported version should fail")
	}
}
