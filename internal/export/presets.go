/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"strings"
)

// SheetPreset is a named contact sheet layout. Page dimensions are in
// PDF points (1/72 inch).
type SheetPreset struct {
	Name   string
	PageW  float64
	PageH  float64
	Cols   int
	Rows   int
	Margin float64
	Gutter float64
}

// DefaultSheetPreset is used when no preset is named.
const DefaultSheetPreset = "a4"

var sheetPresets = []SheetPreset{
	{Name: "a4", PageW: 595.28, PageH: 841.89, Cols: 3, Rows: 4, Margin: 36, Gutter: 12},
	{Name: "a4-landscape", PageW: 841.89, PageH: 595.28, Cols: 4, Rows: 3, Margin: 36, Gutter: 12},
	{Name: "letter", PageW: 612, PageH: 792, Cols: 3, Rows: 4, Margin: 36, Gutter: 12},
	{Name: "letter-landscape", PageW: 792, PageH: 612, Cols: 4, Rows: 3, Margin: 36, Gutter: 12},
	{Name: "large", PageW: 595.28, PageH: 841.89, Cols: 2, Rows: 2, Margin: 36, Gutter: 16},
}

// SheetPresetNames lists the known preset names, for CLI help.
func SheetPresetNames() []string {
	out := make([]string, len(sheetPresets))
	for i, p := range sheetPresets {
		out[i] = p.Name
	}
	return out
}

// FindSheetPreset resolves a preset by name, case-insensitively. An empty
// name resolves to DefaultSheetPreset.
func FindSheetPreset(name string) (SheetPreset, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultSheetPreset
	}
	for _, p := range sheetPresets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return SheetPreset{}, fmt.Errorf("unknown sheet preset %q (have: %s)", name, strings.Join(SheetPresetNames(), ", "))
}
