//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	ftheme "fyne.io/fyne/v2/theme"

	"croppy/internal/theme"
)

// croppyTheme wraps the default Fyne theme, forcing the chosen light/dark
// variant and mapping the application palette onto the main color names.
// The canvas widget reads the palette directly; this wrapper only keeps the
// standard widgets (labels, buttons, dialogs) in step with it.
type croppyTheme struct {
	base    fyne.Theme
	variant fyne.ThemeVariant
	pal     theme.Palette
}

func newCroppyTheme(mode theme.Mode, pal theme.Palette) *croppyTheme {
	v := ftheme.VariantDark
	if mode == theme.ModeLight {
		v = ftheme.VariantLight
	}
	return &croppyTheme{base: ftheme.DefaultTheme(), variant: v, pal: pal}
}

// Color delegates to the base theme with the forced variant, except for the
// few names the palette pins down.
func (t *croppyTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case ftheme.ColorNameBackground:
		return t.pal.WindowBG
	case ftheme.ColorNameForeground:
		return t.pal.Text
	case ftheme.ColorNameError:
		return t.pal.ErrorText
	}
	return t.base.Color(name, t.variant)
}

// Font delegates to the base theme.
func (t *croppyTheme) Font(style fyne.TextStyle) fyne.Resource { return t.base.Font(style) }

// Icon delegates to the base theme.
func (t *croppyTheme) Icon(name fyne.ThemeIconName) fyne.Resource { return t.base.Icon(name) }

// Size delegates to the base theme.
func (t *croppyTheme) Size(name fyne.ThemeSizeName) float32 { return t.base.Size(name) }
