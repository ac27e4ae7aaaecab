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
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	ftheme "fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"croppy/internal/config"
	"croppy/internal/crash"
	"croppy/internal/crop"
	"croppy/internal/export"
	"croppy/internal/geom"
	"croppy/internal/library"
	applog "croppy/internal/log"
	"croppy/internal/media"
	"croppy/internal/theme"
	"croppy/internal/thumbs"
	"croppy/internal/version"
)

const helpSuppressKey = "help.suppress"

// After this many saved crops the startup help is considered read.
const helpAfterCrops = 3

// Run starts the Fyne-based desktop UI: the crop canvas, the filmstrip and
// the bottom status bar. An optional folder is opened immediately.
func Run(folder string) error {
	cfg, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}

	var curDir string
	defer crash.Recover(&curDir)

	// Built-in palettes, optionally overridden by a user palette file.
	darkPal, lightPal := theme.Dark(), theme.Light()
	if cfg.General.PaletteFile != "" {
		d, li, perr := theme.LoadFile(cfg.General.PaletteFile)
		if perr != nil {
			l.Warn("palette file rejected", slog.String("path", cfg.General.PaletteFile), slog.Any("err", perr))
		} else {
			darkPal, lightPal = d, li
			l.Info("palette file loaded", slog.String("path", cfg.General.PaletteFile))
		}
	}

	fyneApp := app.NewWithID("croppy")
	mode := resolveMode(cfg.General.Theme, fyneApp.Settings().ThemeVariant())
	pal := lightPal
	if mode == theme.ModeDark {
		pal = darkPal
	}
	fyneApp.Settings().SetTheme(newCroppyTheme(mode, pal))

	w := fyneApp.NewWindow("Croppy")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 600 {
		winW = 600
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Open a folder to begin")
	readout := widget.NewLabel("")
	cropCanvas := NewCropCanvas(pal)
	cropCheck := widget.NewCheck("Crop mode", func(v bool) {
		cropCanvas.SetCropMode(v)
		if v {
			readout.SetText("Drag on the image to select a region.")
		} else {
			readout.SetText("")
		}
	})
	barFill := canvas.NewRectangle(pal.BarBG)
	strip := container.NewHBox()
	var stripBtns []*widget.Button

	// Session state. lib and store are swapped together on every folder
	// change; loadSeq and stripSeq fence off stale async results.
	var lib *library.Library
	var store *thumbs.Store
	loadSeq := 0
	stripSeq := 0
	cropCount := 0
	var next func()
	var prev func()

	updateTitle := func() {
		if lib == nil {
			w.SetTitle("Croppy")
			return
		}
		w.SetTitle(fmt.Sprintf("Croppy — %s (%d/%d)", filepath.Base(lib.Current()), lib.Index()+1, lib.Len()))
	}
	updateStatus := func() {
		if lib == nil {
			status.SetText("Open a folder to begin")
			return
		}
		base := filepath.Base(lib.Current())
		if cropCanvas.HasImage() {
			sw, sh := cropCanvas.SourceSize()
			status.SetText(fmt.Sprintf("%s  (%d/%d)  %dx%d px", base, lib.Index()+1, lib.Len(), sw, sh))
		} else {
			status.SetText(fmt.Sprintf("%s  (%d/%d)", base, lib.Index()+1, lib.Len()))
		}
	}

	showImage := func(path string) {
		loadSeq++
		seq := loadSeq
		cropCanvas.BeginLoad()
		readout.SetText("")
		status.SetText("Loading " + filepath.Base(path) + "…")
		go func(path string, seq int) {
			img, err := media.Decode(path)
			fyne.Do(func() {
				if seq != loadSeq {
					l.Debug("stale image load dropped", slog.String("path", path))
					return
				}
				if err != nil {
					l.Error("decode failed", slog.Any("err", err), slog.String("path", path))
					cropCanvas.ShowMessage("Cannot load "+filepath.Base(path), true)
					updateTitle()
					updateStatus()
					return
				}
				cropCanvas.SetImage(img)
				updateTitle()
				updateStatus()
			})
		}(path, seq)
	}
	jumpTo := func(i int) {
		if lib == nil {
			return
		}
		lib.Jump(i)
		showImage(lib.Current())
	}

	refreshStrip := func() {
		stripSeq++
		stripBtns = stripBtns[:0]
		strip.Objects = nil
		if lib == nil {
			strip.Refresh()
			return
		}
		for i, p := range lib.Paths {
			idx := i
			b := widget.NewButton(filepath.Base(p), func() { jumpTo(idx) })
			stripBtns = append(stripBtns, b)
			strip.Objects = append(strip.Objects, b)
		}
		strip.Refresh()
	}
	applyStripIcons := func(icons [][]byte) {
		for i, b := range stripBtns {
			if i < len(icons) && icons[i] != nil {
				b.SetIcon(fyne.NewStaticResource(fmt.Sprintf("thumb-%d.png", i), icons[i]))
			}
		}
	}
	buildThumbs := func() {
		if lib == nil || store == nil {
			return
		}
		go func(st *thumbs.Store, paths []string, seq int) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := st.Build(ctx, paths, thumbs.DefaultWorkers); err != nil {
				l.Warn("thumbnail build failed", slog.Any("err", err))
			}
			icons := collectStripIcons(ctx, st, paths)
			fyne.Do(func() {
				if seq != stripSeq {
					return
				}
				applyStripIcons(icons)
			})
		}(store, append([]string(nil), lib.Paths...), stripSeq)
	}

	cropCanvas.OnSelection = func(r image.Rectangle, live bool) {
		if live {
			readout.SetText(fmt.Sprintf("%d,%d  %dx%d px", r.Min.X, r.Min.Y, r.Dx(), r.Dy()))
		} else {
			readout.SetText("")
		}
	}
	cropCanvas.OnCrop = func(r image.Rectangle) {
		if lib == nil || !cropCanvas.HasImage() {
			return
		}
		sub, err := crop.Cut(cropCanvas.Source(), r)
		if err != nil {
			l.Error("crop failed", slog.Any("err", err), slog.String("path", lib.Current()))
			dialog.ShowError(err, w)
			return
		}
		outPath := library.OutputPath(lib.Current(), cfg.General.OutputDirName)
		if err := library.EnsureDir(outPath); err != nil {
			l.Error("create output dir failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		saved, err := media.Save(sub, outPath, cfg.General.JPEGQuality)
		if err != nil {
			l.Error("save crop failed", slog.Any("err", err), slog.String("path", outPath))
			dialog.ShowError(err, w)
			return
		}
		cropCount++
		if cropCount == helpAfterCrops {
			prefs.SetBool(helpSuppressKey, true)
		}
		l.Info("crop saved", slog.String("path", saved), slog.Int("w", r.Dx()), slog.Int("h", r.Dy()))
		status.SetText(fmt.Sprintf("Saved %s (%dx%d px)", filepath.Base(saved), r.Dx(), r.Dy()))
		if cfg.General.AdvanceOnCrop {
			next()
		}
	}

	openFolder := func(dir string) {
		abs, _ := filepath.Abs(dir)
		l.Info("open folder", slog.String("dir", abs))
		lb, err := library.Open(abs)
		if err != nil {
			l.Error("open folder failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		if store != nil {
			_ = store.Close()
			store = nil
		}
		lib = lb
		curDir = abs
		if !cfg.Cache.Disabled {
			st, serr := thumbs.Open(abs, cfg.Cache.MaxEntries)
			if serr != nil {
				l.Warn("thumbnail cache unavailable", slog.Any("err", serr))
			} else {
				store = st
			}
		}
		addRecentFolder(prefs, abs)
		refreshStrip()
		showImage(lib.Current())
		buildThumbs()
	}
	openFolderDialog := func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				l.Error("open dialog error", slog.Any("err", err))
				return
			}
			if uri == nil {
				l.Info("open folder canceled")
				return
			}
			openFolder(uri.Path())
		}, w)
		fd.Show()
	}

	next = func() {
		if lib == nil {
			return
		}
		i, wrapped := lib.Next()
		if wrapped {
			dialog.NewConfirm("End of folder", "This is the last image. Continue from the first?", func(ok bool) {
				if !ok {
					return
				}
				lib.Jump(i)
				showImage(lib.Current())
			}, w).Show()
			return
		}
		lib.Jump(i)
		showImage(lib.Current())
	}
	prev = func() {
		if lib == nil {
			return
		}
		i, wrapped := lib.Prev()
		if wrapped {
			dialog.NewConfirm("Start of folder", "This is the first image. Continue from the last?", func(ok bool) {
				if !ok {
					return
				}
				lib.Jump(i)
				showImage(lib.Current())
			}, w).Show()
			return
		}
		lib.Jump(i)
		showImage(lib.Current())
	}

	suggest := func() {
		if !cropCanvas.HasImage() {
			return
		}
		src := cropCanvas.Source()
		b := src.Bounds()
		side := b.Dx()
		if b.Dy() < side {
			side = b.Dy()
		}
		status.SetText("Looking for a crop…")
		go func(src image.Image, side, seq int) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			r, err := media.SuggestCrop(ctx, src, side, side)
			fyne.Do(func() {
				if seq != loadSeq {
					return
				}
				if err != nil {
					l.Warn("crop suggestion failed", slog.Any("err", err))
					status.SetText("No crop suggestion found.")
					return
				}
				cropCanvas.ShowSuggestion(r)
				updateStatus()
				readout.SetText(fmt.Sprintf("Suggested %dx%d px. Enter applies, Esc discards.", r.Dx(), r.Dy()))
			})
		}(src, side, loadSeq)
	}
	escape := func() {
		switch {
		case cropCanvas.ClearSuggestion():
			readout.SetText("")
		case cropCanvas.Dragging():
			cropCanvas.CancelGesture()
		case cropCanvas.CropMode():
			cropCheck.SetChecked(false)
		}
	}
	showHelp := func() {
		text := fmt.Sprintf("Left/Right browse the folder.\n"+
			"C toggles crop mode; drag on the image, release to save the crop.\n"+
			"S suggests a crop: Enter applies it, Esc discards it.\n"+
			"Esc also cancels a drag or leaves crop mode.\n"+
			"Cropped copies are written to a %q folder next to the originals.", cfg.General.OutputDirName)
		suppress := widget.NewCheck("Don't show this on startup", func(v bool) {
			prefs.SetBool(helpSuppressKey, v)
		})
		suppress.SetChecked(prefs.BoolWithFallback(helpSuppressKey, false))
		dialog.ShowCustom("How to Use Croppy", "Close", container.NewVBox(widget.NewLabel(text), suppress), w)
	}
	setTheme := func(name string) {
		cfg.General.Theme = name
		if err := config.Save(cfg); err != nil {
			l.Warn("save config failed", slog.Any("err", err))
		}
		mode = resolveMode(name, fyneApp.Settings().ThemeVariant())
		pal = lightPal
		if mode == theme.ModeDark {
			pal = darkPal
		}
		fyneApp.Settings().SetTheme(newCroppyTheme(mode, pal))
		cropCanvas.SetPalette(pal)
		barFill.FillColor = pal.BarBG
		barFill.Refresh()
		l.Info("theme changed", slog.String("theme", name), slog.String("mode", mode.String()))
	}

	exportSheet := func() {
		if lib == nil {
			dialog.ShowInformation("Export", "Open a folder first.", w)
			return
		}
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			out := uc.URI().Path()
			_ = uc.Close()
			paths := append([]string(nil), lib.Paths...)
			title := filepath.Base(lib.Dir)
			status.SetText("Rendering contact sheet…")
			go func() {
				placed, err := export.ContactSheetPDF(paths, out, export.SheetOptions{
					Title:       title,
					JPEGQuality: cfg.General.JPEGQuality,
				})
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, w)
						updateStatus()
						return
					}
					status.SetText(fmt.Sprintf("Contact sheet saved with %d images.", placed))
				})
			}()
		}, w)
		fd.SetFileName(filepath.Base(lib.Dir) + ".pdf")
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
		fd.Show()
	}
	exportCBZ := func() {
		if lib == nil {
			dialog.ShowInformation("Export", "Open a folder first.", w)
			return
		}
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			out := uc.URI().Path()
			_ = uc.Close()
			paths := append([]string(nil), lib.Paths...)
			status.SetText("Packing CBZ…")
			go func() {
				added, err := export.ExportCBZ(paths, out, export.CBZOptions{})
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, w)
						updateStatus()
						return
					}
					status.SetText(fmt.Sprintf("CBZ saved with %d pages.", added))
				})
			}()
		}, w)
		fd.SetFileName(filepath.Base(lib.Dir) + ".cbz")
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".cbz"}))
		fd.Show()
	}

	// Build menus
	openItem := fyne.NewMenuItem("Open Folder…", func() { openFolderDialog() })
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	var recentItems []*fyne.MenuItem
	for _, p := range loadRecentFolders(prefs) {
		dir := p
		recentItems = append(recentItems, fyne.NewMenuItem(dir, func() { openFolder(dir) }))
	}
	if len(recentItems) == 0 {
		none := fyne.NewMenuItem("(none)", nil)
		none.Disabled = true
		recentItems = append(recentItems, none)
	}
	recentItem.ChildMenu = fyne.NewMenu("", recentItems...)
	refreshThumbsItem := fyne.NewMenuItem("Refresh Thumbnails", func() {
		if lib == nil || store == nil {
			dialog.ShowInformation("Thumbnails", "Open a folder first (with the cache enabled).", w)
			return
		}
		status.SetText("Rebuilding thumbnails…")
		buildThumbs()
	})
	exportItem := fyne.NewMenuItem("Export", nil)
	exportItem.ChildMenu = fyne.NewMenu("",
		fyne.NewMenuItem("Contact Sheet…", func() { exportSheet() }),
		fyne.NewMenuItem("CBZ Archive…", func() { exportCBZ() }),
	)
	fileMenu := fyne.NewMenu("File", openItem, recentItem, fyne.NewMenuItemSeparator(),
		refreshThumbsItem, exportItem)

	toggleCropItem := fyne.NewMenuItem("Toggle Crop Mode", func() { cropCheck.SetChecked(!cropCheck.Checked) })
	suggestItem := fyne.NewMenuItem("Suggest Crop", func() { suggest() })
	cropMenu := fyne.NewMenu("Crop", toggleCropItem, suggestItem)

	themeAutoItem := fyne.NewMenuItem("System Theme", func() { setTheme("auto") })
	themeLightItem := fyne.NewMenuItem("Light Theme", func() { setTheme("light") })
	themeDarkItem := fyne.NewMenuItem("Dark Theme", func() { setTheme("dark") })
	viewMenu := fyne.NewMenu("View", themeAutoItem, themeLightItem, themeDarkItem)

	howToItem := fyne.NewMenuItem("How to Use…", func() { showHelp() })
	aboutItem := fyne.NewMenuItem("About Croppy", func() {
		l.Info("menu: about")
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		info := fmt.Sprintf("Croppy\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
		dialog.ShowInformation("Installation Environment", info, w)
	})
	copyrightItem := fyne.NewMenuItem("Copyright…", func() {
		l.Info("menu: copyright")
		currentYear := time.Now().Year()
		msg := fmt.Sprintf("Croppy\nCopyright © 2023-%d The Croppy Authors\n\nLicensed under the Apache License, Version 2.0.\nSee the LICENSE file for details.", currentYear)
		dialog.ShowInformation("Copyright", msg, w)
	})
	helpMenu := fyne.NewMenu("Help", howToItem, fyne.NewMenuItemSeparator(), aboutItem, copyrightItem)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, cropMenu, viewMenu, helpMenu))

	// Keyboard: a shortcut for the folder dialog, plain keys for the rest.
	// Plain keys arrive via SetOnTypedKey as long as no text widget holds
	// focus.
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		openFolderDialog()
	})
	w.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyLeft:
			prev()
		case fyne.KeyRight:
			next()
		case fyne.KeyC:
			cropCheck.SetChecked(!cropCheck.Checked)
		case fyne.KeyS:
			suggest()
		case fyne.KeyReturn, fyne.KeyEnter:
			cropCanvas.AcceptSuggestion()
		case fyne.KeyEscape:
			escape()
		}
	})

	stripScroll := container.NewHScroll(strip)
	stripScroll.SetMinSize(fyne.NewSize(0, 148))
	bottomBar := container.NewBorder(nil, nil, cropCheck, readout, status)
	bottom := container.NewMax(barFill, container.NewVBox(stripScroll, bottomBar))
	w.SetContent(container.NewBorder(nil, bottom, nil, nil, container.NewMax(cropCanvas)))

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if store != nil {
			_ = store.Close()
		}
		w.Close()
	})

	if folder != "" {
		openFolder(folder)
	} else {
		openFolderDialog()
	}

	if !cfg.General.HideHelp && !prefs.BoolWithFallback(helpSuppressKey, false) {
		showHelp()
	}

	w.ShowAndRun()
	return nil
}

// resolveMode turns the configured theme name into a concrete mode,
// following the system variant for anything that is not an explicit
// "light" or "dark".
func resolveMode(pref string, sys fyne.ThemeVariant) theme.Mode {
	if m, ok := theme.ParseMode(pref); ok {
		return m
	}
	if sys == ftheme.VariantLight {
		return theme.ModeLight
	}
	return theme.ModeDark
}

func collectStripIcons(ctx context.Context, st *thumbs.Store, paths []string) [][]byte {
	icons := make([][]byte, len(paths))
	for i, p := range paths {
		data, err := st.ForImage(ctx, p)
		if err != nil {
			continue
		}
		icons[i] = data
	}
	return icons
}

// Recent folder persistence helpers for the File menu
const recentPrefsKey = "recent.folders"
const recentMax = 10

func loadRecentFolders(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	if items == nil {
		items = []string{}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentFolders(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentFolder(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentFolders(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentFolders(p, out)
}

// CropCanvas is the image viewport: it letterboxes the current image,
// feeds crop-selection drags into the gesture machine and draws the
// selection overlay. All geometry decisions live in internal/geom and
// internal/crop; the widget only shuttles pointer events in and
// rectangles out.
type CropCanvas struct {
	widget.BaseWidget

	machine *crop.Machine
	pal     theme.Palette

	src        image.Image
	srcW, srcH int
	bright     bool // corner brightness of src, picks the letterbox shade
	msg        string
	msgErr     bool

	cropMode bool
	dragging bool
	last     geom.Pt

	overlay   geom.Rect
	overlayOn bool

	// suggestion is kept in source pixels and projected to display space
	// at render time, so it survives window resizes.
	suggestion   image.Rectangle
	suggestionOn bool

	// OnCrop receives a committed selection in source pixels.
	OnCrop func(r image.Rectangle)
	// OnSelection mirrors the live selection in source pixels; live is
	// false when the overlay is cleared without a commit.
	OnSelection func(r image.Rectangle, live bool)
}

func NewCropCanvas(pal theme.Palette) *CropCanvas {
	c := &CropCanvas{
		machine: crop.NewMachine(geom.Layout{}),
		pal:     pal,
		msg:     "Open a folder to begin",
	}
	c.ExtendBaseWidget(c)
	return c
}

// Resize recomputes the display layout; fyne calls it on every window
// resize. A drag in flight is cancelled by the relayout.
func (c *CropCanvas) Resize(size fyne.Size) {
	c.BaseWidget.Resize(size)
	if c.src == nil {
		return
	}
	lay, err := geom.Compute(c.srcW, c.srcH, int(size.Width), int(size.Height), geom.DefaultMargin)
	if err != nil {
		return
	}
	if lay == c.machine.Layout() {
		return
	}
	c.dragging = false
	c.applyOutcome(c.machine.Relayout(lay))
	c.Refresh()
}

// BeginLoad blocks gesture handling while the next image decodes. The
// previous image stays visible to avoid flicker.
func (c *CropCanvas) BeginLoad() {
	c.dragging = false
	c.suggestionOn = false
	c.applyOutcome(c.machine.BeginLoad())
	c.Refresh()
}

// SetImage installs a decoded image and recomputes the layout.
func (c *CropCanvas) SetImage(img image.Image) {
	b := img.Bounds()
	c.src = img
	c.srcW, c.srcH = b.Dx(), b.Dy()
	c.bright = media.BrightAtCorners(img)
	c.msg = ""
	c.suggestionOn = false
	size := c.Size()
	lay, err := geom.Compute(c.srcW, c.srcH, int(size.Width), int(size.Height), geom.DefaultMargin)
	if err != nil {
		c.src = nil
		c.msg = "Image has no pixels"
		c.msgErr = true
		c.Refresh()
		return
	}
	c.applyOutcome(c.machine.FinishLoad(lay))
	c.Refresh()
}

// ShowMessage replaces the image with a centered notice.
func (c *CropCanvas) ShowMessage(msg string, isError bool) {
	c.src = nil
	c.msg = msg
	c.msgErr = isError
	c.suggestionOn = false
	c.Refresh()
}

func (c *CropCanvas) HasImage() bool         { return c.src != nil }
func (c *CropCanvas) Source() image.Image    { return c.src }
func (c *CropCanvas) SourceSize() (int, int) { return c.srcW, c.srcH }
func (c *CropCanvas) CropMode() bool         { return c.cropMode }
func (c *CropCanvas) Dragging() bool         { return c.machine.State() == crop.StateDragging }

func (c *CropCanvas) SetCropMode(on bool) {
	c.cropMode = on
	if !on && c.Dragging() {
		c.CancelGesture()
		return
	}
	c.Refresh()
}

// CancelGesture abandons a drag in progress and clears the overlay.
func (c *CropCanvas) CancelGesture() {
	c.dragging = false
	c.applyOutcome(c.machine.Cancel())
	c.Refresh()
}

func (c *CropCanvas) SetPalette(pal theme.Palette) {
	c.pal = pal
	c.Refresh()
}

// ShowSuggestion overlays a proposed crop, in source pixels, for the
// user to accept or discard.
func (c *CropCanvas) ShowSuggestion(r image.Rectangle) {
	if c.src == nil {
		return
	}
	c.suggestion = r
	c.suggestionOn = true
	c.Refresh()
}

// HasSuggestion reports whether a suggestion overlay is showing.
func (c *CropCanvas) HasSuggestion() bool { return c.suggestionOn }

// ClearSuggestion removes the suggestion overlay, reporting whether one
// was showing.
func (c *CropCanvas) ClearSuggestion() bool {
	if !c.suggestionOn {
		return false
	}
	c.suggestionOn = false
	c.Refresh()
	return true
}

// AcceptSuggestion commits the suggested rectangle as if it had been
// dragged out by hand.
func (c *CropCanvas) AcceptSuggestion() {
	if !c.suggestionOn {
		return
	}
	r := c.suggestion
	c.suggestionOn = false
	c.Refresh()
	if c.OnCrop != nil {
		c.OnCrop(r)
	}
}

// Dragged feeds pointer drags into the gesture machine while crop mode
// is on. Positions are relative to the widget, which is also the space
// the layout was computed in.
func (c *CropCanvas) Dragged(e *fyne.DragEvent) {
	if !c.cropMode || c.src == nil {
		return
	}
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	c.last = p
	var out crop.Outcome
	if !c.dragging {
		c.dragging = true
		c.suggestionOn = false
		out = c.machine.Apply(crop.Event{Kind: crop.EventStart, Point: p})
	} else {
		out = c.machine.Apply(crop.Event{Kind: crop.EventMove, Point: p})
	}
	c.applyOutcome(out)
	c.Refresh()
}

// DragEnd finishes the gesture at the last observed position; fyne does
// not attach one to the end event.
func (c *CropCanvas) DragEnd() {
	if !c.dragging {
		return
	}
	c.dragging = false
	c.applyOutcome(c.machine.Apply(crop.Event{Kind: crop.EventEnd, Point: c.last}))
	c.Refresh()
}

// Tapped clears a leftover suggestion overlay.
func (c *CropCanvas) Tapped(*fyne.PointEvent) {
	if c.suggestionOn {
		c.suggestionOn = false
		c.Refresh()
	}
}

func (c *CropCanvas) Cursor() desktop.Cursor {
	if c.cropMode && c.src != nil {
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

func (c *CropCanvas) applyOutcome(out crop.Outcome) {
	c.overlay = out.Overlay
	c.overlayOn = out.OverlayVisible
	if c.OnSelection != nil {
		if out.OverlayVisible {
			c.OnSelection(c.toSource(out.Overlay), true)
		} else {
			c.OnSelection(image.Rectangle{}, false)
		}
	}
	if out.Committed && c.OnCrop != nil {
		c.OnCrop(out.Crop)
	}
}

// toSource maps a display-space rectangle to source pixels for the live
// readout. The committed rectangle comes from the machine instead; this
// one is display-only.
func (c *CropCanvas) toSource(r geom.Rect) image.Rectangle {
	lay := c.machine.Layout()
	p0 := lay.ToImage(geom.Pt{X: r.X, Y: r.Y})
	p1 := lay.ToImage(geom.Pt{X: r.X + r.W, Y: r.Y + r.H})
	return image.Rect(int(p0.X), int(p0.Y), int(p1.X), int(p1.Y))
}

// CreateRenderer builds the letterbox background, the image, its border,
// the selection overlay and the notice text, positioned manually.
func (c *CropCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(c.pal.CanvasBG)

	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.Hide()

	border := canvas.NewRectangle(color.NRGBA{})
	border.StrokeColor = c.pal.ImageBorder
	border.StrokeWidth = 1
	border.Hide()

	overlay := canvas.NewRectangle(color.NRGBA{})
	overlay.StrokeColor = c.pal.CropBorder
	overlay.StrokeWidth = 2
	overlay.Hide()

	msg := canvas.NewText(c.msg, c.pal.Text)
	msg.Alignment = fyne.TextAlignCenter
	msg.TextSize = 16

	return &cropCanvasRenderer{
		cc:      c,
		objects: []fyne.CanvasObject{bg, img, border, overlay, msg},
		bg:      bg,
		img:     img,
		border:  border,
		overlay: overlay,
		msg:     msg,
	}
}

// cropCanvasRenderer positions the drawable objects from the current
// display layout. It never mutates the widget or the gesture machine.
type cropCanvasRenderer struct {
	cc      *CropCanvas
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	img     *canvas.Image
	border  *canvas.Rectangle
	overlay *canvas.Rectangle
	msg     *canvas.Text
}

func (r *cropCanvasRenderer) Destroy()                     {}
func (r *cropCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *cropCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 240) }
func (r *cropCanvasRenderer) Refresh()                     { r.Layout(r.cc.Size()); canvas.Refresh(r.cc) }

func (r *cropCanvasRenderer) Layout(size fyne.Size) {
	cc := r.cc
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)

	if cc.src == nil {
		r.setFill(r.bg, cc.pal.CanvasBG)
		r.img.Hide()
		r.border.Hide()
		r.overlay.Hide()
		if cc.msg != "" {
			col := cc.pal.Text
			if cc.msgErr {
				col = cc.pal.ErrorText
			}
			r.msg.Text = cc.msg
			r.msg.Color = col
			r.msg.Resize(fyne.NewSize(size.Width, 32))
			r.msg.Move(fyne.NewPos(0, size.Height/2-16))
			r.msg.Show()
			r.msg.Refresh()
		} else {
			r.msg.Hide()
		}
		return
	}

	r.msg.Hide()
	r.setFill(r.bg, cc.pal.Letterbox(cc.bright))

	lay := cc.machine.Layout()
	if r.img.Image != cc.src {
		r.img.Image = cc.src
		r.img.Refresh()
	}
	r.img.Show()
	r.img.Resize(fyne.NewSize(float32(lay.DisplayW), float32(lay.DisplayH)))
	r.img.Move(fyne.NewPos(float32(lay.OffsetX), float32(lay.OffsetY)))

	r.border.Show()
	r.setStroke(r.border, cc.pal.ImageBorder)
	r.border.Resize(fyne.NewSize(float32(lay.DisplayW+2), float32(lay.DisplayH+2)))
	r.border.Move(fyne.NewPos(float32(lay.OffsetX-1), float32(lay.OffsetY-1)))

	var ov geom.Rect
	ovOn := false
	switch {
	case cc.overlayOn:
		ov = cc.overlay
		ovOn = true
	case cc.suggestionOn:
		p0 := lay.ToDisplay(geom.Pt{X: float64(cc.suggestion.Min.X), Y: float64(cc.suggestion.Min.Y)})
		p1 := lay.ToDisplay(geom.Pt{X: float64(cc.suggestion.Max.X), Y: float64(cc.suggestion.Max.Y)})
		ov = geom.FromCorners(p0, p1)
		ovOn = true
	}
	if ovOn {
		r.overlay.Show()
		r.setStroke(r.overlay, cc.pal.CropBorder)
		r.overlay.Resize(fyne.NewSize(float32(ov.W), float32(ov.H)))
		r.overlay.Move(fyne.NewPos(float32(ov.X), float32(ov.Y)))
	} else {
		r.overlay.Hide()
	}
}

func (r *cropCanvasRenderer) setFill(rect *canvas.Rectangle, col color.NRGBA) {
	if rect.FillColor != col {
		rect.FillColor = col
		rect.Refresh()
	}
}

func (r *cropCanvasRenderer) setStroke(rect *canvas.Rectangle, col color.NRGBA) {
	if rect.StrokeColor != col {
		rect.StrokeColor = col
		rect.Refresh()
	}
}
