/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"croppy/internal/config"
	"croppy/internal/crash"
	"croppy/internal/crop"
	"croppy/internal/export"
	"croppy/internal/library"
	applog "croppy/internal/log"
	"croppy/internal/media"
	"croppy/internal/thumbs"
	"croppy/internal/ui"
	"croppy/internal/version"
)

func usage() {
	fmt.Println("Croppy — folder image cropper")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  croppy version|-v|--version                 Show version")
	fmt.Println("  croppy ui [<folder>]                        Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  croppy crop -in FILE -rect X1,Y1,X2,Y2      Crop FILE headless; -rect is in source pixels")
	fmt.Println("             [-out FILE] [-suggest WxH]        -suggest picks a WxH region instead of -rect")
	fmt.Println("  croppy scan <folder>                        Scan a folder and build its thumbnail cache")
	fmt.Println("  croppy sheet [-out FILE] [-preset NAME]     Render a contact sheet PDF of a folder")
	fmt.Println("              [-title TEXT] <folder>          Presets: " + strings.Join(export.SheetPresetNames(), ", "))
	fmt.Println("  croppy cbz [-out FILE] <folder>             Pack a folder into a CBZ archive")
	fmt.Println("  croppy config                               Print the effective configuration")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var workDir string
	defer crash.Recover(&workDir)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Croppy — folder image cropper")
			fmt.Println(version.String())
			return
		case "crop":
			fs := flag.NewFlagSet("crop", flag.ExitOnError)
			in := fs.String("in", "", "input image file")
			rectSpec := fs.String("rect", "", "crop rectangle X1,Y1,X2,Y2 in source pixels")
			out := fs.String("out", "", "output file (default: an output folder next to the input)")
			suggestSpec := fs.String("suggest", "", "let smartcrop pick a WxH region instead of -rect")
			_ = fs.Parse(args[2:])
			if *in == "" || (*rectSpec == "") == (*suggestSpec == "") {
				fmt.Println("crop requires -in and exactly one of -rect or -suggest")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(*in)
			workDir = filepath.Dir(abs)
			cfg, _ := config.Load()
			l.Info("crop", slog.String("in", abs))
			img, err := media.Decode(abs)
			if err != nil {
				l.Error("decode failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			var r image.Rectangle
			if *rectSpec != "" {
				r, err = parseRect(*rectSpec)
				if err != nil {
					fmt.Println("Error:", err)
					os.Exit(2)
				}
			} else {
				sw, sh, perr := parseSize(*suggestSpec)
				if perr != nil {
					fmt.Println("Error:", perr)
					os.Exit(2)
				}
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				r, err = media.SuggestCrop(ctx, img, sw, sh)
				cancel()
				if err != nil {
					l.Error("suggestion failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Printf("Suggested crop: %d,%d,%d,%d\n", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
			}
			sub, err := crop.Cut(img, r)
			if err != nil {
				l.Error("crop failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dest := *out
			if dest == "" {
				dest = library.OutputPath(abs, cfg.General.OutputDirName)
			}
			if err := library.EnsureDir(dest); err != nil {
				l.Error("create output dir failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			saved, err := media.Save(sub, dest, cfg.General.JPEGQuality)
			if err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Saved %s (%dx%d px)\n", saved, r.Dx(), r.Dy())
			return
		case "scan":
			if len(args) < 3 {
				fmt.Println("scan requires <folder>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			workDir = abs
			l.Info("scan folder", slog.String("dir", abs))
			lib, err := library.Open(abs)
			if err != nil {
				l.Error("scan failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Found %d images in %s\n", lib.Len(), abs)
			cfg, _ := config.Load()
			if cfg.Cache.Disabled {
				fmt.Println("Thumbnail cache is disabled in the configuration.")
				return
			}
			store, err := thumbs.Open(abs, cfg.Cache.MaxEntries)
			if err != nil {
				l.Error("cache open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			start := time.Now()
			n, err := store.Build(context.Background(), lib.Paths, thumbs.DefaultWorkers)
			if err != nil {
				_ = store.Close()
				l.Error("thumbnail build failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			total, _ := store.Len(context.Background())
			_ = store.Close()
			fmt.Printf("Thumbnails: %d generated, %d cached, took %s\n", n, total, time.Since(start).Round(time.Millisecond))
			return
		case "sheet":
			fs := flag.NewFlagSet("sheet", flag.ExitOnError)
			out := fs.String("out", "", "output PDF (default: <folder>/<folder name>.pdf)")
			preset := fs.String("preset", "", "layout preset (default: "+export.DefaultSheetPreset+")")
			title := fs.String("title", "", "page header (default: the folder name)")
			noCaptions := fs.Bool("no-captions", false, "omit filenames under the images")
			_ = fs.Parse(args[2:])
			if fs.Arg(0) == "" {
				fmt.Println("sheet requires <folder>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(fs.Arg(0))
			workDir = abs
			lib, err := library.Open(abs)
			if err != nil {
				l.Error("scan failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cfg, _ := config.Load()
			dest := *out
			if dest == "" {
				dest = filepath.Join(abs, filepath.Base(abs)+".pdf")
			}
			head := *title
			if head == "" {
				head = filepath.Base(abs)
			}
			start := time.Now()
			placed, err := export.ContactSheetPDF(lib.Paths, dest, export.SheetOptions{
				Preset:       *preset,
				Title:        head,
				HideCaptions: *noCaptions,
				JPEGQuality:  cfg.General.JPEGQuality,
			})
			if err != nil {
				l.Error("contact sheet failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Contact sheet %s with %d images, took %s\n", dest, placed, time.Since(start).Round(time.Millisecond))
			return
		case "cbz":
			fs := flag.NewFlagSet("cbz", flag.ExitOnError)
			out := fs.String("out", "", "output CBZ (default: <folder>/<folder name>.cbz)")
			series := fs.String("series", "", "manifest series (default: the folder name)")
			title := fs.String("title", "", "manifest title (default: the series)")
			_ = fs.Parse(args[2:])
			if fs.Arg(0) == "" {
				fmt.Println("cbz requires <folder>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(fs.Arg(0))
			workDir = abs
			lib, err := library.Open(abs)
			if err != nil {
				l.Error("scan failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dest := *out
			if dest == "" {
				dest = filepath.Join(abs, filepath.Base(abs)+".cbz")
			}
			added, err := export.ExportCBZ(lib.Paths, dest, export.CBZOptions{Series: *series, Title: *title})
			if err != nil {
				l.Error("cbz failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("CBZ %s with %d pages\n", dest, added)
			return
		case "config":
			cfg, err := config.Load()
			if err != nil {
				l.Warn("config load failed, using defaults", slog.Any("err", err))
			}
			printConfig(cfg)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// parseRect parses "X1,Y1,X2,Y2" into a source-pixel rectangle.
func parseRect(spec string) (image.Rectangle, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rect %q: want X1,Y1,X2,Y2", spec)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rect %q: %w", spec, err)
		}
		n[i] = v
	}
	r := image.Rect(n[0], n[1], n[2], n[3])
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("rect %q is empty", spec)
	}
	return r, nil
}

// parseSize parses "WxH" into positive dimensions.
func parseSize(spec string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(spec), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", spec)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", spec, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", spec, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: dimensions must be positive", spec)
	}
	return w, h, nil
}

func printConfig(cfg config.AppConfig) {
	rows := []struct {
		key string
		val any
	}{
		{"general.theme", cfg.General.Theme},
		{"general.hide_help", cfg.General.HideHelp},
		{"general.jpeg_quality", cfg.General.JPEGQuality},
		{"general.output_dir_name", cfg.General.OutputDirName},
		{"general.palette_file", cfg.General.PaletteFile},
		{"general.advance_on_crop", cfg.General.AdvanceOnCrop},
		{"cache.disabled", cfg.Cache.Disabled},
		{"cache.max_entries", cfg.Cache.MaxEntries},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"logging.source", cfg.Logging.Source},
		{"logging.file", cfg.Logging.File},
	}
	for _, row := range rows {
		line := fmt.Sprintf("%-26s %v", row.key, row.val)
		if env, ok := config.EnvOverrideFor(row.key); ok {
			line += fmt.Sprintf("   (overridden by %s)", env)
		}
		fmt.Println(line)
	}
}
