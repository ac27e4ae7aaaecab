/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package library lists the images of a folder and tracks the browsing
// position. File contents are never touched here; decoding belongs to
// the media package.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoImages reports a folder without a single supported image file.
var ErrNoImages = errors.New("no image files found")

// DefaultOutputDirName is the subfolder cropped results are written to.
const DefaultOutputDirName = "cropped"

// WorkDirName holds per-folder ephemeral data (thumbnail cache, crash
// reports). Safe to delete at any time.
const WorkDirName = ".croppy"

// supportedExt lists the extensions the browser picks up, lowercase.
// Only formats the media package can actually decode belong here.
var supportedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
	".ico": true,
}

// IsSupported reports whether the file name carries a supported image
// extension. The check is case-insensitive.
func IsSupported(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

// Scan returns the supported image files of dir (non-recursive), sorted
// in natural order so img2 comes before img10.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Slice(paths, func(i, j int) bool {
		return NaturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
	return paths, nil
}

// Library is the browsing session over one folder: the sorted image
// paths and the current position.
type Library struct {
	Dir   string
	Paths []string
	index int
}

// Open scans dir and positions the session on the first image.
func Open(dir string) (*Library, error) {
	paths, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoImages)
	}
	return &Library{Dir: dir, Paths: paths}, nil
}

func (l *Library) Len() int   { return len(l.Paths) }
func (l *Library) Index() int { return l.index }

// Current returns the path at the current position.
func (l *Library) Current() string { return l.Paths[l.index] }

// Jump moves to index i, clamped into range, and returns the new path.
func (l *Library) Jump(i int) string {
	if i < 0 {
		i = 0
	}
	if i >= len(l.Paths) {
		i = len(l.Paths) - 1
	}
	l.index = i
	return l.Paths[l.index]
}

// Next reports the index one step forward and whether that step wraps
// past the last image. The position is not changed; callers confirm the
// wrap with the user first and then Jump.
func (l *Library) Next() (int, bool) {
	if l.index+1 >= len(l.Paths) {
		return 0, true
	}
	return l.index + 1, false
}

// Prev reports the index one step back and whether that step wraps
// before the first image.
func (l *Library) Prev() (int, bool) {
	if l.index-1 < 0 {
		return len(l.Paths) - 1, true
	}
	return l.index - 1, false
}

// Step returns the index delta steps away with wrap-around, for callers
// that navigate freely without confirmation.
func (l *Library) Step(delta int) int {
	n := len(l.Paths)
	return ((l.index+delta)%n + n) % n
}

// OutputPath places the cropped counterpart of src under a sibling
// subfolder: <dir>/<outDirName>/<base>_cropped<ext>. An existing file at
// that path is overwritten by the caller.
func OutputPath(src, outDirName string) string {
	if outDirName == "" {
		outDirName = DefaultOutputDirName
	}
	dir := filepath.Dir(src)
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, outDirName, stem+"_cropped"+ext)
}

// EnsureDir creates the parent directory of path if needed.
func EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// NaturalLess orders names the way humans read them: runs of digits
// compare by numeric value, everything else case-insensitively. Ties
// (img1 vs img01) break on run length, then bytes, keeping the order
// total and deterministic.
func NaturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	i, j := 0, 0
	for i < len(la) && j < len(lb) {
		ca, cb := la[i], lb[j]
		da, db := isDigit(ca), isDigit(cb)
		switch {
		case da && db:
			na, ea := digitRun(la, i)
			nb, eb := digitRun(lb, j)
			if c := compareNumeric(na, nb); c != 0 {
				return c < 0
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			i, j = ea, eb
		case da != db:
			// Digits sort before letters at the same position.
			return da
		default:
			if ca != cb {
				return ca < cb
			}
			i++
			j++
		}
	}
	if len(la)-i != len(lb)-j {
		return len(la)-i < len(lb)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitRun returns the digit run starting at i and the index after it.
func digitRun(s string, i int) (string, int) {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return s[i:j], j
}

// compareNumeric compares two digit strings as integers of any length.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
