/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crop

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrOutOfBounds reports a crop rectangle inconsistent with the source
// image. The selection pipeline clamps everything upstream, so hitting
// this means a bug there, not bad user input; it is not retryable.
var ErrOutOfBounds = errors.New("crop rectangle out of image bounds")

// Cut extracts the half-open region [Min.X,Min.Y)-(Max.X,Max.Y) from src
// as a new, independent buffer of size r.Dx()×r.Dy(). The rectangle is in
// src's own coordinate space. Unlike imaging.Crop alone, an out-of-bounds
// rectangle fails loudly instead of being silently intersected away.
func Cut(src image.Image, r image.Rectangle) (image.Image, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source: %w", ErrOutOfBounds)
	}
	b := src.Bounds()
	if r.Empty() || !r.In(b) {
		return nil, fmt.Errorf("rect %v against bounds %v: %w", r, b, ErrOutOfBounds)
	}
	return imaging.Crop(src, r), nil
}
