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
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
)

// resizer backs smartcrop's analysis with imaging's Lanczos filter.
type resizer struct{}

func (resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), imaging.Lanczos)
}

// SuggestCrop asks smartcrop for the most interesting width×height
// region of img. FindBestCrop itself cannot be interrupted, so it runs
// in a goroutine and the context only abandons the wait.
func SuggestCrop(ctx context.Context, img image.Image, width, height int) (image.Rectangle, error) {
	if img == nil || width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("suggest crop: bad input %dx%d", width, height)
	}
	analyzer := smartcrop.NewAnalyzer(resizer{})

	type result struct {
		crop image.Rectangle
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		crop, err := analyzer.FindBestCrop(img, width, height)
		ch <- result{crop: crop, err: err}
	}()

	select {
	case <-ctx.Done():
		return image.Rectangle{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return image.Rectangle{}, fmt.Errorf("find best crop: %w", r.err)
		}
		// Keep the suggestion inside the source; the analyzer works on a
		// scaled copy and its box can exceed the bounds by a pixel.
		return r.crop.Intersect(img.Bounds()), nil
	}
}
