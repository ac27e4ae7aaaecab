/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidImage marks source dimensions that cannot be laid out.
	ErrInvalidImage = errors.New("invalid image dimensions")
	// ErrInvalidArea marks a display area with no usable room. Compute
	// recovers from it by substituting the fallback area; the sentinel is
	// for callers that validate areas directly.
	ErrInvalidArea = errors.New("invalid display area")
)

const (
	// DefaultMargin is the fixed letterbox buffer, in display pixels,
	// applied to all four sides of the available area.
	DefaultMargin = 20

	// Fallback area used when the reported window size leaves no room
	// after the margin (early in window construction it can be 1x1).
	FallbackAreaW = 800
	FallbackAreaH = 600
)

// Layout describes where a source image lands inside a display area:
// the aspect-preserving scaled size, the centering offset, and the
// display→image scale factors. Recomputed on every resize or image
// change, never stored beyond that.
type Layout struct {
	DisplayW, DisplayH int
	OffsetX, OffsetY   int
	ScaleX, ScaleY     float64
}

// Compute fits a srcW×srcH image into an areaW×areaH display area,
// preserving aspect ratio, leaving margin pixels on every side, and
// centering the result. A degenerate area (margin swallows it, or the
// toolkit reports a 1×1 window during startup) falls back to
// FallbackAreaW×FallbackAreaH instead of producing negative sizes.
func Compute(srcW, srcH, areaW, areaH, margin int) (Layout, error) {
	if srcW <= 0 || srcH <= 0 {
		return Layout{}, fmt.Errorf("source %dx%d: %w", srcW, srcH, ErrInvalidImage)
	}

	availW := areaW - 2*margin
	availH := areaH - 2*margin
	if availW <= 0 || availH <= 0 {
		areaW, areaH = FallbackAreaW, FallbackAreaH
		availW = areaW - 2*margin
		availH = areaH - 2*margin
		if availW <= 0 || availH <= 0 {
			// Margin larger than the fallback itself; ignore it.
			availW, availH = areaW, areaH
		}
	}

	var dispW, dispH int
	if float64(availW)/float64(availH) > float64(srcW)/float64(srcH) {
		// Available area is wider than the image aspect: height binds.
		dispH = availH
		dispW = int(math.Round(float64(availH) * float64(srcW) / float64(srcH)))
	} else {
		dispW = availW
		dispH = int(math.Round(float64(availW) * float64(srcH) / float64(srcW)))
	}
	if dispW < 1 {
		dispW = 1
	}
	if dispH < 1 {
		dispH = 1
	}

	return Layout{
		DisplayW: dispW,
		DisplayH: dispH,
		OffsetX:  (areaW - dispW) / 2,
		OffsetY:  (areaH - dispH) / 2,
		ScaleX:   float64(srcW) / float64(dispW),
		ScaleY:   float64(srcH) / float64(dispH),
	}, nil
}

// ValidateArea reports ErrInvalidArea when the area minus margins has no room.
func ValidateArea(areaW, areaH, margin int) error {
	if areaW-2*margin <= 0 || areaH-2*margin <= 0 {
		return fmt.Errorf("area %dx%d margin %d: %w", areaW, areaH, margin, ErrInvalidArea)
	}
	return nil
}

// DisplayRect is the on-screen rectangle the image occupies.
func (l Layout) DisplayRect() Rect {
	return R(float64(l.OffsetX), float64(l.OffsetY), float64(l.DisplayW), float64(l.DisplayH))
}

// ClampX limits a display-space x to the image's horizontal extent.
func (l Layout) ClampX(x float64) float64 {
	return Clamp(x, float64(l.OffsetX), float64(l.OffsetX+l.DisplayW))
}

// ClampY limits a display-space y to the image's vertical extent.
func (l Layout) ClampY(y float64) float64 {
	return Clamp(y, float64(l.OffsetY), float64(l.OffsetY+l.DisplayH))
}

// ClampPt limits a display-space point to the image's on-screen rectangle.
// A drag that starts or ends in the letterbox margin registers at the
// nearest image edge rather than being rejected.
func (l Layout) ClampPt(p Pt) Pt { return Pt{l.ClampX(p.X), l.ClampY(p.Y)} }

// ToImage maps a display-space point to original-image pixel space.
// The result is not clamped; clamp the input via ClampPt first to keep
// it inside [0,srcW]×[0,srcH].
func (l Layout) ToImage(p Pt) Pt {
	return Pt{
		X: (p.X - float64(l.OffsetX)) * l.ScaleX,
		Y: (p.Y - float64(l.OffsetY)) * l.ScaleY,
	}
}

// ToDisplay maps an original-image pixel point back to display space.
func (l Layout) ToDisplay(p Pt) Pt {
	return Pt{
		X: p.X/l.ScaleX + float64(l.OffsetX),
		Y: p.Y/l.ScaleY + float64(l.OffsetY),
	}
}
