/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Basic 2D geometry for display-space work. Float values use float64 so the
// display→image scale factors keep full precision; UI toolkits hand us
// float32 positions, which callers widen at the boundary.

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// FromCorners returns the normalized rectangle spanned by two arbitrary
// corner points, so W and H are never negative.
func FromCorners(a, b Pt) Rect {
	x1, x2 := min(a.X, b.X), max(a.X, b.X)
	y1, y2 := min(a.Y, b.Y), max(a.Y, b.Y)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
