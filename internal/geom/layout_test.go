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
	"math"
	"testing"
)

func TestComputeLandscapeInLandscapeArea(t *testing.T) {
	// 4000x3000 into 800x600 with the default margin: avail is 760x560,
	// 760/560 is wider than 4:3, so height binds.
	l, err := Compute(4000, 3000, 800, 600, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l.DisplayH != 560 {
		t.Fatalf("DisplayH = %d, want 560", l.DisplayH)
	}
	if l.DisplayW != 747 { // round(560*4000/3000)
		t.Fatalf("DisplayW = %d, want 747", l.DisplayW)
	}
	if l.OffsetX != 26 || l.OffsetY != 20 {
		t.Fatalf("offsets = (%d,%d), want (26,20)", l.OffsetX, l.OffsetY)
	}
	if math.Abs(l.ScaleX-4000.0/747.0) > 1e-9 {
		t.Fatalf("ScaleX = %v", l.ScaleX)
	}
}

func TestComputeWidthBinds(t *testing.T) {
	// A wide panorama in a squarish area: width is the constraint.
	l, err := Compute(4000, 1000, 800, 600, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l.DisplayW != 760 {
		t.Fatalf("DisplayW = %d, want 760", l.DisplayW)
	}
	if l.DisplayH != 190 { // round(760*1000/4000)
		t.Fatalf("DisplayH = %d, want 190", l.DisplayH)
	}
	if l.OffsetX != 20 || l.OffsetY != 205 {
		t.Fatalf("offsets = (%d,%d), want (20,205)", l.OffsetX, l.OffsetY)
	}
}

func TestComputeBoundsAndAspect(t *testing.T) {
	cases := []struct{ w, h, aw, ah, m int }{
		{4000, 3000, 800, 600, 20},
		{3000, 4000, 800, 600, 20},
		{100, 100, 1920, 1080, 20},
		{6000, 500, 1024, 768, 20},
		{640, 480, 601, 601, 20},
		{375, 5000, 800, 600, 20},
	}
	for _, c := range cases {
		l, err := Compute(c.w, c.h, c.aw, c.ah, c.m)
		if err != nil {
			t.Fatalf("Compute(%+v) error: %v", c, err)
		}
		if l.DisplayW > c.aw-2*c.m || l.DisplayH > c.ah-2*c.m {
			t.Fatalf("Compute(%+v) exceeds available area: %+v", c, l)
		}
		got := float64(l.DisplayW) / float64(l.DisplayH)
		want := float64(c.w) / float64(c.h)
		// Rounding on a tiny display edge distorts the ratio; allow
		// the error one pixel of the shorter edge introduces.
		shorter := math.Min(float64(l.DisplayW), float64(l.DisplayH))
		if math.Abs(got-want)/want > 1.0/shorter+1e-9 {
			t.Fatalf("Compute(%+v) aspect %v, want %v (display %dx%d)", c, got, want, l.DisplayW, l.DisplayH)
		}
	}
}

func TestComputeFallbackArea(t *testing.T) {
	// Window not yet sized (1x1): fall back to 800x600.
	l, err := Compute(4000, 3000, 1, 1, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	want, err := Compute(4000, 3000, FallbackAreaW, FallbackAreaH, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l != want {
		t.Fatalf("fallback layout %+v, want %+v", l, want)
	}

	// Margin bigger than the fallback area: margin is ignored, not fatal.
	l, err = Compute(100, 100, 10, 10, 500)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l.DisplayW <= 0 || l.DisplayH <= 0 {
		t.Fatalf("degenerate layout: %+v", l)
	}
}

func TestComputeInvalidImage(t *testing.T) {
	for _, d := range [][2]int{{0, 100}, {100, 0}, {-1, 100}, {0, 0}} {
		if _, err := Compute(d[0], d[1], 800, 600, DefaultMargin); !errors.Is(err, ErrInvalidImage) {
			t.Fatalf("Compute(%v) err = %v, want ErrInvalidImage", d, err)
		}
	}
}

func TestValidateArea(t *testing.T) {
	if err := ValidateArea(800, 600, 20); err != nil {
		t.Fatalf("ValidateArea: %v", err)
	}
	if err := ValidateArea(30, 600, 20); !errors.Is(err, ErrInvalidArea) {
		t.Fatalf("err = %v, want ErrInvalidArea", err)
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	l, err := Compute(4000, 3000, 800, 600, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	pts := []Pt{
		{float64(l.OffsetX), float64(l.OffsetY)},
		{100, 100},
		{300, 250},
		{float64(l.OffsetX + l.DisplayW), float64(l.OffsetY + l.DisplayH)},
	}
	for _, p := range pts {
		q := l.ToDisplay(l.ToImage(p))
		if math.Abs(q.X-p.X) > 1 || math.Abs(q.Y-p.Y) > 1 {
			t.Fatalf("round trip %v -> %v drifts more than 1px", p, q)
		}
	}
}

func TestClampPtPullsMarginPointsToEdge(t *testing.T) {
	l, err := Compute(4000, 3000, 800, 600, DefaultMargin)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	p := l.ClampPt(Pt{5, 5}) // inside the margin, left of and above the image
	if p.X != float64(l.OffsetX) || p.Y != float64(l.OffsetY) {
		t.Fatalf("clamped to %v, want image origin (%d,%d)", p, l.OffsetX, l.OffsetY)
	}
	p = l.ClampPt(Pt{10000, 10000})
	if p.X != float64(l.OffsetX+l.DisplayW) || p.Y != float64(l.OffsetY+l.DisplayH) {
		t.Fatalf("clamped to %v, want far corner", p)
	}

	// Clamped inputs transform to in-bounds image coordinates.
	img := l.ToImage(l.ClampPt(Pt{-50, 9999}))
	if img.X < 0 || img.X > 4000 || img.Y < 0 || img.Y > 3000 {
		t.Fatalf("transformed point out of source bounds: %v", img)
	}
}

func TestDisplayRect(t *testing.T) {
	l := Layout{DisplayW: 747, DisplayH: 560, OffsetX: 26, OffsetY: 20}
	r := l.DisplayRect()
	if r.X != 26 || r.Y != 20 || r.W != 747 || r.H != 560 {
		t.Fatalf("unexpected display rect: %+v", r)
	}
}
