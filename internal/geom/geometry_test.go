/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "testing"

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	out := r.Inset(-1, -1)
	if out.X != 9 || out.Y != 19 || out.W != 102 || out.H != 52 {
		t.Fatalf("unexpected outset: %+v", out)
	}
}

func TestFromCornersNormalizes(t *testing.T) {
	r := FromCorners(Pt{300, 250}, Pt{100, 100})
	if r.X != 100 || r.Y != 100 || r.W != 200 || r.H != 150 {
		t.Fatalf("unexpected rect: %+v", r)
	}
	if !FromCorners(Pt{5, 5}, Pt{5, 5}).Empty() {
		t.Fatalf("zero-size rect should be empty")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 10, 20) != 10 || Clamp(25, 10, 20) != 20 || Clamp(15, 10, 20) != 15 {
		t.Fatalf("clamp misbehaves")
	}
}
