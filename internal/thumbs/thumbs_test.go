/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package thumbs

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func testImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return path
}

func TestPutGetAndStaleDrop(t *testing.T) {
	folder := t.TempDir()
	s, err := Open(folder, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	blob := []byte{1, 2, 3, 4}
	if err := s.Put(ctx, "/img/a.png", 1000, 4, 3, blob); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "/img/a.png", 1000)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("Get = %v, want %v", got, blob)
	}

	// A changed mtime invalidates the row.
	got, err = s.Get(ctx, "/img/a.png", 2000)
	if err != nil {
		t.Fatalf("Get stale: %v", err)
	}
	if got != nil {
		t.Fatalf("stale Get should miss, got %d bytes", len(got))
	}
	if n, err := s.Len(ctx); err != nil || n != 0 {
		t.Fatalf("stale row not dropped: n=%d err=%v", n, err)
	}
}

func TestEvictOldestAccessFirst(t *testing.T) {
	folder := t.TempDir()
	s, err := Open(folder, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Put(ctx, "a", 1, 1, 1, []byte("aa")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // distinct access times
	if err := s.Put(ctx, "b", 1, 1, 1, []byte("bb")); err != nil {
		t.Fatalf("put b: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	// Touch a so b becomes the LRU victim.
	if _, err := s.Get(ctx, "a", 1); err != nil {
		t.Fatalf("touch a: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Put(ctx, "c", 1, 1, 1, []byte("cc")); err != nil {
		t.Fatalf("put c: %v", err)
	}

	if n, err := s.Len(ctx); err != nil || n != 2 {
		t.Fatalf("Len = %d, %v; want 2", n, err)
	}
	if got, _ := s.Get(ctx, "b", 1); got != nil {
		t.Fatalf("b should have been evicted")
	}
	if got, _ := s.Get(ctx, "a", 1); got == nil {
		t.Fatalf("a should have survived eviction")
	}
	if got, _ := s.Get(ctx, "c", 1); got == nil {
		t.Fatalf("c should have survived eviction")
	}
}

func TestForImageGeneratesAndCaches(t *testing.T) {
	folder := t.TempDir()
	src := writePNG(t, folder, "wide.png", testImage(400, 100, color.NRGBA{R: 200, A: 255}))

	s, err := Open(folder, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := s.ForImage(ctx, src)
	if err != nil {
		t.Fatalf("ForImage: %v", err)
	}
	thumb, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumb is not a PNG: %v", err)
	}
	b := thumb.Bounds()
	if b.Dx() != ThumbSize || b.Dy() != 32 {
		t.Fatalf("thumb = %dx%d, want %dx32", b.Dx(), b.Dy(), ThumbSize)
	}

	// Second call is a cache hit and returns identical bytes.
	again, err := s.ForImage(ctx, src)
	if err != nil {
		t.Fatalf("ForImage hit: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("cache hit returned different bytes")
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}

func TestBuildPopulatesAndSkipsCorrupt(t *testing.T) {
	folder := t.TempDir()
	p1 := writePNG(t, folder, "one.png", testImage(60, 60, color.NRGBA{G: 128, A: 255}))
	p2 := writePNG(t, folder, "two.png", testImage(30, 90, color.NRGBA{B: 128, A: 255}))
	bad := filepath.Join(folder, "broken.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write broken: %v", err)
	}

	s, err := Open(folder, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	built, err := s.Build(ctx, []string{p1, p2, bad}, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built != 2 {
		t.Fatalf("built = %d, want 2", built)
	}
	// Second pass hits the cache for the good files.
	built, err = s.Build(ctx, []string{p1, p2, bad}, 2)
	if err != nil {
		t.Fatalf("Build again: %v", err)
	}
	if built != 0 {
		t.Fatalf("rebuild built = %d, want 0", built)
	}
}

func TestOpenRecreatesCorruptCache(t *testing.T) {
	folder := t.TempDir()
	if err := os.MkdirAll(filepath.Dir(CachePath(folder)), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(CachePath(folder), []byte("garbage, not sqlite"), 0o644); err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}
	s, err := Open(folder, 10)
	if err != nil {
		t.Fatalf("Open on corrupt cache: %v", err)
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Put(ctx, "x", 1, 1, 1, []byte("xx")); err != nil {
		t.Fatalf("Put after recreate: %v", err)
	}
	if got, err := s.Get(ctx, "x", 1); err != nil || got == nil {
		t.Fatalf("Get after recreate: %v, %v", got, err)
	}
}

func TestEncodeThumbKeepsAspect(t *testing.T) {
	data, w, h, err := EncodeThumb(testImage(100, 400, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	if err != nil {
		t.Fatalf("EncodeThumb: %v", err)
	}
	if w != 32 || h != ThumbSize {
		t.Fatalf("thumb dims = %dx%d, want 32x%d", w, h, ThumbSize)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("thumb bytes not PNG: %v", err)
	}
}
