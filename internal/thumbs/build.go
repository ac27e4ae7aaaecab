/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package thumbs

import (
	"context"
	"fmt"
	"os"
	"sync"

	"log/slog"

	"golang.org/x/sync/errgroup"

	applog "croppy/internal/log"
	"croppy/internal/media"
)

// DefaultWorkers caps concurrent decodes during a batch build. Decoding is
// CPU-bound, so a small fixed limit keeps the UI responsive.
const DefaultWorkers = 4

// ForImage returns the thumbnail PNG for one image, generating and caching it
// on a miss. The file's current mtime keys staleness.
func (s *Store) ForImage(ctx context.Context, path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	mtime := fi.ModTime().Unix()
	if b, err := s.Get(ctx, path, mtime); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	img, ok := media.EmbeddedThumb(path)
	if !ok {
		img, err = media.Decode(path)
		if err != nil {
			return nil, err
		}
	}
	data, w, h, err := EncodeThumb(img)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, path, mtime, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Build fills the cache for the given image paths, decoding in parallel. Files
// that fail to decode are skipped and logged; they do not abort the batch. It
// returns the number of thumbnails generated (cache hits excluded).
func (s *Store) Build(ctx context.Context, paths []string, workers int) (int, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	l := applog.WithOperation(applog.WithComponent("thumbs"), "cache_build")

	var mu sync.Mutex
	built := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		p := p // per-iteration copy: required for go <1.22 loop semantics
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fi, err := os.Stat(p)
			if err != nil {
				l.Warn("stat failed, skipping", slog.String("path", p), slog.Any("err", err))
				return nil
			}
			mtime := fi.ModTime().Unix()
			if b, err := s.Get(ctx, p, mtime); err != nil {
				return err
			} else if b != nil {
				return nil // fresh
			}
			img, ok := media.EmbeddedThumb(p)
			if !ok {
				img, err = media.Decode(p)
				if err != nil {
					l.Warn("decode failed, skipping", slog.String("path", p), slog.Any("err", err))
					return nil
				}
			}
			data, w, h, err := EncodeThumb(img)
			if err != nil {
				l.Warn("encode failed, skipping", slog.String("path", p), slog.Any("err", err))
				return nil
			}
			if err := s.Put(ctx, p, mtime, w, h, data); err != nil {
				return err
			}
			mu.Lock()
			built++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		l.Info("cache build done", slog.Int("built", built), slog.Int("total", len(paths)))
	}
	return built, err
}
