package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meddeutsch/contentflow/internal/models"
	"github.com/meddeutsch/contentflow/internal/store"
)

// PromoterConfig tunes bulk artifact promotion.
type PromoterConfig struct {
	// Concurrency bounds parallel uploads.
	Concurrency int
	// Suffix filters which staged keys are promoted (e.g. ".mp3").
	Suffix string
	// Write metadata applied to every promoted object.
	ContentType  string
	CacheControl string
}

// ArtifactPromoter copies staged artifacts into the durable store. Promotion
// is idempotent: an object already present at the destination is skipped, so
// an interrupted upload resumes where it stopped.
type ArtifactPromoter struct {
	src    store.ArtifactStore
	dst    store.ArtifactStore
	config PromoterConfig
}

func NewArtifactPromoter(src, dst store.ArtifactStore, config PromoterConfig) *ArtifactPromoter {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &ArtifactPromoter{src: src, dst: dst, config: config}
}

// Promote copies every staged key under prefix to the destination store,
// recording per-key outcomes in stats. Individual failures are collected; only
// a failed source listing is returned as a hard error.
func (p *ArtifactPromoter) Promote(ctx context.Context, prefix string, stats *models.RunStats) ([]error, error) {
	keys, err := p.src.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged artifacts under %s: %w", prefix, err)
	}
	if p.config.Suffix != "" {
		filtered := keys[:0]
		for _, key := range keys {
			if strings.HasSuffix(key, p.config.Suffix) {
				filtered = append(filtered, key)
			}
		}
		keys = filtered
	}
	slog.Info("Promoting staged artifacts.", "prefix", prefix, "count", len(keys))

	var mu sync.Mutex
	var failures []error

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.Concurrency)
	for _, key := range keys {
		eg.Go(func() error {
			if err := p.promoteOne(gctx, key, stats); err != nil {
				stats.AddFailed()
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return failures, err
	}
	return failures, nil
}

func (p *ArtifactPromoter) promoteOne(ctx context.Context, key string, stats *models.RunStats) error {
	exists, err := p.dst.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: existence check: %w", key, err)
	}
	if exists {
		stats.AddSkipped()
		return nil
	}

	data, err := p.src.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: read staged artifact: %w", key, err)
	}
	opts := store.WriteOptions{ContentType: p.config.ContentType, CacheControl: p.config.CacheControl}
	if err := p.dst.Write(ctx, key, data, opts); err != nil {
		return fmt.Errorf("%s: upload: %w", key, err)
	}
	stats.AddGenerated()
	return nil
}
