// Package enrichment runs the background loop that captions, tags and
// embeds freshly uploaded photos.
package enrichment

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/plugin/vision"
	"github.com/keepsakehq/keepsake/store"
)

// Runner periodically finds photos still awaiting enrichment and sends
// them to the vision service. Failures are soft: the photo stays
// pending and the next cycle retries.
type Runner struct {
	store   *store.Store
	profile *profile.Profile
	vision  vision.Service

	interval    time.Duration
	batchSize   int
	concurrency int
	model       string
}

// NewRunner creates an enrichment runner.
func NewRunner(st *store.Store, prof *profile.Profile, visionService vision.Service) *Runner {
	interval := prof.EnrichInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	batchSize := prof.EnrichBatchSize
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Runner{
		store:       st,
		profile:     prof,
		vision:      visionService,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: 4,
		model:       prof.EmbeddingModel,
	}
}

// Run starts the background task. It processes once on startup and
// then on every tick until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.processPendingPhotos(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processPendingPhotos(ctx)
		case <-ctx.Done():
			slog.Info("enrichment runner stopped")
			return
		}
	}
}

// RunOnce processes pending photos once, for manual triggering.
func (r *Runner) RunOnce(ctx context.Context) {
	r.processPendingPhotos(ctx)
}

func (r *Runner) processPendingPhotos(ctx context.Context) {
	pending := true
	limit := r.batchSize
	photos, err := r.store.ListPhotos(ctx, &store.FindPhoto{
		Pending: &pending,
		Limit:   &limit,
	})
	if err != nil {
		slog.Error("failed to find pending photos", "error", err)
		return
	}
	if len(photos) == 0 {
		return
	}

	slog.Info("enriching photos", "count", len(photos))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for _, photo := range photos {
		photo := photo
		group.Go(func() error {
			// Per-photo failures never abort the batch.
			if err := r.EnrichPhoto(groupCtx, photo); err != nil {
				slog.Warn("failed to enrich photo", "photo", photo.UID, "error", err)
			}
			return nil
		})
	}
	_ = group.Wait()
}

// EnrichPhoto analyzes one photo and persists the result. An analysis
// with no caption and no tags leaves the photo pending.
func (r *Runner) EnrichPhoto(ctx context.Context, photo *store.Photo) error {
	analysis, err := r.vision.AnalyzeImage(ctx, r.photoURL(photo), photo.UID)
	if err != nil {
		return err
	}
	if analysis.Caption == "" && len(analysis.Tags) == 0 {
		return nil
	}

	update := &store.UpdatePhoto{ID: photo.ID}
	if analysis.Caption != "" {
		update.Caption = &analysis.Caption
	}
	if len(analysis.Tags) > 0 {
		update.Tags = &analysis.Tags
	}
	if len(analysis.Colors) > 0 {
		update.Colors = &analysis.Colors
	}
	if analysis.ContentType != "" {
		update.ContentType = &analysis.ContentType
	}
	if len(analysis.DomainTags) > 0 {
		update.DomainTags = &analysis.DomainTags
	}
	if len(analysis.VibeTags) > 0 {
		update.VibeTags = &analysis.VibeTags
	}
	update.HasPeople = &analysis.HasPeople
	update.PeopleCount = &analysis.PeopleCount
	update.IsScreenshot = &analysis.IsScreenshot

	if _, err := r.store.UpdatePhoto(ctx, update); err != nil {
		return err
	}

	if len(analysis.Embedding) > 0 {
		if _, err := r.store.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
			PhotoID:   photo.ID,
			Embedding: analysis.Embedding,
			Model:     r.model,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) photoURL(photo *store.Photo) string {
	return r.profile.InstanceURL + "/o/" + photo.BlobPath
}
