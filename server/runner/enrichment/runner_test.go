package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/plugin/vision"
	"github.com/keepsakehq/keepsake/store"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		InstanceURL:    "https://vault.example.com",
		EmbeddingModel: "text-embedding-3-small",
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	runner := NewRunner(&store.Store{}, testProfile(), &vision.MockService{})

	assert.Equal(t, 30*time.Second, runner.interval)
	assert.Equal(t, 8, runner.batchSize)
	assert.Equal(t, "text-embedding-3-small", runner.model)
}

func TestEnrichPhotoEmptyAnalysisKeepsPending(t *testing.T) {
	// An empty analysis means the vision call soft-failed. No store
	// write happens and the next cycle retries.
	mockVision := &vision.MockService{
		AnalyzeImageFunc: func(ctx context.Context, imageURL, photoUID string) (*vision.Analysis, error) {
			return &vision.Analysis{}, nil
		},
	}
	runner := NewRunner(&store.Store{}, testProfile(), mockVision)

	err := runner.EnrichPhoto(context.Background(), &store.Photo{ID: 1, UID: "p1", BlobPath: "assets/a.jpg"})
	assert.NoError(t, err)
}

func TestEnrichPhotoVisionError(t *testing.T) {
	mockVision := &vision.MockService{
		AnalyzeImageFunc: func(ctx context.Context, imageURL, photoUID string) (*vision.Analysis, error) {
			return nil, errors.New("vision service unreachable")
		},
	}
	runner := NewRunner(&store.Store{}, testProfile(), mockVision)

	err := runner.EnrichPhoto(context.Background(), &store.Photo{ID: 1, UID: "p1"})
	assert.Error(t, err)
}

func TestEnrichPhotoRequestsPublicURL(t *testing.T) {
	var gotURL string
	mockVision := &vision.MockService{
		AnalyzeImageFunc: func(ctx context.Context, imageURL, photoUID string) (*vision.Analysis, error) {
			gotURL = imageURL
			return &vision.Analysis{}, nil
		},
	}
	runner := NewRunner(&store.Store{}, testProfile(), mockVision)

	_ = runner.EnrichPhoto(context.Background(), &store.Photo{ID: 1, UID: "p1", BlobPath: "assets/a.jpg"})
	assert.Equal(t, "https://vault.example.com/o/assets/a.jpg", gotURL)
}
