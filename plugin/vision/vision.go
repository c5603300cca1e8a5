// Package vision is the client for the external vision-language service that
// captions, tags and embeds photos.
package vision

import "context"

// Analysis is the enrichment payload returned for one image. Every field is
// derived by the model; an all-empty analysis leaves the photo pending.
type Analysis struct {
	Caption      string    `json:"caption"`
	Tags         []string  `json:"tags"`
	Colors       []string  `json:"colors"`
	ContentType  string    `json:"content_type"`
	DomainTags   []string  `json:"domain_tags"`
	HasPeople    bool      `json:"has_people"`
	PeopleCount  int32     `json:"people_count"`
	IsScreenshot bool      `json:"is_screenshot"`
	VibeTags     []string  `json:"vibe_tags"`
	Embedding    []float32 `json:"embedding"`
}

// Service is the captioning service boundary.
type Service interface {
	// AnalyzeImage captions, tags and embeds the image behind imageURL.
	AnalyzeImage(ctx context.Context, imageURL, photoUID string) (*Analysis, error)

	// Reembed regenerates just the embedding for an already analyzed image.
	Reembed(ctx context.Context, imageURL, photoUID string) ([]float32, error)
}

// EmbeddingService is the text embedding sub-capability, used to vectorize
// search queries against the same space the photos are embedded in.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}
