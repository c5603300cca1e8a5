package vision

import "context"

// MockService is a test double for the vision service.
type MockService struct {
	AnalyzeImageFunc func(ctx context.Context, imageURL, photoUID string) (*Analysis, error)
	ReembedFunc      func(ctx context.Context, imageURL, photoUID string) ([]float32, error)
}

func (m *MockService) AnalyzeImage(ctx context.Context, imageURL, photoUID string) (*Analysis, error) {
	if m.AnalyzeImageFunc != nil {
		return m.AnalyzeImageFunc(ctx, imageURL, photoUID)
	}
	return &Analysis{}, nil
}

func (m *MockService) Reembed(ctx context.Context, imageURL, photoUID string) ([]float32, error) {
	if m.ReembedFunc != nil {
		return m.ReembedFunc(ctx, imageURL, photoUID)
	}
	return nil, nil
}

// MockEmbeddingService is a test double for the text embedding service.
type MockEmbeddingService struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	Dim            int
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return make([]float32, m.Dim), nil
}

func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, m.Dim)
	}
	return vectors, nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.Dim
}

var (
	_ Service          = (*MockService)(nil)
	_ EmbeddingService = (*MockEmbeddingService)(nil)
	_ Service          = (*Client)(nil)
)
