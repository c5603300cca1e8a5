package v1

import (
	"context"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/internal/search"
	"github.com/keepsakehq/keepsake/store"
)

type recordResponse struct {
	UID          string   `json:"uid"`
	Kind         string   `json:"kind"`
	CreatedTs    int64    `json:"createdTs"`
	URL          string   `json:"url,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Caption      string   `json:"caption,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Colors       []string `json:"colors,omitempty"`
	ContentType  string   `json:"contentType,omitempty"`
	DomainTags   []string `json:"domainTags,omitempty"`
	VibeTags     []string `json:"vibeTags,omitempty"`
	Content      string   `json:"content,omitempty"`
	Pinned       bool     `json:"pinned,omitempty"`
	Pending      bool     `json:"pending"`
}

type searchResponse struct {
	Records []*recordResponse `json:"records"`
	// SemanticPending reports that a semantic pass has been scheduled
	// but its results are not merged into this response yet.
	SemanticPending bool `json:"semanticPending"`
}

type semanticSearchRequest struct {
	Query string `json:"query"`
}

type feedVisibilityRequest struct {
	Visible bool `json:"visible"`
}

// semanticCacheTTL bounds how long a settled semantic pass keeps
// serving merges before a repeated query schedules a fresh pass.
const semanticCacheTTL = 10 * time.Second

// semanticCache holds the latest debounced semantic result per user.
type semanticCache struct {
	mu     sync.Mutex
	byUser map[int32]*cachedSemanticResult
}

type cachedSemanticResult struct {
	query     string
	results   []search.ScoredRecord
	expiresAt time.Time
}

func newSemanticCache() *semanticCache {
	return &semanticCache{byUser: make(map[int32]*cachedSemanticResult)}
}

func (c *semanticCache) get(userID int32, query string) ([]search.ScoredRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.byUser[userID]
	if !ok || cached.query != query || time.Now().After(cached.expiresAt) {
		return nil, false
	}
	return cached.results, true
}

// put stores a pass's results unless the pass was superseded. The
// currency check runs under the cache lock so a stale pass that lost
// the race cannot land after the winning pass's write.
func (c *semanticCache) put(userID int32, query string, results []search.ScoredRecord, current func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current != nil && !current() {
		return
	}
	c.byUser[userID] = &cachedSemanticResult{
		query:     query,
		results:   results,
		expiresAt: time.Now().Add(semanticCacheTTL),
	}
}

// Search runs the full query pipeline against the user's feed
// snapshot. Text matching is synchronous; the semantic pass is
// debounced, so a fast-typing client sees text results immediately and
// semantic-augmented results once the query settles and it re-queries.
func (s *APIV1Service) Search(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	session, err := s.Feeds.Session(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feed").SetInternal(err)
	}
	view := session.Snapshot().View()

	raw := c.QueryParam("q")
	if raw == "" {
		return c.JSON(http.StatusOK, &searchResponse{Records: convertRecords(view)})
	}

	query := search.ParseQuery(raw)
	in := search.MergeInput{Query: query}
	semanticPending := false

	switch query.Mode {
	case search.ModeNoteScoped:
		in.Notes = search.MatchNotes(view, query.Term)
	case search.ModeExactPhrase:
		in.Substring = search.MatchExactPhrase(view, query.Term)
	default:
		in.Fuzzy = search.MatchFuzzy(view, query.Term)
		in.Substring = search.MatchSubstring(view, query.Term)
		if results, ok := s.semanticResults.get(user.ID, query.Term); ok {
			in.Semantic = rebindToView(results, view)
		} else if s.semanticMatcher.Enabled() && query.Term != "" {
			semanticPending = true
			s.scheduleSemantic(user.ID, query.Term, view)
		}
	}

	return c.JSON(http.StatusOK, &searchResponse{
		Records:         convertRecords(search.Merge(in)),
		SemanticPending: semanticPending,
	})
}

// scheduleSemantic queues a debounced semantic pass. A newer query
// supersedes it; a late result is discarded instead of cached.
func (s *APIV1Service) scheduleSemantic(userID int32, term string, view []*feed.Record) {
	s.scheduler(userID).Schedule(func(stillCurrent func() bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		results := s.semanticMatcher.Match(ctx, view, term)
		s.semanticResults.put(userID, term, results, stillCurrent)
	})
}

// rebindToView remaps cached semantic scores onto the current snapshot
// view. Records deleted since the pass ran are dropped; surviving ones
// pick up whatever enrichment arrived in the meantime.
func rebindToView(results []search.ScoredRecord, view []*feed.Record) []search.ScoredRecord {
	byID := make(map[string]*feed.Record, len(view))
	for _, record := range view {
		byID[record.ID] = record
	}
	rebound := make([]search.ScoredRecord, 0, len(results))
	for _, scored := range results {
		if record, ok := byID[scored.Record.ID]; ok {
			rebound = append(rebound, search.ScoredRecord{Record: record, Score: scored.Score})
		}
	}
	return rebound
}

// SemanticSearch runs an immediate, non-debounced semantic query with
// the threshold and cap applied server-side. Ranking happens in the
// store so postgres deployments order by pgvector distance in the
// database instead of scanning the snapshot.
func (s *APIV1Service) SemanticSearch(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	request := &semanticSearchRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	// A nil vector means the embedder is disabled or failed; both are
	// soft and yield an empty result list, never an error.
	vector := s.semanticMatcher.EmbedQuery(ctx, request.Query)
	if vector == nil {
		return c.JSON(http.StatusOK, &searchResponse{Records: convertRecords(nil)})
	}

	results, err := s.Store.VectorSearch(ctx, &store.VectorSearchOptions{
		UserID: user.ID,
		Vector: vector,
		Limit:  search.SemanticLimit,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "semantic search failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, &searchResponse{Records: convertRecords(recordsAboveThreshold(results))})
}

// recordsAboveThreshold converts ranked store results to feed records,
// dropping matches below the semantic threshold.
func recordsAboveThreshold(results []*store.PhotoWithScore) []*feed.Record {
	records := make([]*feed.Record, 0, len(results))
	for _, result := range results {
		if float64(result.Score) < search.SemanticThreshold {
			continue
		}
		records = append(records, feed.FromPhoto(result.Photo))
	}
	return records
}

// GetFeed returns the user's full feed, pinned notes first, newest
// first.
func (s *APIV1Service) GetFeed(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	session, err := s.Feeds.Session(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, &searchResponse{Records: convertRecords(session.Snapshot().View())})
}

// SetFeedVisibility marks the client's view foreground or background.
// The new-records poll is suspended while backgrounded.
func (s *APIV1Service) SetFeedVisibility(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	request := &feedVisibilityRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	session, err := s.Feeds.Session(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feed").SetInternal(err)
	}
	session.SetVisible(request.Visible)
	return c.NoContent(http.StatusNoContent)
}

func convertRecords(records []*feed.Record) []*recordResponse {
	responses := make([]*recordResponse, 0, len(records))
	for _, record := range records {
		response := &recordResponse{
			UID:         record.ID,
			Kind:        string(record.Kind),
			CreatedTs:   record.CreatedAt.Unix(),
			Caption:     record.Caption,
			Tags:        record.Tags,
			Colors:      record.Colors,
			ContentType: record.ContentType,
			DomainTags:  record.DomainTags,
			VibeTags:    record.VibeTags,
			Content:     record.Content,
			Pinned:      record.Pinned,
			Pending:     record.Pending(),
		}
		if record.BlobPath != "" {
			response.URL = path.Join("/o", record.BlobPath)
		}
		if record.ThumbnailPath != "" {
			response.ThumbnailURL = path.Join("/o", record.ThumbnailPath)
		}
		responses = append(responses, response)
	}
	return responses
}
