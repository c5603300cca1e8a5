// Package v1 implements the JSON HTTP API.
package v1

import (
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/internal/search"
	"github.com/keepsakehq/keepsake/plugin/blob"
	"github.com/keepsakehq/keepsake/plugin/vision"
	"github.com/keepsakehq/keepsake/server/middleware"
	"github.com/keepsakehq/keepsake/store"
)

// maxConcurrentThumbnails bounds thumbnail generation, which is the
// most memory-hungry thing the server does.
const maxConcurrentThumbnails = 2

// APIV1Service wires the HTTP handlers to their collaborators.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Blob    *blob.Store
	Vision  vision.Service
	Feeds   *feed.Manager

	semanticMatcher *search.SemanticMatcher
	semanticResults *semanticCache
	rateLimiter     *middleware.RateLimiter
	thumbnailSem    *semaphore.Weighted

	schedulerMu sync.Mutex
	schedulers  map[int32]*feed.SemanticScheduler
}

// NewAPIV1Service creates the API service. Vision and embedder may be
// nil when the corresponding profile settings are absent; the affected
// endpoints then degrade to text-only behavior.
func NewAPIV1Service(prof *profile.Profile, st *store.Store, blobStore *blob.Store, visionService vision.Service, embedder vision.EmbeddingService) *APIV1Service {
	return &APIV1Service{
		Profile:         prof,
		Store:           st,
		Blob:            blobStore,
		Vision:          visionService,
		Feeds:           feed.NewManager(st, prof.FeedPollInterval),
		semanticMatcher: search.NewSemanticMatcher(embedder),
		semanticResults: newSemanticCache(),
		rateLimiter:     middleware.NewRateLimiter(10, 20),
		thumbnailSem:    semaphore.NewWeighted(maxConcurrentThumbnails),
		schedulers:      make(map[int32]*feed.SemanticScheduler),
	}
}

// scheduler returns the user's debounce scheduler, creating it on
// first use. Debouncing is per user so one fast typist cannot starve
// another user's semantic pass.
func (s *APIV1Service) scheduler(userID int32) *feed.SemanticScheduler {
	s.schedulerMu.Lock()
	defer s.schedulerMu.Unlock()
	scheduler, ok := s.schedulers[userID]
	if !ok {
		scheduler = feed.NewSemanticScheduler(s.Profile.SearchDebounce)
		s.schedulers[userID] = scheduler
	}
	return scheduler
}

// RegisterRoutes mounts the API under /api/v1.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	rootGroup := e.Group("/api/v1", s.rateLimiter.Middleware())

	// Unauthenticated.
	rootGroup.POST("/auth/code", s.RequestLoginCode)
	rootGroup.POST("/auth/login", s.Login)

	authed := rootGroup.Group("", s.AuthMiddleware)
	authed.GET("/auth/me", s.Me)
	authed.POST("/auth/logout", s.Logout)

	authed.POST("/photos", s.UploadPhoto)
	authed.GET("/photos", s.ListPhotos)
	authed.GET("/photos/:uid", s.GetPhoto)
	authed.DELETE("/photos/:uid", s.DeletePhoto)
	authed.POST("/photos/:uid/reembed", s.ReembedPhoto)

	authed.POST("/notes", s.CreateNote)
	authed.GET("/notes", s.ListNotes)
	authed.GET("/notes/:uid", s.GetNote)
	authed.PATCH("/notes/:uid", s.UpdateNote)
	authed.DELETE("/notes/:uid", s.DeleteNote)
	authed.POST("/notes/:uid/pin", s.PinNote)

	authed.GET("/feed", s.GetFeed)
	authed.POST("/feed/visibility", s.SetFeedVisibility)
	authed.GET("/feed.rss", s.GetFeedRSS)

	authed.GET("/search", s.Search)
	authed.POST("/search/semantic", s.SemanticSearch)
}

// Close stops background feed sessions.
func (s *APIV1Service) Close() {
	s.Feeds.Close()
}
