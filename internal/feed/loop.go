package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

// Session reconciles one user's snapshot against the store. Three
// sources feed it concurrently: realtime store events, a new-records
// poll and a pending-enrichment poll. All three funnel through the
// snapshot's idempotent upsert, so correctness holds under arbitrary
// interleaving and no source has to win.
type Session struct {
	store    *store.Store
	userID   int32
	interval time.Duration

	snapshot   *Snapshot
	visible    atomic.Bool
	lastSeenTs atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession bulk-loads the user's records and starts the reconciling
// goroutines. Callers stop the session with Close.
func NewSession(ctx context.Context, st *store.Store, userID int32, interval time.Duration) (*Session, error) {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	session := &Session{
		store:    st,
		userID:   userID,
		interval: interval,
		snapshot: NewSnapshot(),
	}
	session.visible.Store(true)

	if err := session.bulkLoad(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel

	subscription := st.Notifier().Subscribe(userID)
	session.wg.Add(3)
	go session.consumeEvents(runCtx, subscription)
	go session.pollNewRecords(runCtx)
	go session.pollPending(runCtx)

	return session, nil
}

// Snapshot returns the session's snapshot for matchers to read.
func (s *Session) Snapshot() *Snapshot {
	return s.snapshot
}

// SetVisible marks the consuming view as foreground or background. The
// new-records poll is suspended while in the background; realtime
// events and the pending poll keep running so the snapshot stays warm.
func (s *Session) SetVisible(visible bool) {
	s.visible.Store(visible)
}

// Close stops the reconciling goroutines and waits for them.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Session) bulkLoad(ctx context.Context) error {
	photos, err := s.store.ListPhotos(ctx, &store.FindPhoto{CreatorID: &s.userID})
	if err != nil {
		return errors.Wrap(err, "failed to load photos")
	}
	notes, err := s.store.ListNotes(ctx, &store.FindNote{CreatorID: &s.userID})
	if err != nil {
		return errors.Wrap(err, "failed to load notes")
	}
	for _, photo := range photos {
		s.snapshot.Upsert(FromPhoto(photo))
		s.observeTs(photo.CreatedTs)
	}
	for _, note := range notes {
		s.snapshot.Upsert(FromNote(note))
		s.observeTs(note.CreatedTs)
	}
	s.loadEmbeddings(ctx)
	return nil
}

// loadEmbeddings attaches stored vectors to the snapshot so semantic
// search can rank without a round trip per query. Failures are soft.
func (s *Session) loadEmbeddings(ctx context.Context) {
	embeddings, err := s.store.ListPhotoEmbeddings(ctx, &store.FindPhotoEmbedding{CreatorID: &s.userID})
	if err != nil {
		slog.Warn("failed to load photo embeddings", "user", s.userID, "error", err)
		return
	}
	byPhotoID := make(map[int32][]float32, len(embeddings))
	for _, embedding := range embeddings {
		byPhotoID[embedding.PhotoID] = embedding.Embedding
	}
	if len(byPhotoID) == 0 {
		return
	}
	photos, err := s.store.ListPhotos(ctx, &store.FindPhoto{CreatorID: &s.userID})
	if err != nil {
		return
	}
	for _, photo := range photos {
		if vector, ok := byPhotoID[photo.ID]; ok {
			record := FromPhoto(photo)
			record.Embedding = vector
			s.snapshot.Upsert(record)
		}
	}
}

func (s *Session) consumeEvents(ctx context.Context, subscription *store.Subscription) {
	defer s.wg.Done()
	defer s.store.Notifier().Unsubscribe(subscription.ID)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription.C:
			if !ok {
				return
			}
			s.applyEvent(event)
		}
	}
}

func (s *Session) applyEvent(event store.Event) {
	switch event.Type {
	case store.EventInsert, store.EventUpdate:
		if event.Photo != nil {
			record := FromPhoto(event.Photo)
			record.Embedding = event.Embedding
			s.snapshot.Upsert(record)
			s.observeTs(event.Photo.CreatedTs)
		}
		if event.Note != nil {
			s.snapshot.Upsert(FromNote(event.Note))
			s.observeTs(event.Note.CreatedTs)
		}
	case store.EventDelete:
		if event.Photo != nil {
			s.snapshot.Delete(event.Photo.UID)
		}
		if event.Note != nil {
			s.snapshot.Delete(event.Note.UID)
		}
	}
}

// pollNewRecords looks for records created at or after the newest
// timestamp seen so far. The bound is inclusive: timestamps have
// one-second granularity, and a record sharing its second with an
// already-seen one would slip through a strict bound if its realtime
// event was dropped. Re-fetching the boundary second is free because
// the snapshot upsert is idempotent. The poll repairs events dropped
// by the notifier and runs only while the view is foreground-visible.
func (s *Session) pollNewRecords(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.visible.Load() {
				continue
			}
			s.fetchNewRecords(ctx)
		}
	}
}

func (s *Session) fetchNewRecords(ctx context.Context) {
	since := s.lastSeenTs.Load()
	photos, err := s.store.ListPhotos(ctx, &store.FindPhoto{CreatorID: &s.userID, CreatedTsSince: &since})
	if err != nil {
		slog.Warn("new-records poll failed", "user", s.userID, "error", err)
		return
	}
	notes, err := s.store.ListNotes(ctx, &store.FindNote{CreatorID: &s.userID, CreatedTsSince: &since})
	if err != nil {
		slog.Warn("new-records poll failed", "user", s.userID, "error", err)
		return
	}
	for _, photo := range photos {
		s.snapshot.Upsert(FromPhoto(photo))
		s.observeTs(photo.CreatedTs)
	}
	for _, note := range notes {
		s.snapshot.Upsert(FromNote(note))
		s.observeTs(note.CreatedTs)
	}
}

// pollPending re-fetches every record still awaiting enrichment and
// merges whatever the store has by now. Only records currently in the
// snapshot are candidates, so a deleted record cannot resurrect.
func (s *Session) pollPending(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchPending(ctx)
		}
	}
}

func (s *Session) fetchPending(ctx context.Context) {
	pending := s.snapshot.Pending()
	if len(pending) == 0 {
		return
	}
	for _, record := range pending {
		uid := record.ID
		photo, err := s.store.GetPhoto(ctx, &store.FindPhoto{UID: &uid, CreatorID: &s.userID})
		if err != nil {
			slog.Warn("pending poll fetch failed", "photo", uid, "error", err)
			continue
		}
		if photo == nil {
			continue
		}
		fetched := FromPhoto(photo)
		if embeddings, err := s.store.ListPhotoEmbeddings(ctx, &store.FindPhotoEmbedding{PhotoID: &photo.ID}); err == nil && len(embeddings) > 0 {
			fetched.Embedding = embeddings[0].Embedding
		}
		// Upsert merges field-wise, so a still-empty fetch is a no-op
		// and cannot regress an entry another source just enriched.
		s.snapshot.Upsert(fetched)
	}
}

func (s *Session) observeTs(ts int64) {
	for {
		current := s.lastSeenTs.Load()
		if ts <= current || s.lastSeenTs.CompareAndSwap(current, ts) {
			return
		}
	}
}

// Manager owns one session per signed-in user.
type Manager struct {
	store    *store.Store
	interval time.Duration

	mu       sync.Mutex
	sessions map[int32]*Session
}

// NewManager creates a session manager polling at the given interval.
func NewManager(st *store.Store, interval time.Duration) *Manager {
	return &Manager{
		store:    st,
		interval: interval,
		sessions: make(map[int32]*Session),
	}
}

// Session returns the user's feed session, starting one on first use.
func (m *Manager) Session(ctx context.Context, userID int32) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[userID]; ok {
		return session, nil
	}
	session, err := NewSession(ctx, m.store, userID, m.interval)
	if err != nil {
		return nil, err
	}
	m.sessions[userID] = session
	return session, nil
}

// Drop closes and forgets the user's session, e.g. on sign-out.
func (m *Manager) Drop(userID int32) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		session.Close()
	}
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[int32]*Session)
	m.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}
