package v1

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/keepsakehq/keepsake/store"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

type noteResponse struct {
	UID       string `json:"uid"`
	CreatedTs int64  `json:"createdTs"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
	Pinned    bool   `json:"pinned"`
}

type upsertNoteRequest struct {
	Content string `json:"content"`
}

type pinNoteRequest struct {
	Pinned bool `json:"pinned"`
}

// CreateNote adds a note to the feed.
func (s *APIV1Service) CreateNote(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	request := &upsertNoteRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	note, err := s.Store.CreateNote(ctx, &store.Note{
		UID:       shortuuid.New(),
		CreatorID: user.ID,
		Content:   request.Content,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save note").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertNote(note))
}

// ListNotes returns the user's notes, pinned first, newest first.
func (s *APIV1Service) ListNotes(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	find := &store.FindNote{CreatorID: &user.ID}
	if pinnedStr := c.QueryParam("pinned"); pinnedStr != "" {
		pinned, err := strconv.ParseBool(pinnedStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid pinned value")
		}
		find.Pinned = &pinned
	}

	notes, err := s.Store.ListNotes(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list notes").SetInternal(err)
	}
	responses := make([]*noteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, convertNote(note))
	}
	return c.JSON(http.StatusOK, responses)
}

// GetNote returns a single note by uid.
func (s *APIV1Service) GetNote(c echo.Context) error {
	note, httpErr := s.findOwnNote(c)
	if httpErr != nil {
		return httpErr
	}
	return c.JSON(http.StatusOK, convertNote(note))
}

// UpdateNote replaces a note's content.
func (s *APIV1Service) UpdateNote(c echo.Context) error {
	ctx := c.Request().Context()
	note, httpErr := s.findOwnNote(c)
	if httpErr != nil {
		return httpErr
	}

	request := &upsertNoteRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	updated, err := s.Store.UpdateNote(ctx, &store.UpdateNote{
		ID:      note.ID,
		Content: &request.Content,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update note").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertNote(updated))
}

// DeleteNote removes a note from the feed.
func (s *APIV1Service) DeleteNote(c echo.Context) error {
	ctx := c.Request().Context()
	note, httpErr := s.findOwnNote(c)
	if httpErr != nil {
		return httpErr
	}
	if err := s.Store.DeleteNote(ctx, &store.DeleteNote{ID: note.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete note").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PinNote toggles the presentation pin. Pins never affect search.
func (s *APIV1Service) PinNote(c echo.Context) error {
	ctx := c.Request().Context()
	note, httpErr := s.findOwnNote(c)
	if httpErr != nil {
		return httpErr
	}

	request := &pinNoteRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	updated, err := s.Store.UpdateNote(ctx, &store.UpdateNote{
		ID:     note.ID,
		Pinned: &request.Pinned,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to pin note").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertNote(updated))
}

func (s *APIV1Service) findOwnNote(c echo.Context) (*store.Note, *echo.HTTPError) {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	uid := c.Param("uid")
	note, err := s.Store.GetNote(ctx, &store.FindNote{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to find note").SetInternal(err)
	}
	if note == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	return note, nil
}

func convertNote(note *store.Note) *noteResponse {
	return &noteResponse{
		UID:       note.UID,
		CreatedTs: note.CreatedTs,
		Content:   note.Content,
		HTML:      renderMarkdown(note.Content),
		Pinned:    note.Pinned,
	}
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		slog.Warn("failed to render note markdown", "error", err)
		return ""
	}
	return buf.String()
}
