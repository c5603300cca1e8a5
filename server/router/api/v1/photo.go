package v1

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/keepsakehq/keepsake/plugin/filter"
	"github.com/keepsakehq/keepsake/store"
)

// maxUploadBytes caps a single photo upload at 32 MiB.
const maxUploadBytes = 32 << 20

const thumbnailMaxSize = 512

type photoResponse struct {
	UID          string   `json:"uid"`
	CreatedTs    int64    `json:"createdTs"`
	Filename     string   `json:"filename"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	MimeType     string   `json:"mimeType"`
	Size         int64    `json:"size"`
	Caption      string   `json:"caption"`
	Tags         []string `json:"tags"`
	Colors       []string `json:"colors"`
	ContentType  string   `json:"contentType"`
	DomainTags   []string `json:"domainTags"`
	VibeTags     []string `json:"vibeTags"`
	HasPeople    bool     `json:"hasPeople"`
	PeopleCount  int32    `json:"peopleCount"`
	IsScreenshot bool     `json:"isScreenshot"`
	Pending      bool     `json:"pending"`
}

// UploadPhoto stores the posted image, inserts its row, and kicks off
// enrichment in the background. The response returns immediately with
// the pending row; enrichment failure never undoes the upload.
func (s *APIV1Service) UploadPhoto(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a file field is required").SetInternal(err)
	}
	if fileHeader.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file").SetInternal(err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file").SetInternal(err)
	}

	blobPath, err := s.Blob.Save(fileHeader.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store photo").SetInternal(err)
	}

	photo, err := s.Store.CreatePhoto(ctx, &store.Photo{
		UID:       shortuuid.New(),
		CreatorID: user.ID,
		Filename:  fileHeader.Filename,
		BlobPath:  blobPath,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Size:      fileHeader.Size,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save photo").SetInternal(err)
	}

	go s.generateThumbnail(photo, data)
	if s.Vision != nil {
		go s.enrichUploadedPhoto(photo)
	}

	return c.JSON(http.StatusOK, s.convertPhoto(photo))
}

// generateThumbnail renders a bounded-size thumbnail next to the
// original. Failures only cost the thumbnail; clients fall back to the
// full image.
func (s *APIV1Service) generateThumbnail(photo *store.Photo, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.thumbnailSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.thumbnailSem.Release(1)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.Warn("failed to decode image for thumbnail", "photo", photo.UID, "error", err)
		return
	}
	thumbnail := imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		slog.Warn("failed to encode thumbnail", "photo", photo.UID, "error", err)
		return
	}
	thumbnailPath := "thumbnails/" + photo.UID + ".jpg"
	if err := s.Blob.SaveAt(thumbnailPath, buf.Bytes()); err != nil {
		slog.Warn("failed to store thumbnail", "photo", photo.UID, "error", err)
		return
	}
	if _, err := s.Store.UpdatePhoto(ctx, &store.UpdatePhoto{
		ID:            photo.ID,
		ThumbnailPath: &thumbnailPath,
	}); err != nil {
		slog.Warn("failed to record thumbnail path", "photo", photo.UID, "error", err)
	}
}

// enrichUploadedPhoto runs one immediate enrichment attempt so most
// uploads are captioned within seconds. The background runner retries
// anything that fails here.
func (s *APIV1Service) enrichUploadedPhoto(photo *store.Photo) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	analysis, err := s.Vision.AnalyzeImage(ctx, s.Profile.InstanceURL+"/o/"+photo.BlobPath, photo.UID)
	if err != nil {
		slog.Warn("upload enrichment failed", "photo", photo.UID, "error", err)
		return
	}
	if analysis.Caption == "" && len(analysis.Tags) == 0 {
		return
	}

	update := &store.UpdatePhoto{
		ID:           photo.ID,
		Caption:      &analysis.Caption,
		Tags:         &analysis.Tags,
		HasPeople:    &analysis.HasPeople,
		PeopleCount:  &analysis.PeopleCount,
		IsScreenshot: &analysis.IsScreenshot,
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
	if _, err := s.Store.UpdatePhoto(ctx, update); err != nil {
		slog.Warn("failed to persist enrichment", "photo", photo.UID, "error", err)
		return
	}
	if len(analysis.Embedding) > 0 {
		if _, err := s.Store.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
			PhotoID:   photo.ID,
			Embedding: analysis.Embedding,
			Model:     s.Profile.EmbeddingModel,
		}); err != nil {
			slog.Warn("failed to persist embedding", "photo", photo.UID, "error", err)
		}
	}
}

// ListPhotos returns the user's photos, newest first. An optional
// `filter` query parameter narrows the list with a CEL expression.
func (s *APIV1Service) ListPhotos(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	find := &store.FindPhoto{CreatorID: &user.ID}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		find.Limit = &limit
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		find.Offset = &offset
	}

	var photoFilter *filter.PhotoFilter
	if expression := c.QueryParam("filter"); expression != "" {
		compiled, err := filter.CompilePhotoFilter(expression)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid filter").SetInternal(err)
		}
		photoFilter = compiled
	}

	photos, err := s.Store.ListPhotos(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list photos").SetInternal(err)
	}

	responses := make([]*photoResponse, 0, len(photos))
	for _, photo := range photos {
		if photoFilter != nil {
			matched, err := photoFilter.Match(&filter.Attributes{
				Caption:      photo.Caption,
				Tags:         photo.Tags,
				Colors:       photo.Colors,
				ContentType:  photo.ContentType,
				DomainTags:   photo.DomainTags,
				VibeTags:     photo.VibeTags,
				HasPeople:    photo.HasPeople,
				PeopleCount:  photo.PeopleCount,
				IsScreenshot: photo.IsScreenshot,
			})
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "filter evaluation failed").SetInternal(err)
			}
			if !matched {
				continue
			}
		}
		responses = append(responses, s.convertPhoto(photo))
	}
	return c.JSON(http.StatusOK, responses)
}

// GetPhoto returns a single photo by uid.
func (s *APIV1Service) GetPhoto(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	uid := c.Param("uid")
	photo, err := s.Store.GetPhoto(ctx, &store.FindPhoto{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find photo").SetInternal(err)
	}
	if photo == nil {
		return echo.NewHTTPError(http.StatusNotFound, "photo not found")
	}
	return c.JSON(http.StatusOK, s.convertPhoto(photo))
}

// DeletePhoto removes the row, its embedding and its blobs.
func (s *APIV1Service) DeletePhoto(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	uid := c.Param("uid")
	photo, err := s.Store.GetPhoto(ctx, &store.FindPhoto{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find photo").SetInternal(err)
	}
	if photo == nil {
		return echo.NewHTTPError(http.StatusNotFound, "photo not found")
	}
	if err := s.Store.DeletePhoto(ctx, &store.DeletePhoto{ID: photo.ID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete photo").SetInternal(err)
	}
	if err := s.Blob.Delete(photo.BlobPath); err != nil {
		slog.Warn("failed to delete photo blob", "photo", photo.UID, "error", err)
	}
	if photo.ThumbnailPath != "" {
		if err := s.Blob.Delete(photo.ThumbnailPath); err != nil {
			slog.Warn("failed to delete thumbnail blob", "photo", photo.UID, "error", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// ReembedPhoto regenerates the photo's embedding vector.
func (s *APIV1Service) ReembedPhoto(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	if s.Vision == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "vision service is not configured")
	}

	uid := c.Param("uid")
	photo, err := s.Store.GetPhoto(ctx, &store.FindPhoto{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find photo").SetInternal(err)
	}
	if photo == nil {
		return echo.NewHTTPError(http.StatusNotFound, "photo not found")
	}

	embedding, err := s.Vision.Reembed(ctx, s.Profile.InstanceURL+"/o/"+photo.BlobPath, photo.UID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "vision service failed").SetInternal(err)
	}
	if len(embedding) == 0 {
		return echo.NewHTTPError(http.StatusBadGateway, "vision service returned no embedding")
	}
	if _, err := s.Store.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
		PhotoID:   photo.ID,
		Embedding: embedding,
		Model:     s.Profile.EmbeddingModel,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save embedding").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) convertPhoto(photo *store.Photo) *photoResponse {
	response := &photoResponse{
		UID:          photo.UID,
		CreatedTs:    photo.CreatedTs,
		Filename:     photo.Filename,
		URL:          path.Join("/o", photo.BlobPath),
		MimeType:     photo.MimeType,
		Size:         photo.Size,
		Caption:      photo.Caption,
		Tags:         photo.Tags,
		Colors:       photo.Colors,
		ContentType:  photo.ContentType,
		DomainTags:   photo.DomainTags,
		VibeTags:     photo.VibeTags,
		HasPeople:    photo.HasPeople,
		PeopleCount:  photo.PeopleCount,
		IsScreenshot: photo.IsScreenshot,
		Pending:      photo.Pending(),
	}
	if photo.ThumbnailPath != "" {
		response.ThumbnailURL = path.Join("/o", photo.ThumbnailPath)
	}
	return response
}
