package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/store"
)

const maxRSSItems = 50

// GetFeedRSS renders the user's feed as RSS, newest first.
func (s *APIV1Service) GetFeedRSS(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(userContextKey).(*store.User)

	session, err := s.Feeds.Session(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feed").SetInternal(err)
	}

	rssFeed := &feeds.Feed{
		Title:       "Keepsake",
		Link:        &feeds.Link{Href: s.Profile.InstanceURL},
		Description: "Photos and notes",
		Created:     time.Now(),
	}
	for i, record := range session.Snapshot().View() {
		if i >= maxRSSItems {
			break
		}
		rssFeed.Items = append(rssFeed.Items, convertRSSItem(s.Profile.InstanceURL, record))
	}

	rss, err := rssFeed.ToRss()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render feed").SetInternal(err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml", []byte(rss))
}

func convertRSSItem(instanceURL string, record *feed.Record) *feeds.Item {
	item := &feeds.Item{
		Id:      record.ID,
		Created: record.CreatedAt,
	}
	switch record.Kind {
	case feed.KindPhoto:
		item.Title = record.Filename
		if record.Caption != "" {
			item.Title = record.Caption
		}
		item.Link = &feeds.Link{Href: instanceURL + "/o/" + record.BlobPath}
		item.Description = record.Caption
	case feed.KindNote:
		item.Title = firstLine(record.Content)
		item.Link = &feeds.Link{Href: instanceURL}
		item.Description = renderMarkdown(record.Content)
	}
	return item
}

func firstLine(content string) string {
	for i, r := range content {
		if r == '\n' {
			return content[:i]
		}
	}
	return content
}
