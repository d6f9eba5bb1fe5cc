package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// pageResponse is a linked-partitioning collection page.
type pageResponse struct {
	Collection []json.RawMessage `json:"collection"`
	NextHref   string            `json:"next_href"`
}

// TrackJSON is a track object as returned by the API.
type TrackJSON struct {
	ID            flexID  `json:"id"`
	Title         string  `json:"title"`
	Duration      int     `json:"duration"` // milliseconds
	Genre         string  `json:"genre"`
	PermalinkURL  string  `json:"permalink_url"`
	ArtworkURL    string  `json:"artwork_url"`
	PlaybackCount int     `json:"playback_count"`
	Streamable    *bool   `json:"streamable"`
	StreamURL     string  `json:"stream_url"`
	Policy        string  `json:"policy"`
	Access        string  `json:"access"`
	User          UserRef `json:"user"`
}

// UserRef is the uploader embedded in a track.
type UserRef struct {
	ID       flexID `json:"id"`
	Username string `json:"username"`
}

// Item converts the API track into a listing item. A missing streamable flag counts as false.
func (t TrackJSON) Item() models.Item {
	return models.Item{
		ID:            string(t.ID),
		Title:         t.Title,
		Artist:        t.User.Username,
		DurationMS:    t.Duration,
		Genre:         t.Genre,
		PermalinkURL:  t.PermalinkURL,
		ArtworkURL:    t.ArtworkURL,
		PlaybackCount: t.PlaybackCount,
		Streamable:    t.Streamable != nil && *t.Streamable,
		StreamURL:     t.StreamURL,
		Policy:        t.Policy,
		Access:        t.Access,
	}
}

// flexID accepts ids encoded as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// decodePage decodes a collection page. Entries wrapped as {"track": {...}} are unwrapped; entries that cannot be
// decoded or have no id are skipped and counted.
func decodePage(body []byte) (models.Page, int, error) {
	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Page{}, 0, fmt.Errorf("%w: %w", shared.ErrDecodeFailed, err)
	}

	items := make([]models.Item, 0, len(resp.Collection))
	skipped := 0
	for _, raw := range resp.Collection {
		track, err := decodeTrack(raw)
		if err != nil || track.ID == "" {
			skipped++
			continue
		}
		items = append(items, track.Item())
	}

	return models.Page{Items: items, Next: models.Cursor(resp.NextHref)}, skipped, nil
}

func decodeTrack(raw json.RawMessage) (TrackJSON, error) {
	var wrapper struct {
		Track json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Track) > 0 && !bytes.Equal(wrapper.Track, []byte("null")) {
		raw = wrapper.Track
	}

	var track TrackJSON
	if err := json.Unmarshal(raw, &track); err != nil {
		return TrackJSON{}, err
	}
	return track, nil
}
