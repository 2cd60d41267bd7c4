package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NowPlaying is the flattened track metadata exposed to the frontend.
type NowPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs *int64 `json:"progress_ms,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
	TrackName  string `json:"track_name,omitempty"`
	Artists    string `json:"artists,omitempty"`
	AlbumName  string `json:"album_name,omitempty"`
	AlbumImage string `json:"album_image,omitempty"`
}

// currentlyPlaying mirrors the fields we use from the Spotify response.
type currentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs *int64 `json:"progress_ms"`
	Item       *struct {
		Name       string `json:"name"`
		DurationMs *int64 `json:"duration_ms"`
		Artists    []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album *struct {
			Name   string `json:"name"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
	} `json:"item"`
}

// NowPlaying fetches the currently playing track for the linked account.
// A 204 from Spotify means nothing is playing and is not an error.
func (s *Session) NowPlaying(ctx context.Context) (*NowPlaying, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch currently-playing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &NowPlaying{IsPlaying: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("spotify now-playing error")
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var cp currentlyPlaying
	if err := json.NewDecoder(resp.Body).Decode(&cp); err != nil {
		return nil, fmt.Errorf("decode currently-playing: %w", err)
	}

	np := &NowPlaying{
		IsPlaying:  cp.IsPlaying,
		ProgressMs: cp.ProgressMs,
	}
	if item := cp.Item; item != nil {
		np.TrackName = item.Name
		np.DurationMs = item.DurationMs

		names := make([]string, 0, len(item.Artists))
		for _, a := range item.Artists {
			names = append(names, a.Name)
		}
		np.Artists = strings.Join(names, ", ")

		if item.Album != nil {
			np.AlbumName = item.Album.Name
			if len(item.Album.Images) > 0 {
				np.AlbumImage = item.Album.Images[0].URL
			}
		}
	}

	return np, nil
}
