package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := zerolog.Nop()
	s := NewSession(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/auth/callback",
	}, &logger)

	s.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:  ts.URL + "/authorize",
		TokenURL: ts.URL + "/api/token",
	}
	s.apiBase = ts.URL

	return s, ts
}

func tokenResponse(w http.ResponseWriter, accessToken string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-1"}`))
}

func TestAuthURLCarriesScopeAndDialog(t *testing.T) {
	s, _ := newTestSession(t, http.NotFoundHandler())

	raw := s.AuthURL()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid auth url %q: %v", raw, err)
	}

	q := u.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("missing client_id in %q", raw)
	}
	if q.Get("show_dialog") != "true" {
		t.Errorf("missing show_dialog in %q", raw)
	}
	if !strings.Contains(q.Get("scope"), "user-read-currently-playing") {
		t.Errorf("missing scope in %q", raw)
	}
	if q.Get("redirect_uri") == "" {
		t.Errorf("missing redirect_uri in %q", raw)
	}
}

func TestNowPlayingBeforeLinking(t *testing.T) {
	s, _ := newTestSession(t, http.NotFoundHandler())

	_, err := s.NowPlaying(context.Background())
	if !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestExchangeStoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad token request: %v", err)
		}
		if got := r.Form.Get("code"); got != "auth-code" && got != "" {
			t.Errorf("unexpected code %q", got)
		}
		tokenResponse(w, "access-1")
	})
	s, _ := newTestSession(t, mux)

	if err := s.Exchange(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	info := s.Debug()
	if !info.AccessTokenSet || !info.RefreshTokenSet {
		t.Fatalf("expected tokens stored, got %+v", info)
	}
	if info.ExpiresAt <= info.Now {
		t.Fatalf("expected future expiry, got %+v", info)
	}
}

func TestNowPlayingNothingPlaying(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenResponse(w, "access-1")
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s, _ := newTestSession(t, mux)

	if err := s.Exchange(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	np, err := s.NowPlaying(context.Background())
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}
	if np.IsPlaying {
		t.Fatalf("expected is_playing false, got %+v", np)
	}
}

func TestNowPlayingFlattensTrack(t *testing.T) {
	const body = `{
		"is_playing": true,
		"progress_ms": 12345,
		"item": {
			"name": "Midnight City",
			"duration_ms": 243000,
			"artists": [{"name": "M83"}, {"name": "Anthony Gonzalez"}],
			"album": {
				"name": "Hurry Up, We're Dreaming",
				"images": [{"url": "https://img.example/large.jpg"}, {"url": "https://img.example/small.jpg"}]
			}
		}
	}`

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenResponse(w, "access-1")
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	s, _ := newTestSession(t, mux)

	if err := s.Exchange(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	np, err := s.NowPlaying(context.Background())
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}

	if !np.IsPlaying {
		t.Error("expected is_playing true")
	}
	if np.ProgressMs == nil || *np.ProgressMs != 12345 {
		t.Errorf("unexpected progress_ms: %v", np.ProgressMs)
	}
	if np.DurationMs == nil || *np.DurationMs != 243000 {
		t.Errorf("unexpected duration_ms: %v", np.DurationMs)
	}
	if np.TrackName != "Midnight City" {
		t.Errorf("unexpected track_name: %q", np.TrackName)
	}
	if np.Artists != "M83, Anthony Gonzalez" {
		t.Errorf("unexpected artists: %q", np.Artists)
	}
	if np.AlbumName != "Hurry Up, We're Dreaming" {
		t.Errorf("unexpected album_name: %q", np.AlbumName)
	}
	if np.AlbumImage != "https://img.example/large.jpg" {
		t.Errorf("unexpected album_image: %q", np.AlbumImage)
	}
}

func TestNowPlayingUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenResponse(w, "access-1")
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	s, _ := newTestSession(t, mux)

	if err := s.Exchange(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	_, err := s.NowPlaying(context.Background())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusBadGateway {
		t.Fatalf("unexpected upstream status %d", upstream.Status)
	}
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	refreshed := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad token request: %v", err)
		}
		if r.Form.Get("grant_type") == "refresh_token" {
			refreshed = true
		}
		tokenResponse(w, "access-2")
	})
	s, _ := newTestSession(t, mux)

	s.mu.Lock()
	s.token = &oauth2.Token{
		AccessToken:  "access-stale",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute),
	}
	s.mu.Unlock()

	tok, err := s.accessToken(context.Background())
	if err != nil {
		t.Fatalf("accessToken failed: %v", err)
	}
	if tok != "access-2" {
		t.Fatalf("expected refreshed token, got %q", tok)
	}
	if !refreshed {
		t.Fatal("token endpoint never saw a refresh_token grant")
	}
}

func TestExpiredTokenWithoutRefreshToken(t *testing.T) {
	s, _ := newTestSession(t, http.NotFoundHandler())

	s.mu.Lock()
	s.token = &oauth2.Token{
		AccessToken: "access-stale",
		Expiry:      time.Now().Add(-time.Minute),
	}
	s.mu.Unlock()

	_, err := s.accessToken(context.Background())
	if !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}
