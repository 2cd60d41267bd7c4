package spotify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	spotifyoauth "golang.org/x/oauth2/spotify"
)

// Scopes requested from Spotify when linking an account.
const scopes = "user-read-playback-state user-read-currently-playing"

// refreshMargin refreshes the access token slightly before it actually
// expires so an in-flight request never races the expiry.
const refreshMargin = 30 * time.Second

// ErrNotLinked is returned when no Spotify account has been linked yet, or
// when the stored tokens can no longer be refreshed.
var ErrNotLinked = errors.New("not authenticated with spotify")

// UpstreamError reports a non-success response from the Spotify API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify upstream status %d", e.Status)
}

// Config holds the application credentials for the integration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Session holds the single linked Spotify account for this process. The
// server is a one-user integration: whoever completes the OAuth flow last
// owns the tokens.
type Session struct {
	log   *zerolog.Logger
	oauth *oauth2.Config

	// apiBase is swapped out by tests to point at a fake Spotify.
	apiBase string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSession builds a session from application credentials.
func NewSession(cfg Config, logger *zerolog.Logger) *Session {
	return &Session{
		log: logger,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{scopes},
			Endpoint:     spotifyoauth.Endpoint,
		},
		apiBase: "https://api.spotify.com",
	}
}

// Configured reports whether client credentials are present.
func (s *Session) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && s.oauth.RedirectURL != ""
}

// AuthURL returns the Spotify authorize URL to redirect the user to.
func (s *Session) AuthURL() string {
	return s.oauth.AuthCodeURL("", oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades an authorization code for tokens and stores them.
func (s *Session) Exchange(ctx context.Context, code string) error {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return errors.New("no access token in spotify response")
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	s.log.Info().Time("expires_at", tok.Expiry).Msg("spotify account linked")
	return nil
}

// accessToken returns a currently valid access token, refreshing if needed.
func (s *Session) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil || s.token.AccessToken == "" {
		return "", ErrNotLinked
	}

	if s.token.Expiry.IsZero() || time.Until(s.token.Expiry) > refreshMargin {
		return s.token.AccessToken, nil
	}

	if s.token.RefreshToken == "" {
		return "", ErrNotLinked
	}

	// Force a refresh by presenting only the refresh token.
	src := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		s.log.Warn().Err(err).Msg("spotify token refresh failed")
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.token.RefreshToken
	}
	s.token = fresh

	s.log.Debug().Time("expires_at", fresh.Expiry).Msg("spotify token refreshed")
	return fresh.AccessToken, nil
}

// DebugInfo is a snapshot of token state for the introspection endpoint.
type DebugInfo struct {
	AccessTokenSet  bool    `json:"access_token_set"`
	RefreshTokenSet bool    `json:"refresh_token_set"`
	ExpiresAt       float64 `json:"expires_at"`
	Now             float64 `json:"now"`
}

// Debug reports whether tokens are stored and when they expire.
func (s *Session) Debug() DebugInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := DebugInfo{
		Now: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	if s.token != nil {
		info.AccessTokenSet = s.token.AccessToken != ""
		info.RefreshTokenSet = s.token.RefreshToken != ""
		if !s.token.Expiry.IsZero() {
			info.ExpiresAt = float64(s.token.Expiry.UnixNano()) / float64(time.Second)
		}
	}
	return info
}
