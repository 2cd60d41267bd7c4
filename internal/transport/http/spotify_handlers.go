package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jorgedlr/listening-rooms/internal/spotify"
)

// SpotifyHandlers exposes the OAuth flow and now-playing proxy.
type SpotifyHandlers struct {
	session *spotify.Session
	log     *zerolog.Logger
}

// NewSpotifyHandlers creates a new spotify handlers instance.
func NewSpotifyHandlers(session *spotify.Session, logger *zerolog.Logger) *SpotifyHandlers {
	return &SpotifyHandlers{session: session, log: logger}
}

// Login redirects the user to the Spotify authorize page.
// GET /auth/login
func (h *SpotifyHandlers) Login(c *gin.Context) {
	if !h.session.Configured() {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "spotify client id or redirect uri not configured on server"})
		return
	}
	c.Redirect(http.StatusFound, h.session.AuthURL())
}

// Callback exchanges the authorization code for tokens.
// GET /auth/callback
func (h *SpotifyHandlers) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "spotify error: " + errParam})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing code from spotify"})
		return
	}

	if err := h.session.Exchange(c.Request.Context(), code); err != nil {
		h.log.Error().Err(err).Msg("spotify code exchange failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to exchange code for token with spotify"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "spotify linked"})
}

// NowPlaying proxies the currently playing track for the linked account.
// GET /spotify/now-playing
func (h *SpotifyHandlers) NowPlaying(c *gin.Context) {
	np, err := h.session.NowPlaying(c.Request.Context())
	if err != nil {
		status, msg := nowPlayingErrorStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, np)
}

// nowPlayingErrorStatus maps session errors onto HTTP statuses: unauthenticated
// is the caller's problem, upstream statuses are passed through.
func nowPlayingErrorStatus(err error) (int, string) {
	if errors.Is(err, spotify.ErrNotLinked) {
		return http.StatusUnauthorized, "user not authenticated with spotify"
	}

	var upstream *spotify.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status, "failed to fetch now-playing from spotify"
	}

	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		return retrieve.Response.StatusCode, "failed to refresh spotify access token"
	}

	return http.StatusBadGateway, "failed to fetch now-playing from spotify"
}

// DebugToken reports whether tokens are stored, without revealing them.
// GET /auth/debug-token
func (h *SpotifyHandlers) DebugToken(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Debug())
}
