package http

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jorgedlr/listening-rooms/internal/chat"
	"github.com/jorgedlr/listening-rooms/internal/config"
	"github.com/jorgedlr/listening-rooms/internal/spotify"
	"github.com/jorgedlr/listening-rooms/internal/store"
	"github.com/jorgedlr/listening-rooms/internal/store/sqlite"
)

// seededRoomID is present in every test store.
const seededRoomID = "room-seed-1"

// testEnv bundles the pieces handler tests poke at.
type testEnv struct {
	ts       *httptest.Server
	store    store.Store
	registry *chat.Registry
}

// createTestStore creates an in-memory SQLite store with one seeded room.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO rooms (id, name, host_name) VALUES (?, ?, ?)`,
			seededRoomID, "general", "host",
		)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	return st
}

// newTestEnv spins up the full HTTP server over an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	registry := chat.NewRegistry(&logger)
	session := spotify.NewSession(spotify.Config{}, &logger)

	cfg := config.Default()
	cfg.Addr = ":0"

	server := NewServer(registry, st, session, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, registry: registry}
}
