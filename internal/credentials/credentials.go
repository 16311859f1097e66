// Package credentials is the persisted gate endpoint, bearer token and
// operation durations, backed by the settings table.
package credentials

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/thatsimonsguy/gate-remote/db"
)

const (
	KeyAPIURL         = "api_url"
	KeyBearerToken    = "bearer_token"
	KeyOpeningSeconds = "opening_seconds"
	KeyClosingSeconds = "closing_seconds"
)

type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) APIURL() (string, bool, error) {
	return s.getString(KeyAPIURL)
}

func (s *Store) BearerToken() (string, bool, error) {
	return s.getString(KeyBearerToken)
}

func (s *Store) OpeningSeconds() (int, bool, error) {
	return s.getSeconds(KeyOpeningSeconds)
}

func (s *Store) ClosingSeconds() (int, bool, error) {
	return s.getSeconds(KeyClosingSeconds)
}

func (s *Store) SaveAPIURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("api url must not be empty")
	}
	return db.SetSetting(s.conn, KeyAPIURL, url)
}

func (s *Store) SaveBearerToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("bearer token must not be empty")
	}
	return db.SetSetting(s.conn, KeyBearerToken, token)
}

func (s *Store) SaveOpeningSeconds(seconds int) error {
	return s.saveSeconds(KeyOpeningSeconds, seconds)
}

func (s *Store) SaveClosingSeconds(seconds int) error {
	return s.saveSeconds(KeyClosingSeconds, seconds)
}

// Configured reports whether both the endpoint and the token are present.
func (s *Store) Configured() (bool, error) {
	_, hasURL, err := s.APIURL()
	if err != nil {
		return false, err
	}
	_, hasToken, err := s.BearerToken()
	if err != nil {
		return false, err
	}
	return hasURL && hasToken, nil
}

// Clear removes every stored credential and duration.
func (s *Store) Clear() error {
	return db.DeleteSettings(s.conn, KeyAPIURL, KeyBearerToken, KeyOpeningSeconds, KeyClosingSeconds)
}

func (s *Store) getString(key string) (string, bool, error) {
	value, ok, err := db.GetSetting(s.conn, key)
	if err != nil || !ok || value == "" {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) getSeconds(key string) (int, bool, error) {
	value, ok, err := s.getString(key)
	if err != nil || !ok {
		return 0, false, err
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0, false, fmt.Errorf("stored %s is not a positive integer: %q", key, value)
	}
	return seconds, true, nil
}

func (s *Store) saveSeconds(key string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%s must be positive (got %d)", key, seconds)
	}
	return db.SetSetting(s.conn, key, strconv.Itoa(seconds))
}

// Durations resolves configured operation durations from the store, falling
// back to defaults when a value is absent or unreadable.
type Durations struct {
	store          *Store
	defaultOpening int
	defaultClosing int
}

func NewDurations(store *Store, defaultOpening, defaultClosing int) *Durations {
	return &Durations{store: store, defaultOpening: defaultOpening, defaultClosing: defaultClosing}
}

func (d *Durations) OpeningSeconds() int {
	if v, ok, err := d.store.OpeningSeconds(); err == nil && ok {
		return v
	}
	return d.defaultOpening
}

func (d *Durations) ClosingSeconds() int {
	if v, ok, err := d.store.ClosingSeconds(); err == nil && ok {
		return v
	}
	return d.defaultClosing
}

// MaskToken hides all but the last four characters of a bearer token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
