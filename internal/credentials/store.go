package credentials

import (
	"database/sql"
	"errors"

	"socialapp/internal/models"
)

// ErrAnonymous is returned by Load when no usable credential triple is
// stored.
var ErrAnonymous = errors.New("no stored credentials")

const (
	keyToken    = "token"
	keyUsername = "username"
	keyUserID   = "userId"
)

// Store persists the bearer token and minimal identity across process
// restarts. Pure storage: no network, no validation of token content.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save overwrites all three keys in one transaction.
func (s *Store) Save(c models.Credential) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	pairs := [][2]string{
		{keyToken, c.Token},
		{keyUsername, c.Username},
		{keyUserID, c.UserID},
	}
	for _, p := range pairs {
		_, err := tx.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, p[0], p[1])
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load returns the triple only if all three keys are present and
// non-empty. A partial triple counts as anonymous and is cleared so the
// store never serves half a session.
func (s *Store) Load() (models.Credential, error) {
	rows, err := s.db.Query(`SELECT key, value FROM kv WHERE key IN (?, ?, ?)`,
		keyToken, keyUsername, keyUserID)
	if err != nil {
		return models.Credential{}, err
	}
	defer rows.Close()

	var c models.Credential
	n := 0
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return models.Credential{}, err
		}
		switch k {
		case keyToken:
			c.Token = v
		case keyUsername:
			c.Username = v
		case keyUserID:
			c.UserID = v
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return models.Credential{}, err
	}
	if !c.Complete() {
		if n > 0 {
			s.Clear()
		}
		return models.Credential{}, ErrAnonymous
	}
	return c, nil
}

// Clear removes all three keys; it never partially clears.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key IN (?, ?, ?)`,
		keyToken, keyUsername, keyUserID)
	return err
}
