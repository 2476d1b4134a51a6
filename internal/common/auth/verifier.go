// Package auth verifies API keys for protected endpoints.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidKey = errors.New("invalid api key")

// Verifier checks presented API keys against a configured bcrypt hash
// and, when a database is attached, against stored per-client keys.
type Verifier struct {
	staticHash string
	db         *sql.DB
}

func NewVerifier(staticHash string, db *sql.DB) *Verifier {
	return &Verifier{
		staticHash: staticHash,
		db:         db,
	}
}

// Verify returns the client ID associated with the key, or ErrInvalidKey.
// The static key maps to the "default" client.
func (v *Verifier) Verify(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	if v.staticHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(v.staticHash), []byte(key)); err == nil {
			return "default", nil
		}
	}

	if v.db != nil {
		clientID, err := v.verifyStored(ctx, key)
		if err == nil {
			return clientID, nil
		}
		if !errors.Is(err, ErrInvalidKey) {
			return "", err
		}
	}

	return "", ErrInvalidKey
}

// verifyStored compares the key against active stored hashes. Key counts
// are small enough that a sequential scan with bcrypt compare is fine.
func (v *Verifier) verifyStored(ctx context.Context, key string) (string, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT client_id, key_hash FROM api_keys WHERE active = true`)
	if err != nil {
		return "", fmt.Errorf("api key lookup failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clientID, keyHash string
		if err := rows.Scan(&clientID, &keyHash); err != nil {
			return "", fmt.Errorf("api key scan failed: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) == nil {
			return clientID, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("api key iteration failed: %w", err)
	}

	return "", ErrInvalidKey
}

// HashKey produces a bcrypt hash for provisioning new API keys.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// GenerateKey produces a new random API key with the sk_ prefix.
func GenerateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return "sk_" + hex.EncodeToString(buf), nil
}
