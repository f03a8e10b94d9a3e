package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// APIKey is a stored credential: the bcrypt hash of the key and who owns it.
type APIKey struct {
	Name   string   `yaml:"name" mapstructure:"name"`
	Hash   string   `yaml:"hash" mapstructure:"hash"`
	Scopes []string `yaml:"scopes" mapstructure:"scopes"`
}

// APIKeyVerifier accepts static API keys stored as bcrypt hashes.
type APIKeyVerifier struct {
	keys []APIKey
}

// NewAPIKeyVerifier creates a verifier over keys. Every hash must be a
// valid bcrypt hash.
func NewAPIKeyVerifier(keys []APIKey) (*APIKeyVerifier, error) {
	for _, k := range keys {
		if _, err := bcrypt.Cost([]byte(k.Hash)); err != nil {
			return nil, fmt.Errorf("auth.api_keys: key %q: %w", k.Name, err)
		}
	}
	return &APIKeyVerifier{keys: keys}, nil
}

// Verify compares token against every stored hash.
func (v *APIKeyVerifier) Verify(token string) (Principal, error) {
	if token == "" || len(token) > 72 {
		return Principal{}, ErrInvalidCredentials
	}
	for _, k := range v.keys {
		if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(token)) == nil {
			return Principal{Subject: k.Name, Method: "api_key", Scopes: k.Scopes}, nil
		}
	}
	return Principal{}, ErrInvalidCredentials
}

// HashAPIKey returns the bcrypt hash to store for key.
func HashAPIKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash api key: %w", err)
	}
	return string(hash), nil
}

// GenerateAPIKey returns a random hex key of n bytes.
func GenerateAPIKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("auth: generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
