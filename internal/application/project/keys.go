package project

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

const (
	apiKeyPrefix     = "ak_"
	apiKeyBytes      = 32
	displayPrefixLen = len(apiKeyPrefix) + 8
	// DefaultMaxAttempts bounds the collision loop. With 256 bits of entropy a
	// single retry is already astronomically unlikely.
	DefaultMaxAttempts = 5
)

var errKeySpaceExhausted = errors.New("could not generate a unique API key")

// HashAPIKey is the stored form of an API key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// DisplayPrefix is the part of a key shown in listings.
func DisplayPrefix(key string) string {
	if len(key) <= displayPrefixLen {
		return key
	}
	return key[:displayPrefixLen]
}

// GeneratedKey is a fresh key and its stored forms.
type GeneratedKey struct {
	Plain  string
	Hash   string
	Prefix string
}

// KeyGenerator samples API keys and skips any whose hash is already registered.
type KeyGenerator struct {
	projects    ports.ProjectRepository
	random      io.Reader
	maxAttempts int
}

func NewKeyGenerator(projects ports.ProjectRepository) *KeyGenerator {
	return &KeyGenerator{projects: projects, random: rand.Reader, maxAttempts: DefaultMaxAttempts}
}

// Generate returns a key not currently in use.
func (g *KeyGenerator) Generate(ctx context.Context) (*GeneratedKey, error) {
	for i := 0; i < g.maxAttempts; i++ {
		key, err := g.sample()
		if err != nil {
			return nil, err
		}
		taken, err := g.projects.ExistsByAPIKeyHash(ctx, key.Hash)
		if err != nil {
			return nil, err
		}
		if !taken {
			return key, nil
		}
	}
	return nil, errKeySpaceExhausted
}

func (g *KeyGenerator) sample() (*GeneratedKey, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := io.ReadFull(g.random, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	plain := apiKeyPrefix + hex.EncodeToString(b)
	return &GeneratedKey{Plain: plain, Hash: HashAPIKey(plain), Prefix: DisplayPrefix(plain)}, nil
}
