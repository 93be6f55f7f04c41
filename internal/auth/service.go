package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidKey is returned when the provided API key does not match any active client.
var ErrInvalidKey = errors.New("invalid or revoked API key")

// KeyPrefix starts every generated API key.
const KeyPrefix = "chub_"

// Service provides API key authentication.
type Service struct {
	clients    ClientRepository
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(clients ClientRepository, bcryptCost int) *Service {
	return &Service{
		clients:    clients,
		bcryptCost: bcryptCost,
	}
}

// GenerateKey creates a new API key. Returns the raw key, its prefix (first 8 chars),
// and the bcrypt hash. The raw key is: 32 random bytes -> base64url -> prepend "chub_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = KeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:8]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	hash = string(hashBytes)

	return rawKey, prefix, hash, nil
}

// CreateClient registers a new API client for a tenant. The raw key is returned once and
// never stored.
func (s *Service) CreateClient(ctx context.Context, tenantID uuid.UUID, name string) (string, *Client, error) {
	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return "", nil, err
	}

	c := &Client{
		TenantID:     tenantID,
		Name:         name,
		ApiKeyPrefix: prefix,
		ApiKeyHash:   hash,
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return "", nil, err
	}

	return rawKey, c, nil
}

// Authenticate resolves a raw API key to an Identity. It extracts the prefix,
// looks up candidates, and bcrypt-compares each one.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if len(rawKey) < 8 {
		return nil, ErrInvalidKey
	}

	prefix := rawKey[:8]

	candidates, err := s.clients.FindByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding api clients by prefix: %w", err)
	}

	for _, c := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(c.ApiKeyHash), []byte(rawKey)) == nil {
			return &Identity{
				Subject:     c.ID.String(),
				Name:        c.Name,
				TenantCode:  c.TenantCode,
				IsAPIClient: true,
			}, nil
		}
	}

	return nil, ErrInvalidKey
}
