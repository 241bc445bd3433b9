package identitystore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/axelferr/authcore"
	"github.com/google/uuid"
)

// ErrIdentifierTaken is returned by Create for a duplicate identifier.
var ErrIdentifierTaken = errors.New("identifier already registered")

// Memory is a mutex-guarded in-process identity store.
type Memory struct {
	mu           sync.RWMutex
	byID         map[string]authcore.IdentityRecord
	byIdentifier map[string]string
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		byID:         make(map[string]authcore.IdentityRecord),
		byIdentifier: make(map[string]string),
	}
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Create registers a new active identity and returns its record. The
// credential hash must already be encoded by the engine's hasher.
func (m *Memory) Create(_ context.Context, identifier, credentialHash string) (authcore.IdentityRecord, error) {
	key := normalizeIdentifier(identifier)
	if key == "" {
		return authcore.IdentityRecord{}, errors.New("identifier must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byIdentifier[key]; taken {
		return authcore.IdentityRecord{}, ErrIdentifierTaken
	}

	rec := authcore.IdentityRecord{
		ID:             uuid.NewString(),
		Identifier:     key,
		CredentialHash: credentialHash,
		Status:         authcore.StatusActive,
	}
	m.byID[rec.ID] = rec
	m.byIdentifier[key] = rec.ID

	return rec, nil
}

func (m *Memory) GetByIdentifier(_ context.Context, identifier string) (authcore.IdentityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdentifier[normalizeIdentifier(identifier)]
	if !ok {
		return authcore.IdentityRecord{}, authcore.ErrIdentityNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) GetByID(_ context.Context, id string) (authcore.IdentityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return authcore.IdentityRecord{}, authcore.ErrIdentityNotFound
	}
	return rec, nil
}

func (m *Memory) UpdateCredentialHash(_ context.Context, id, credentialHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return authcore.ErrIdentityNotFound
	}
	rec.CredentialHash = credentialHash
	m.byID[id] = rec
	return nil
}

func (m *Memory) SetStatus(_ context.Context, id string, status authcore.IdentityStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return authcore.ErrIdentityNotFound
	}
	rec.Status = status
	m.byID[id] = rec
	return nil
}
