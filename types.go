package authcore

import "context"

// IdentityStatus represents the lifecycle state of an identity.
type IdentityStatus uint8

const (
	// StatusActive identities can authenticate and hold sessions.
	StatusActive IdentityStatus = iota
	// StatusLocked identities are temporarily blocked after repeated
	// authentication failures. Release is an explicit status change.
	StatusLocked
	// StatusDisabled identities are administratively blocked.
	StatusDisabled
	// StatusDeleted identities are tombstoned; records are never removed,
	// only marked. Deleted identities never authenticate again.
	StatusDeleted
)

func (s IdentityStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusLocked:
		return "locked"
	case StatusDisabled:
		return "disabled"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// IdentityRecord is the credential-store view of an identity. The
// CredentialHash string is self-describing (PHC argon2id or bcrypt form),
// carrying its own salt and algorithm tag.
type IdentityRecord struct {
	ID             string
	Identifier     string
	CredentialHash string
	Status         IdentityStatus
}

// IdentityStore is the credential store contract. Implementations must be
// safe for concurrent use and must apply each mutation atomically per
// record. Missing records are reported as [ErrIdentityNotFound]; transport
// failures wrap [ErrStoreUnavailable].
type IdentityStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (IdentityRecord, error)
	GetByID(ctx context.Context, id string) (IdentityRecord, error)
	UpdateCredentialHash(ctx context.Context, id, credentialHash string) error
	SetStatus(ctx context.Context, id string, status IdentityStatus) error
}
