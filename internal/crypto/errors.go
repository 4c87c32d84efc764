package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotAuthenticated indicates the local user has no initialized keypair.
	ErrUserNotAuthenticated = errors.New("local user keypair not initialized")
	// ErrSenderKeyMissing indicates the sender has not published a public key.
	ErrSenderKeyMissing = errors.New("sender public key missing")
	// ErrRecipientKeyMissing indicates the recipient key vanished after
	// eligibility was already confirmed. This is an invariant violation, not
	// a reason to downgrade mid-send.
	ErrRecipientKeyMissing = errors.New("recipient public key missing")
	// ErrEncryptionTypeMismatch indicates a record tag that no cipher accepts.
	ErrEncryptionTypeMismatch = errors.New("encryption type mismatch")
)

// MigrationError reports a failed scheme migration with its reason.
type MigrationError struct {
	Reason string
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("encryption migration failed: %s", e.Reason)
}
