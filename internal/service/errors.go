package service

import "errors"

// Message operation failures.
var (
	ErrUnauthorized     = errors.New("not authorized")
	ErrMessageNotFound  = errors.New("message not found")
	ErrInvalidContent   = errors.New("invalid message content")
	ErrEncryptionFailed = errors.New("message encryption failed")
	ErrDecryptionFailed = errors.New("message decryption failed")
)

// Conversation operation failures.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidParticipants  = errors.New("invalid participant set")
	ErrConversationExists   = errors.New("conversation already exists")
)
