package api

import "time"

// CreateKeyRequest is the payload for POST /v1/keys.
type CreateKeyRequest struct {
	Name      string     `json:"name"`
	Algorithm string     `json:"algorithm"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// EncryptRequest is the payload for POST /v1/keys/{public_id}/encrypt.
// Plaintext is raw UTF-8; PlaintextB64 is base64 for arbitrary bytes.
// Exactly one should be set.
type EncryptRequest struct {
	Plaintext     string `json:"plaintext"`
	PlaintextB64  string `json:"plaintext_b64"`
	ResourceLabel string `json:"resource_label"`
}

// DecryptRequest is the payload for POST /v1/keys/{public_id}/decrypt.
type DecryptRequest struct {
	Envelope      string `json:"envelope"`
	ResourceLabel string `json:"resource_label"`
}

// ImportBackupRequest is the payload for POST /v1/backup/import.
type ImportBackupRequest struct {
	Artifact string `json:"artifact"`
}

type keyResponse struct {
	PublicID  string     `json:"public_id"`
	Name      string     `json:"name"`
	Algorithm string     `json:"algorithm"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LastUsed  *time.Time `json:"last_used_at,omitempty"`
}
