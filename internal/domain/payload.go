package domain

import "encoding/json"

// AESPayload is the canonical structured form of an AES key's material
// before wrapping.
type AESPayload struct {
	Key []byte `json:"key"`
}

// AsymmetricPayload is the canonical structured form of an RSA or ECC key
// pair's material before wrapping.
type AsymmetricPayload struct {
	PublicKeyPEM  []byte `json:"publicKey"`
	PrivateKeyPEM []byte `json:"privateKey"`
}

// MarshalPayload serializes an algorithm payload to the canonical
// structured form persisted (wrapped) in a KeyRecord.
func MarshalPayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalAESPayload parses wrapped AES material.
func UnmarshalAESPayload(raw []byte) (AESPayload, error) {
	var p AESPayload
	err := json.Unmarshal(raw, &p)
	return p, err
}

// UnmarshalAsymmetricPayload parses wrapped RSA/ECC material.
func UnmarshalAsymmetricPayload(raw []byte) (AsymmetricPayload, error) {
	var p AsymmetricPayload
	err := json.Unmarshal(raw, &p)
	return p, err
}
