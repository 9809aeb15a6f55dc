// Package engine dispatches encrypt/decrypt by algorithm and produces the
// self-describing envelope format each algorithm uses on the wire. It is
// the single place that knows both the envelope layout and the ledger/audit
// recording rules: a successful operation reaches internal/ledger, every
// operation (success or failure) reaches internal/audit.
package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoalcreek/privacycore/internal/anomaly"
	"github.com/shoalcreek/privacycore/internal/audit"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/ledger"
	"github.com/shoalcreek/privacycore/internal/metrics"
	"github.com/shoalcreek/privacycore/internal/primitive"
	"github.com/shoalcreek/privacycore/internal/registry"
)

// Engine performs encrypt/decrypt operations against registered keys.
type Engine struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	audit    *audit.Recorder
	detector *anomaly.Detector
}

func New(reg *registry.Registry, led *ledger.Ledger, rec *audit.Recorder, det *anomaly.Detector) *Engine {
	return &Engine{registry: reg, ledger: led, audit: rec, detector: det}
}

// Encrypt looks up keyPublicID's material, encrypts plaintext under it,
// and returns a self-describing envelope string. A failure is recorded to
// the audit trail only; a success is recorded to both audit and ledger.
func (e *Engine) Encrypt(ctx context.Context, actor int64, keyPublicID string, plaintext []byte, resourceLabel string) (string, error) {
	defer e.kickAnomalyCheck(actor)

	k, payload, err := e.registry.UnwrapMaterial(ctx, keyPublicID)
	if err != nil {
		e.recordFailure(ctx, actor, domain.ActionDataEncrypt, "", resourceLabel, err)
		return "", err
	}

	env, err := e.encryptFor(k.Algorithm, payload, plaintext)
	if err != nil {
		e.recordFailure(ctx, actor, domain.ActionDataEncrypt, k.Algorithm, resourceLabel, err)
		return "", err
	}

	e.recordSuccess(ctx, actor, domain.ActionDataEncrypt, k.Algorithm, resourceLabel)
	keyID := k.InternalID
	_ = e.ledger.Record(ctx, actor, &keyID, domain.OperationEncrypt, k.Algorithm, resourceLabel)
	return env, nil
}

// Decrypt parses env according to keyPublicID's algorithm, decrypts it,
// and returns the plaintext. Recording rules mirror Encrypt.
func (e *Engine) Decrypt(ctx context.Context, actor int64, keyPublicID string, env string, resourceLabel string) ([]byte, error) {
	defer e.kickAnomalyCheck(actor)

	k, payload, err := e.registry.UnwrapMaterial(ctx, keyPublicID)
	if err != nil {
		e.recordFailure(ctx, actor, domain.ActionDataDecrypt, "", resourceLabel, err)
		return nil, err
	}

	plaintext, err := e.decryptFor(k.Algorithm, payload, env)
	if err != nil {
		e.recordFailure(ctx, actor, domain.ActionDataDecrypt, k.Algorithm, resourceLabel, err)
		return nil, err
	}

	e.recordSuccess(ctx, actor, domain.ActionDataDecrypt, k.Algorithm, resourceLabel)
	keyID := k.InternalID
	_ = e.ledger.Record(ctx, actor, &keyID, domain.OperationDecrypt, k.Algorithm, resourceLabel)
	return plaintext, nil
}

func (e *Engine) encryptFor(algorithm domain.Algorithm, payload, plaintext []byte) (string, error) {
	switch {
	case algorithm == domain.AlgorithmAES128CBC || algorithm == domain.AlgorithmAES256CBC:
		return e.encryptAESCBC(payload, plaintext)
	case algorithm == domain.AlgorithmAES256GCM:
		return e.encryptAESGCM(payload, plaintext)
	case algorithm == domain.AlgorithmRSA2048:
		return e.encryptRSA(payload, plaintext)
	case algorithm == domain.AlgorithmECCP256:
		return e.encryptECCHybrid(payload, plaintext)
	default:
		return "", domain.ErrBadAlgorithm
	}
}

func (e *Engine) decryptFor(algorithm domain.Algorithm, payload []byte, env string) ([]byte, error) {
	switch {
	case algorithm == domain.AlgorithmAES128CBC || algorithm == domain.AlgorithmAES256CBC:
		return e.decryptAESCBC(payload, env)
	case algorithm == domain.AlgorithmAES256GCM:
		return e.decryptAESGCM(payload, env)
	case algorithm == domain.AlgorithmRSA2048:
		return e.decryptRSA(payload, env)
	case algorithm == domain.AlgorithmECCP256:
		return e.decryptECCHybrid(payload, env)
	default:
		return nil, domain.ErrBadAlgorithm
	}
}

// --- AES-CBC: iv_hex:ciphertext_hex ---

func (e *Engine) encryptAESCBC(payload, plaintext []byte) (string, error) {
	aesPayload, err := domain.UnmarshalAESPayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	iv, err := primitive.RandomBytes(16)
	if err != nil {
		return "", err
	}
	ciphertext, err := primitive.AESCBCEncrypt(aesPayload.Key, iv, plaintext)
	if err != nil {
		return "", err
	}
	return joinHex(iv, ciphertext), nil
}

func (e *Engine) decryptAESCBC(payload []byte, env string) ([]byte, error) {
	aesPayload, err := domain.UnmarshalAESPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	segments, err := splitHex(env, 2)
	if err != nil {
		return nil, err
	}
	return primitive.AESCBCDecrypt(aesPayload.Key, segments[0], segments[1])
}

// --- AES-GCM: nonce_hex:ciphertext_hex ---

func (e *Engine) encryptAESGCM(payload, plaintext []byte) (string, error) {
	aesPayload, err := domain.UnmarshalAESPayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	nonce, err := primitive.RandomBytes(primitive.GCMNonceSize)
	if err != nil {
		return "", err
	}
	ciphertext, err := primitive.AESGCMEncrypt(aesPayload.Key, nonce, plaintext)
	if err != nil {
		return "", err
	}
	return joinHex(nonce, ciphertext), nil
}

func (e *Engine) decryptAESGCM(payload []byte, env string) ([]byte, error) {
	aesPayload, err := domain.UnmarshalAESPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	segments, err := splitHex(env, 2)
	if err != nil {
		return nil, err
	}
	return primitive.AESGCMDecrypt(aesPayload.Key, segments[0], segments[1])
}

// --- RSA: ciphertext_hex ---

func (e *Engine) encryptRSA(payload, plaintext []byte) (string, error) {
	asymPayload, err := domain.UnmarshalAsymmetricPayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	ciphertext, err := primitive.RSAEncrypt(asymPayload.PublicKeyPEM, plaintext)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ciphertext), nil
}

func (e *Engine) decryptRSA(payload []byte, env string) ([]byte, error) {
	asymPayload, err := domain.UnmarshalAsymmetricPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	segments, err := splitHex(env, 1)
	if err != nil {
		return nil, err
	}
	return primitive.RSADecrypt(asymPayload.PrivateKeyPEM, segments[0])
}

// --- ECC hybrid: ephemeral_pub_hex:iv_hex:ciphertext_hex ---

func (e *Engine) encryptECCHybrid(payload, plaintext []byte) (string, error) {
	asymPayload, err := domain.UnmarshalAsymmetricPayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	recipientPub, err := primitive.ECDSAPublicKeyToECDHRaw(asymPayload.PublicKeyPEM)
	if err != nil {
		return "", err
	}
	ephemeralPriv, ephemeralPub, err := primitive.GenerateECDHP256()
	if err != nil {
		return "", err
	}
	shared, err := primitive.ECDHAgree(ephemeralPriv, recipientPub)
	if err != nil {
		return "", err
	}
	iv, err := primitive.RandomBytes(16)
	if err != nil {
		return "", err
	}
	ciphertext, err := primitive.AESCBCEncrypt(shared, iv, plaintext)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		hex.EncodeToString(ephemeralPub),
		hex.EncodeToString(iv),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

func (e *Engine) decryptECCHybrid(payload []byte, env string) ([]byte, error) {
	asymPayload, err := domain.UnmarshalAsymmetricPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}
	recipientPriv, err := primitive.ECDSAPrivateKeyToECDHRaw(asymPayload.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	segments, err := splitHex(env, 3)
	if err != nil {
		return nil, err
	}
	shared, err := primitive.ECDHAgree(recipientPriv, segments[0])
	if err != nil {
		return nil, err
	}
	return primitive.AESCBCDecrypt(shared, segments[1], segments[2])
}

func joinHex(parts ...[]byte) string {
	encoded := make([]string, len(parts))
	for i, p := range parts {
		encoded[i] = hex.EncodeToString(p)
	}
	return strings.Join(encoded, ":")
}

func splitHex(env string, want int) ([][]byte, error) {
	parts := strings.Split(env, ":")
	if len(parts) != want {
		return nil, fmt.Errorf("%w: expected %d segments, got %d", domain.ErrMalformedEnvelope, want, len(parts))
	}
	out := make([][]byte, want)
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hex segment", domain.ErrMalformedEnvelope)
		}
		out[i] = b
	}
	return out, nil
}

func (e *Engine) recordSuccess(ctx context.Context, actor int64, action domain.AuditAction, algorithm domain.Algorithm, resourceLabel string) {
	_, _ = e.audit.Record(ctx, audit.Entry{
		Actor:    &actor,
		Action:   action,
		Resource: &resourceLabel,
		Status:   domain.AuditSuccess,
	})
	observeCryptoOperation(algorithm, action, domain.AuditSuccess)
}

func (e *Engine) recordFailure(ctx context.Context, actor int64, action domain.AuditAction, algorithm domain.Algorithm, resourceLabel string, err error) {
	_, _ = e.audit.Record(ctx, audit.Entry{
		Actor:    &actor,
		Action:   action,
		Resource: &resourceLabel,
		Status:   domain.AuditFailed,
		Details:  map[string]any{"reason": failureReason(err)},
	})
	observeCryptoOperation(algorithm, action, domain.AuditFailed)
}

// observeCryptoOperation labels the algorithm "unknown" when none is
// passed, which Encrypt and Decrypt do for every UnwrapMaterial failure:
// an unknown key, a non-active key, or an unwrap error.
func observeCryptoOperation(algorithm domain.Algorithm, action domain.AuditAction, status domain.AuditStatus) {
	label := string(algorithm)
	if label == "" {
		label = "unknown"
	}
	metrics.CryptoOperationsTotal.WithLabelValues(label, string(action), string(status)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrKeyNotActive):
		return "key_not_active"
	case errors.Is(err, domain.ErrKeyUnknown):
		return "key_unknown"
	case errors.Is(err, domain.ErrBadAlgorithm):
		return "bad_algorithm"
	case errors.Is(err, domain.ErrMalformedEnvelope):
		return "malformed_envelope"
	case errors.Is(err, domain.ErrBadPadding):
		return "bad_padding"
	case errors.Is(err, domain.ErrBadKey):
		return "bad_key"
	case errors.Is(err, domain.ErrInputTooLarge):
		return "input_too_large"
	default:
		return "decrypt_failed"
	}
}

// kickAnomalyCheck runs the detector fire-and-forget after every
// operation, success or failure, so an operation's own call never blocks
// on anomaly analysis.
func (e *Engine) kickAnomalyCheck(actor int64) {
	if e.detector == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = e.detector.Detect(ctx, actor, time.Now().UTC())
	}()
}
