package registry

import (
	"bytes"
	"context"
	"testing"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := storage.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	wrapper, err := envelope.NewWrapper(bytes.Repeat([]byte{0x9}, 32))
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	return New(s.Keys(), wrapper)
}

func TestRegistry_CreateKey_AES(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	k, err := reg.CreateKey(ctx, 1, "my aes key", domain.AlgorithmAES256CBC, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if k.WrappedMaterial != nil || k.WrapIV != nil {
		t.Error("CreateKey should return a redacted record")
	}
	if k.Status != domain.KeyActive {
		t.Errorf("status = %v, want active", k.Status)
	}
	if k.PublicID == "" {
		t.Error("expected a non-empty public id")
	}
}

func TestRegistry_CreateKey_BadAlgorithm(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.CreateKey(context.Background(), 1, "bad", domain.Algorithm("not-real"), nil)
	if err != domain.ErrBadAlgorithm {
		t.Errorf("err = %v, want ErrBadAlgorithm", err)
	}
}

func TestRegistry_UnwrapMaterial_RoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	k, err := reg.CreateKey(ctx, 1, "aes key", domain.AlgorithmAES128CBC, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	_, payload, err := reg.UnwrapMaterial(ctx, k.PublicID)
	if err != nil {
		t.Fatalf("UnwrapMaterial: %v", err)
	}
	aesPayload, err := domain.UnmarshalAESPayload(payload)
	if err != nil {
		t.Fatalf("UnmarshalAESPayload: %v", err)
	}
	if len(aesPayload.Key) != 16 {
		t.Errorf("key length = %d, want 16", len(aesPayload.Key))
	}
}

func TestRegistry_UnwrapMaterial_RevokedKey(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	k, err := reg.CreateKey(ctx, 1, "aes key", domain.AlgorithmAES128CBC, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	byPublic, err := reg.GetKeyByPublicID(ctx, k.PublicID)
	if err != nil {
		t.Fatalf("GetKeyByPublicID: %v", err)
	}
	if err := reg.Revoke(ctx, byPublic.InternalID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, _, err := reg.UnwrapMaterial(ctx, k.PublicID); err != domain.ErrKeyNotActive {
		t.Errorf("err = %v, want ErrKeyNotActive", err)
	}
}

func TestRegistry_Revoke_NotOverriddenByMarkExpired(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	k, err := reg.CreateKey(ctx, 1, "aes key", domain.AlgorithmAES128CBC, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	byPublic, err := reg.GetKeyByPublicID(ctx, k.PublicID)
	if err != nil {
		t.Fatalf("GetKeyByPublicID: %v", err)
	}
	if err := reg.Revoke(ctx, byPublic.InternalID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := reg.MarkExpired(ctx, byPublic.InternalID); err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	final, err := reg.GetKey(ctx, byPublic.InternalID)
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if final.Status != domain.KeyRevoked {
		t.Errorf("status = %v, want revoked (monotonic, should not move to expired)", final.Status)
	}
}

func TestRegistry_ListKeysFor(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	if _, err := reg.CreateKey(ctx, 5, "a", domain.AlgorithmAES128CBC, nil); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if _, err := reg.CreateKey(ctx, 5, "b", domain.AlgorithmRSA2048, nil); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if _, err := reg.CreateKey(ctx, 6, "c", domain.AlgorithmAES128CBC, nil); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	ks, err := reg.ListKeysFor(ctx, 5)
	if err != nil {
		t.Fatalf("ListKeysFor: %v", err)
	}
	if len(ks) != 2 {
		t.Errorf("len(ks) = %d, want 2", len(ks))
	}
}
