package backup

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shoalcreek/privacycore/internal/audit"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/registry"
	"github.com/shoalcreek/privacycore/internal/storage"
)

func newTestCodec(t *testing.T) (*Codec, *registry.Registry) {
	t.Helper()
	s, err := storage.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	wrapper, err := envelope.NewWrapper(bytes.Repeat([]byte{0x7}, 32))
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	reg := registry.New(s.Keys(), wrapper)
	rec := audit.New(s.Audit())
	return New(reg, wrapper, rec), reg
}

func TestCodec_ExportImport_RoundTrip(t *testing.T) {
	codec, reg := newTestCodec(t)
	ctx := context.Background()

	k1, err := reg.CreateKey(ctx, 1, "first", domain.AlgorithmAES256CBC, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	k2, err := reg.CreateKey(ctx, 1, "second", domain.AlgorithmRSA2048, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	artifact, err := codec.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact == "" {
		t.Fatal("Export returned an empty artifact")
	}

	restored, err := codec.Import(ctx, 2, artifact)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored != 2 {
		t.Fatalf("restored = %d, want 2", restored)
	}

	got, err := reg.GetKeyByPublicID(ctx, k1.PublicID)
	if err != nil {
		t.Fatalf("GetKeyByPublicID(k1): %v", err)
	}
	if got.Owner != 2 {
		t.Errorf("k1 owner after import = %d, want 2", got.Owner)
	}
	if _, err := reg.GetKeyByPublicID(ctx, k2.PublicID); err != nil {
		t.Errorf("GetKeyByPublicID(k2): %v", err)
	}
}

func TestCodec_Import_IdempotentOnRepeat(t *testing.T) {
	codec, reg := newTestCodec(t)
	ctx := context.Background()

	if _, err := reg.CreateKey(ctx, 1, "only", domain.AlgorithmAES256CBC, nil); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	artifact, err := codec.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	first, err := codec.Import(ctx, 2, artifact)
	if err != nil {
		t.Fatalf("Import (first): %v", err)
	}
	if first != 1 {
		t.Fatalf("first restored = %d, want 1", first)
	}

	second, err := codec.Import(ctx, 3, artifact)
	if err != nil {
		t.Fatalf("Import (second): %v", err)
	}
	if second != 0 {
		t.Fatalf("second restored = %d, want 0 (already present)", second)
	}
}

func TestCodec_Export_EmptyKeySet(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()
	if _, err := codec.Export(ctx, 99); !errors.Is(err, domain.ErrNothingToBackUp) {
		t.Errorf("err = %v, want ErrNothingToBackUp", err)
	}
}

func TestCodec_Import_MalformedArtifact(t *testing.T) {
	codec, _ := newTestCodec(t)
	ctx := context.Background()
	if _, err := codec.Import(ctx, 1, "not-a-valid-artifact"); !errors.Is(err, domain.ErrMalformedBackup) {
		t.Errorf("err = %v, want ErrMalformedBackup", err)
	}
}

func TestCodec_Import_WrongMasterKeyFails(t *testing.T) {
	codec, reg := newTestCodec(t)
	ctx := context.Background()
	if _, err := reg.CreateKey(ctx, 1, "only", domain.AlgorithmAES256CBC, nil); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	artifact, err := codec.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	otherWrapper, err := envelope.NewWrapper(bytes.Repeat([]byte{0x9}, 32))
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	otherCodec := New(reg, otherWrapper, codec.audit)
	if _, err := otherCodec.Import(ctx, 2, artifact); err == nil {
		t.Error("expected Import under the wrong master key to fail")
	}
}
