package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shoalcreek/privacycore/internal/anomaly"
	"github.com/shoalcreek/privacycore/internal/auth"
	"github.com/shoalcreek/privacycore/internal/core"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/storage"
)

func testServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	c, err := core.New(store, bytes.Repeat([]byte{0x7}, 32), anomaly.DefaultThresholds())
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	logger := log.New(&bytes.Buffer{}, "", 0)
	return NewServer(c, store.Actors(), logger, nil), store
}

func withActor(req *http.Request, id int64) *http.Request {
	return req.WithContext(auth.WithActorID(req.Context(), id))
}

func seedActor(t *testing.T, store *storage.Store, id int64, role domain.Role) {
	t.Helper()
	if err := store.Actors().Upsert(context.Background(), &domain.Actor{ID: id, Role: role, Status: domain.ActorActive}); err != nil {
		t.Fatalf("seed actor: %v", err)
	}
}

func TestServer_NotFound(t *testing.T) {
	s, store := testServer(t)
	seedActor(t, store, 1, domain.RoleStandard)
	req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), 1)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET / = %d, want 404", rec.Code)
	}
}

func TestServer_Unauthenticated(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /v1/keys without actor = %d, want 401", rec.Code)
	}
}

func TestServer_CreateKey_ListKeys(t *testing.T) {
	s, store := testServer(t)
	seedActor(t, store, 1, domain.RoleStandard)

	body := `{"name":"api-key","algorithm":"AES-256-CBC"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys", bytes.NewReader([]byte(body))), 1)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/keys = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created keyResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "api-key" {
		t.Errorf("name = %v, want api-key", created.Name)
	}

	listReq := withActor(httptest.NewRequest(http.MethodGet, "/v1/keys", nil), 1)
	listRec := httptest.NewRecorder()
	s.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("GET /v1/keys = %d", listRec.Code)
	}
	var out []keyResponse
	if err := json.NewDecoder(listRec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("len(out) = %d, want 1", len(out))
	}
}

func TestServer_Encrypt_Decrypt(t *testing.T) {
	s, store := testServer(t)
	seedActor(t, store, 1, domain.RoleStandard)

	createReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys", bytes.NewReader([]byte(`{"name":"enc-key","algorithm":"AES-256-CBC"}`))), 1)
	createRec := httptest.NewRecorder()
	s.ServeHTTP(createRec, createReq)
	var created keyResponse
	if err := json.NewDecoder(createRec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	encReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys/"+created.PublicID+"/encrypt", bytes.NewReader([]byte(`{"plaintext":"hello","resource_label":"doc-1"}`))), 1)
	encRec := httptest.NewRecorder()
	s.ServeHTTP(encRec, encReq)
	if encRec.Code != http.StatusOK {
		t.Fatalf("POST encrypt = %d: %s", encRec.Code, encRec.Body.String())
	}
	var encResp map[string]string
	if err := json.NewDecoder(encRec.Body).Decode(&encResp); err != nil {
		t.Fatalf("decode encrypt resp: %v", err)
	}
	if encResp["envelope"] == "" {
		t.Fatal("envelope missing")
	}

	decBody := `{"envelope":"` + encResp["envelope"] + `","resource_label":"doc-1"}`
	decReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys/"+created.PublicID+"/decrypt", bytes.NewReader([]byte(decBody))), 1)
	decRec := httptest.NewRecorder()
	s.ServeHTTP(decRec, decReq)
	if decRec.Code != http.StatusOK {
		t.Fatalf("POST decrypt = %d: %s", decRec.Code, decRec.Body.String())
	}
	var decResp map[string]string
	if err := json.NewDecoder(decRec.Body).Decode(&decResp); err != nil {
		t.Fatalf("decode decrypt resp: %v", err)
	}
	if decResp["plaintext"] != "hello" {
		t.Errorf("plaintext = %v, want hello", decResp["plaintext"])
	}
}

func TestServer_RevokeKey_NonOwnerForbidden(t *testing.T) {
	s, store := testServer(t)
	seedActor(t, store, 1, domain.RoleStandard)
	seedActor(t, store, 2, domain.RoleStandard)

	createReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys", bytes.NewReader([]byte(`{"name":"k","algorithm":"AES-256-CBC"}`))), 1)
	createRec := httptest.NewRecorder()
	s.ServeHTTP(createRec, createReq)
	var created keyResponse
	if err := json.NewDecoder(createRec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	revokeReq := withActor(httptest.NewRequest(http.MethodDelete, "/v1/keys/"+created.PublicID, nil), 2)
	revokeRec := httptest.NewRecorder()
	s.ServeHTTP(revokeRec, revokeReq)
	if revokeRec.Code != http.StatusForbidden {
		t.Errorf("DELETE by non-owner = %d, want 403: %s", revokeRec.Code, revokeRec.Body.String())
	}
}

func TestServer_BackupExportImport(t *testing.T) {
	s, store := testServer(t)
	seedActor(t, store, 1, domain.RoleStandard)
	seedActor(t, store, 2, domain.RoleStandard)

	createReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/keys", bytes.NewReader([]byte(`{"name":"k","algorithm":"AES-256-CBC"}`))), 1)
	createRec := httptest.NewRecorder()
	s.ServeHTTP(createRec, createReq)

	exportReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/backup/export", nil), 1)
	exportRec := httptest.NewRecorder()
	s.ServeHTTP(exportRec, exportReq)
	if exportRec.Code != http.StatusOK {
		t.Fatalf("POST backup/export = %d: %s", exportRec.Code, exportRec.Body.String())
	}
	var exportResp map[string]string
	if err := json.NewDecoder(exportRec.Body).Decode(&exportResp); err != nil {
		t.Fatalf("decode export: %v", err)
	}

	importBody := `{"artifact":` + jsonQuote(exportResp["artifact"]) + `}`
	importReq := withActor(httptest.NewRequest(http.MethodPost, "/v1/backup/import", bytes.NewReader([]byte(importBody))), 2)
	importRec := httptest.NewRecorder()
	s.ServeHTTP(importRec, importReq)
	if importRec.Code != http.StatusOK {
		t.Fatalf("POST backup/import = %d: %s", importRec.Code, importRec.Body.String())
	}
	var importResp map[string]int
	if err := json.NewDecoder(importRec.Body).Decode(&importResp); err != nil {
		t.Fatalf("decode import: %v", err)
	}
	if importResp["restored"] != 1 {
		t.Errorf("restored = %d, want 1", importResp["restored"])
	}
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
