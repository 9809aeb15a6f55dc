package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/shoalcreek/privacycore/internal/auth"
	"github.com/shoalcreek/privacycore/internal/core"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/metrics"
	"github.com/shoalcreek/privacycore/internal/storage"
)

// Server is the HTTP transport over a Core. It never makes an
// authorization decision itself — it resolves the caller's domain.Actor
// from the actors table and passes it straight to Core, which applies
// policy before touching the registry or engine.
type Server struct {
	core      *core.Core
	actors    *storage.ActorRepo
	logger    *log.Logger
	jwtSecret []byte
}

// NewServer creates an API server. jwtSecret is optional; when non-empty,
// /v1/* requires a Bearer JWT.
func NewServer(c *core.Core, actors *storage.ActorRepo, logger *log.Logger, jwtSecret []byte) *Server {
	return &Server{core: c, actors: actors, logger: logger, jwtSecret: jwtSecret}
}

// Handler returns the HTTP handler, wrapped with JWT auth when jwtSecret is set.
func (s *Server) Handler() http.Handler {
	h := http.HandlerFunc(s.ServeHTTP)
	return auth.Middleware(s.jwtSecret)(h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	parts := splitPath(strings.Trim(r.URL.Path, "/"))
	if len(parts) == 0 || parts[0] != "v1" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	actor, err := s.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "keys" && r.Method == http.MethodPost:
		s.handleCreateKey(w, r, actor)
	case len(parts) == 2 && parts[1] == "keys" && r.Method == http.MethodGet:
		s.handleListKeys(w, r, actor)
	case len(parts) == 3 && parts[1] == "keys" && parts[2] != "" && r.Method == http.MethodDelete:
		s.handleRevokeKey(w, r, actor, parts[2])
	case len(parts) == 4 && parts[1] == "keys" && parts[3] == "encrypt" && r.Method == http.MethodPost:
		s.handleEncrypt(w, r, actor, parts[2])
	case len(parts) == 4 && parts[1] == "keys" && parts[3] == "decrypt" && r.Method == http.MethodPost:
		s.handleDecrypt(w, r, actor, parts[2])
	case len(parts) == 3 && parts[1] == "backup" && parts[2] == "export" && r.Method == http.MethodPost:
		s.handleExportBackup(w, r, actor)
	case len(parts) == 3 && parts[1] == "backup" && parts[2] == "import" && r.Method == http.MethodPost:
		s.handleImportBackup(w, r, actor)
	case len(parts) == 2 && parts[1] == "operations" && r.Method == http.MethodGet:
		s.handleListOperations(w, r, actor)
	case len(parts) == 2 && parts[1] == "audit" && r.Method == http.MethodGet:
		s.handleQueryAudit(w, r, actor)
	case len(parts) == 2 && parts[1] == "alerts" && r.Method == http.MethodGet:
		s.handleSecurityAlerts(w, r, actor)
	case len(parts) == 3 && parts[1] == "alerts" && parts[2] == "clear" && r.Method == http.MethodPost:
		s.handleClearAlerts(w, r, actor)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// resolveActor loads the caller's authoritative role and status from the
// actors table, keyed by the identity the JWT established. It never trusts
// a role carried in the token itself.
func (s *Server) resolveActor(r *http.Request) (domain.Actor, error) {
	id, ok := auth.ActorIDFromContext(r.Context())
	if !ok {
		return domain.Actor{}, errors.New("not authenticated")
	}
	a, err := s.actors.Get(r.Context(), id)
	if err != nil {
		return domain.Actor{}, err
	}
	return *a, nil
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req CreateKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateKeyName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := s.core.CreateKey(r.Context(), actor, req.Name, domain.Algorithm(req.Algorithm), req.ExpiresAt)
	observeOperation("create_key", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, keyResponseFrom(key))
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	keys, err := s.core.ListKeys(r.Context(), actor)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResponseFrom(k))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request, actor domain.Actor, publicID string) {
	err := s.core.RevokeKey(r.Context(), actor, publicID)
	observeOperation("revoke_key", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "public_id": publicID})
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request, actor domain.Actor, publicID string) {
	var req EncryptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plaintext, err := decodePlaintext(req.Plaintext, req.PlaintextB64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidatePayloadSize(plaintext); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	envelope, err := s.core.Encrypt(r.Context(), actor, publicID, plaintext, req.ResourceLabel)
	observeOperation("encrypt", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"envelope": envelope})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request, actor domain.Actor, publicID string) {
	var req DecryptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Envelope == "" {
		writeError(w, http.StatusBadRequest, "envelope required")
		return
	}
	plaintext, err := s.core.Decrypt(r.Context(), actor, publicID, req.Envelope, req.ResourceLabel)
	observeOperation("decrypt", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	resp := map[string]any{"plaintext_b64": encodeB64(plaintext)}
	if isValidUTF8(plaintext) {
		resp["plaintext"] = string(plaintext)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	artifact, err := s.core.ExportBackup(r.Context(), actor)
	observeOperation("export_backup", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"artifact": artifact})
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req ImportBackupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Artifact) > MaxArtifactLen {
		writeError(w, http.StatusBadRequest, "artifact too large")
		return
	}
	restored, err := s.core.ImportBackup(r.Context(), actor, req.Artifact)
	observeOperation("import_backup", err)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"restored": restored})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	limit, offset := pageParams(r)
	ops, err := s.core.ListOperations(r.Context(), actor, limit, offset)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) handleQueryAudit(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	limit, offset := pageParams(r)
	filter := domain.AuditFilter{}
	if v := r.URL.Query().Get("actor"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid actor")
			return
		}
		filter.Actor = &id
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := domain.AuditAction(v)
		filter.Action = &action
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.AuditStatus(v)
		filter.Status = &status
	}
	records, total, err := s.core.QueryAudit(r.Context(), actor, filter, limit, offset)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "total": total})
}

func (s *Server) handleSecurityAlerts(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	limit, offset := pageParams(r)
	var forActor *int64
	if v := r.URL.Query().Get("actor"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid actor")
			return
		}
		forActor = &id
	}
	alerts, err := s.core.SecurityAlerts(r.Context(), actor, forActor, limit, offset)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	if err := s.core.ClearAlerts(r.Context(), actor); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func observeOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.OperationsTotal.WithLabelValues(operation, status).Inc()
}

func keyResponseFrom(k domain.KeyRecord) keyResponse {
	return keyResponse{
		PublicID:  k.PublicID,
		Name:      k.Name,
		Algorithm: string(k.Algorithm),
		Status:    string(k.Status),
		CreatedAt: k.CreatedAt,
		ExpiresAt: k.ExpiresAt,
		LastUsed:  k.LastUsedAt,
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = clampLimit(atoiOr(r.URL.Query().Get("limit"), 0))
	offset = atoiOr(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("invalid json payload")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && err != http.ErrHandlerTimeout {
		if status < 500 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeCoreError maps a Core error to an HTTP status. Authentication,
// authorization, unknown-key, key-state, cryptographic and input errors
// carry their own message; everything else collapses to a generic message
// so internal detail stays in the audit trail, not the response body.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrKeyUnknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBadAlgorithm),
		errors.Is(err, domain.ErrInputTooLarge),
		errors.Is(err, domain.ErrMalformedEnvelope),
		errors.Is(err, domain.ErrMalformedBackup),
		errors.Is(err, domain.ErrKeyNotActive),
		errors.Is(err, domain.ErrNothingToBackUp),
		errors.Is(err, domain.ErrBadKey),
		errors.Is(err, domain.ErrBadPadding),
		errors.Is(err, domain.ErrBadSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
