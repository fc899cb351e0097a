package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kenko/internal/auth"
	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/service/analysis"
	"github.com/ashita-ai/kenko/internal/storage"
)

// AdminClientID is the client_id that exchanges KENKO_ADMIN_API_KEY for an
// admin token. It cannot be registered as a regular client.
const AdminClientID = "admin"

// ClientStore persists API clients.
type ClientStore interface {
	CreateClient(ctx context.Context, c model.APIClient) (model.APIClient, error)
	GetClientByClientID(ctx context.Context, clientID string) (model.APIClient, error)
}

// StorageProbe reports backend health for GET /health.
type StorageProbe interface {
	Backend() string
	Ping(ctx context.Context) error
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	analysis    *analysis.Service
	clients     ClientStore
	storage     StorageProbe
	jwtMgr      *auth.JWTManager
	adminAPIKey string
	logger      *slog.Logger
	startedAt   time.Time
	version     string
	openapiSpec []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Clients, Storage, OpenAPISpec.
type HandlersDeps struct {
	Analysis    *analysis.Service
	Clients     ClientStore
	Storage     StorageProbe
	JWTMgr      *auth.JWTManager
	AdminAPIKey string
	Logger      *slog.Logger
	Version     string
	OpenAPISpec []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		analysis:    d.Analysis,
		clients:     d.Clients,
		storage:     d.Storage,
		jwtMgr:      d.JWTMgr,
		adminAPIKey: d.AdminAPIKey,
		logger:      d.Logger,
		startedAt:   time.Now(),
		version:     d.Version,
		openapiSpec: d.OpenAPISpec,
	}
}

// HandleAuthToken handles POST /auth/token.
// The admin client is checked against the configured key; everyone else
// against the stored Argon2id hash.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ClientID == "" || req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "client_id and api_key are required")
		return
	}

	client, ok := h.authenticate(r.Context(), req)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(client)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}
	h.logger.Info("token issued",
		"client_id", client.ClientID,
		"role", client.Role,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *Handlers) authenticate(ctx context.Context, req model.AuthTokenRequest) (model.APIClient, bool) {
	if req.ClientID == AdminClientID {
		if !auth.MatchAdminKey(req.APIKey, h.adminAPIKey) {
			return model.APIClient{}, false
		}
		return model.APIClient{ClientID: AdminClientID, Name: "Administrator", Role: model.RoleAdmin}, true
	}

	if h.clients == nil {
		auth.DummyVerify()
		return model.APIClient{}, false
	}
	client, err := h.clients.GetClientByClientID(ctx, req.ClientID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("auth: lookup client", "client_id", req.ClientID, "error", err)
		}
		auth.DummyVerify()
		return model.APIClient{}, false
	}
	valid, err := auth.VerifyAPIKey(req.APIKey, client.APIKeyHash)
	if err != nil || !valid {
		return model.APIClient{}, false
	}
	return client, true
}

// HandleCreateClient handles POST /v1/clients (admin-only).
func (h *Handlers) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	if h.clients == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError,
			"client registration requires a storage backend")
		return
	}

	var req model.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateClientID(req.ClientID); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if req.ClientID == AdminClientID || req.ClientID == anonymousClientID {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "client_id is reserved: "+req.ClientID)
		return
	}
	if req.Role == "" {
		req.Role = model.RoleViewer
	}
	if model.RoleRank(req.Role) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			fmt.Sprintf("role must be one of viewer, analyst, admin (got %q)", req.Role))
		return
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		h.writeInternalError(w, r, "failed to generate api key", err)
		return
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		h.writeInternalError(w, r, "failed to hash api key", err)
		return
	}

	client, err := h.clients.CreateClient(r.Context(), model.APIClient{
		ClientID:   req.ClientID,
		Name:       req.Name,
		Role:       req.Role,
		APIKeyHash: hash,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "client already exists: "+req.ClientID)
		return
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to create client", err)
		return
	}

	if claims := ClaimsFromContext(r.Context()); claims != nil {
		h.logger.Info("client created", "client_id", client.ClientID, "role", client.Role, "by", claims.ClientID)
	}
	writeJSON(w, r, http.StatusCreated, model.CreateClientResponse{Client: client, APIKey: key})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Storage:       "none",
		StorageStatus: "disabled",
		Uptime:        int64(time.Since(h.startedAt).Seconds()),
	}
	httpStatus := http.StatusOK

	if h.storage != nil {
		resp.Storage = h.storage.Backend()
		resp.StorageStatus = "connected"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.StorageStatus = "disconnected"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, r, httpStatus, resp)
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// --- Shared helpers ---

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxListOffset    = 100_000
)

func parseReportID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid report id: %q", raw)
	}
	return id, nil
}

// queryInt reads a non-negative integer query parameter. Missing values
// return defaultVal.
func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// pagination returns limit in [1, maxListLimit] and a bounded offset.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit", defaultListLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxListLimit {
		return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, min(offset, maxListOffset), nil
}
