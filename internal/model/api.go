package model

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Input size limits for a single analysis request. These keep one caller
// from pinning a CPU with an oversized record set.
const (
	MaxCustomers = 100_000
	MaxSales     = 1_000_000
	MaxExpenses  = 250_000
	MaxMarketing = 50_000
	MaxHistory   = 120
)

// ValidateAnalysisInput checks structural limits. Malformed individual
// records are not an error here; the pipeline skips and counts them.
func ValidateAnalysisInput(in AnalysisInput) error {
	switch {
	case len(in.Records.Customers) > MaxCustomers:
		return fmt.Errorf("records.customers exceeds maximum of %d", MaxCustomers)
	case len(in.Records.Sales) > MaxSales:
		return fmt.Errorf("records.sales exceeds maximum of %d", MaxSales)
	case len(in.Records.Expenses) > MaxExpenses:
		return fmt.Errorf("records.expenses exceeds maximum of %d", MaxExpenses)
	case len(in.Records.Marketing) > MaxMarketing:
		return fmt.Errorf("records.marketing exceeds maximum of %d", MaxMarketing)
	case len(in.History) > MaxHistory:
		return fmt.Errorf("history exceeds maximum of %d entries", MaxHistory)
	}
	for id := range in.Baseline {
		if !id.Valid() {
			return fmt.Errorf("baseline: unknown kpi %q", id)
		}
	}
	if in.Signals.MarketSize != nil && *in.Signals.MarketSize <= 0 {
		return fmt.Errorf("signals.market_size must be positive")
	}
	if es := in.Signals.EmployeeSatisfaction; es != nil && (*es < 0 || *es > 100) {
		return fmt.Errorf("signals.employee_satisfaction must be between 0 and 100")
	}
	return nil
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data    any          `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Meta    ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// Role is an API client's access level.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// RoleRank orders roles by privilege. Unknown roles rank below viewer.
func RoleRank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleAnalyst:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast reports whether r has at least the privileges of min.
func RoleAtLeast(r, min Role) bool {
	return RoleRank(r) >= RoleRank(min) && RoleRank(min) > 0
}

// APIClient is a caller identity that can exchange an API key for a token.
type APIClient struct {
	ID         uuid.UUID `json:"id"`
	ClientID   string    `json:"client_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

var clientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateClientID checks that id is 1-64 characters of letters, digits,
// dot, underscore or dash, starting with a letter or digit.
func ValidateClientID(id string) error {
	if !clientIDPattern.MatchString(id) {
		return fmt.Errorf("client_id must be 1-64 characters of [a-zA-Z0-9._-] starting with a letter or digit")
	}
	return nil
}

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	ClientID string `json:"client_id"`
	APIKey   string `json:"api_key"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateClientRequest is the request body for POST /v1/clients.
type CreateClientRequest struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// CreateClientResponse returns the generated API key exactly once.
type CreateClientResponse struct {
	Client APIClient `json:"client"`
	APIKey string    `json:"api_key"`
}

// KPIsResponse is the response for POST /v1/kpis.
type KPIsResponse struct {
	KPIs        []KPI       `json:"kpis"`
	DataQuality DataQuality `json:"data_quality"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	// Storage is the backend name ("postgres", "sqlite") or "none".
	Storage       string `json:"storage"`
	StorageStatus string `json:"storage_status"`
	Uptime        int64  `json:"uptime_seconds"`
}
