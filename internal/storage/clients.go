package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/kenko/internal/model"
)

// CreateClient inserts an API client. A taken client_id yields ErrDuplicate.
func (db *DB) CreateClient(ctx context.Context, c model.APIClient) (model.APIClient, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO api_clients (id, client_id, name, role, api_key_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ClientID, c.Name, string(c.Role), c.APIKeyHash, c.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return model.APIClient{}, fmt.Errorf("storage: client %q: %w", c.ClientID, ErrDuplicate)
		}
		return model.APIClient{}, fmt.Errorf("storage: create client: %w", err)
	}
	return c, nil
}

// GetClientByClientID looks up a client by its public identifier.
func (db *DB) GetClientByClientID(ctx context.Context, clientID string) (model.APIClient, error) {
	var c model.APIClient
	var role string
	err := db.pool.QueryRow(ctx,
		`SELECT id, client_id, name, role, api_key_hash, created_at
		 FROM api_clients WHERE client_id = $1`,
		clientID,
	).Scan(&c.ID, &c.ClientID, &c.Name, &role, &c.APIKeyHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.APIClient{}, ErrNotFound
		}
		return model.APIClient{}, fmt.Errorf("storage: get client: %w", err)
	}
	c.Role = model.Role(role)
	return c, nil
}

// CountClients returns the number of registered clients.
func (db *DB) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM api_clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count clients: %w", err)
	}
	return n, nil
}
