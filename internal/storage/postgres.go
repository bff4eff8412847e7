package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moosedocs/pkg/logger"

	_ "github.com/lib/pq"
)

// Postgres keeps every state key in a single key/value table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database and prepares the state table.
// The ping is retried a few times to ride out temporary DNS/network blips.
func OpenPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Sugar.Info("Successfully connected to the database")
	return p, nil
}

// NewPostgresWithDB wraps an existing connection, used by tests with sqlmock.
func NewPostgresWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS app_state (key TEXT PRIMARY KEY, value JSONB NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`)
	if err != nil {
		return fmt.Errorf("migrate app_state: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, "SELECT value FROM app_state WHERE key = $1", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load state key %s: %v", key, err)
		return nil, err
	}
	return value, nil
}

func (p *Postgres) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`, key, value)
	if err != nil {
		logger.Sugar.Errorf("Failed to save state key %s: %v", key, err)
	}
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM app_state WHERE key = $1", key)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete state key %s: %v", key, err)
	}
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
