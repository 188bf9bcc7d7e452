package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostgresClient(ctx context.Context, connString string, log zerolog.Logger) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool, log: log.With().Str("component", "postgres").Logger()}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	client.log.Info().Msg("database ready")

	return client, nil
}

// Execer is the part of a pool that migrations need
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
	{"intake_forms", `
		CREATE TABLE IF NOT EXISTS intake_forms (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			project VARCHAR(255) NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			school VARCHAR(255) NOT NULL DEFAULT '',
			teacher VARCHAR(255) NOT NULL DEFAULT '',
			grade VARCHAR(100) NOT NULL DEFAULT '',
			subject VARCHAR(255) NOT NULL DEFAULT '',
			lesson_titles TEXT NOT NULL DEFAULT '',
			lesson_references TEXT NOT NULL DEFAULT '',
			whatsapp_message_id VARCHAR(255) UNIQUE NOT NULL,
			whatsapp_from VARCHAR(50) NOT NULL,
			whatsapp_timestamp TIMESTAMP NOT NULL,
			group_id VARCHAR(255) NOT NULL DEFAULT '',
			group_name VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'new',
			raw_message TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
	{"intake_forms_idx", `
		CREATE INDEX IF NOT EXISTS idx_intake_forms_created_at ON intake_forms (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_intake_forms_status ON intake_forms (status);`},
	{"message_logs", `
		CREATE TABLE IF NOT EXISTS message_logs (
			id BIGSERIAL PRIMARY KEY,
			message_id VARCHAR(255) UNIQUE NOT NULL,
			from_number VARCHAR(50) NOT NULL,
			from_name VARCHAR(255) NOT NULL DEFAULT '',
			timestamp TIMESTAMP NOT NULL,
			is_group_message BOOLEAN NOT NULL DEFAULT FALSE,
			group_id VARCHAR(255) NOT NULL DEFAULT '',
			group_name VARCHAR(255) NOT NULL DEFAULT '',
			message_type VARCHAR(20) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			was_processed BOOLEAN NOT NULL DEFAULT FALSE,
			intake_form_id BIGINT REFERENCES intake_forms(id) ON DELETE SET NULL,
			processing_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
	{"message_logs_idx", `
		CREATE INDEX IF NOT EXISTS idx_message_logs_timestamp ON message_logs (timestamp DESC);`},
	{"whatsapp_groups", `
		CREATE TABLE IF NOT EXISTS whatsapp_groups (
			id BIGSERIAL PRIMARY KEY,
			group_id VARCHAR(255) UNIQUE NOT NULL,
			group_name VARCHAR(255) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			auto_reply BOOLEAN NOT NULL DEFAULT TRUE,
			require_all_fields BOOLEAN NOT NULL DEFAULT FALSE,
			total_forms_received INT NOT NULL DEFAULT 0,
			last_message_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
	{"bot_responses", `
		CREATE TABLE IF NOT EXISTS bot_responses (
			id BIGSERIAL PRIMARY KEY,
			trigger VARCHAR(50) UNIQUE NOT NULL,
			message_template TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
}

// Migrate creates every table the service needs. It is safe to run on every start.
func Migrate(ctx context.Context, db Execer) error {
	for _, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("create %s: %w", m.name, err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
