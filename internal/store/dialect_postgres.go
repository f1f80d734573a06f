package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Rebind(query string) string { return query }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &paramBuilder{prefix: "$"}
}

func (d *PostgresDialect) InExpr(field string, pb ParamBuilder, values []int64) string {
	ph := pb.Add(values)
	return fmt.Sprintf("%s = ANY(%s)", field, ph)
}

func (d *PostgresDialect) SchemaSQL() string { return pgSchemaSQL }

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
	}
	return err
}

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         TEXT NOT NULL DEFAULT '',
    active        BOOLEAN NOT NULL DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token      TEXT NOT NULL UNIQUE,
    expires_at BIGINT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bots (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    bot_key    TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(user_id, name)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_bots_user_key ON bots(user_id, bot_key);

CREATE TABLE IF NOT EXISTS webhooks (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    bot_id      BIGINT NOT NULL REFERENCES bots(id) ON DELETE RESTRICT,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    target_url  TEXT NOT NULL,
    token       TEXT NOT NULL UNIQUE,
    filter      TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'enabled',
    created_at  TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payloads (
    id           BIGSERIAL PRIMARY KEY,
    webhook_id   BIGINT NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
    content_type TEXT NOT NULL DEFAULT 'text',
    content      TEXT NOT NULL,
    params       TEXT NOT NULL DEFAULT '',
    position     INT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payloads_webhook ON payloads(webhook_id, position);

CREATE TABLE IF NOT EXISTS templates (
    id           BIGSERIAL PRIMARY KEY,
    user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT 'text',
    content      TEXT NOT NULL,
    params       TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'private',
    created_at   TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_templates_status ON templates(status);

CREATE TABLE IF NOT EXISTS conditions (
    id          BIGSERIAL PRIMARY KEY,
    payload_id  BIGINT REFERENCES payloads(id) ON DELETE CASCADE,
    template_id BIGINT REFERENCES templates(id) ON DELETE CASCADE,
    field       TEXT NOT NULL,
    operator    TEXT NOT NULL,
    value       TEXT NOT NULL,
    position    INT NOT NULL DEFAULT 0,
    CHECK ((payload_id IS NULL) <> (template_id IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_conditions_payload ON conditions(payload_id, position);
CREATE INDEX IF NOT EXISTS idx_conditions_template ON conditions(template_id, position);

CREATE TABLE IF NOT EXISTS delivery_logs (
    id              BIGSERIAL PRIMARY KEY,
    webhook_id      BIGINT NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
    payload_id      BIGINT NOT NULL,
    url             TEXT NOT NULL,
    request_body    TEXT NOT NULL DEFAULT '',
    response_status INT NOT NULL DEFAULT 0,
    response_body   TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    attempt         INT NOT NULL DEFAULT 0,
    max_attempts    INT NOT NULL DEFAULT 3,
    next_retry_at   BIGINT,
    error           TEXT NOT NULL DEFAULT '',
    idempotency_key TEXT NOT NULL,
    created_at      TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_delivery_logs_webhook ON delivery_logs(webhook_id, id);
CREATE INDEX IF NOT EXISTS idx_delivery_logs_retry ON delivery_logs(next_retry_at) WHERE status = 'retrying';

CREATE TABLE IF NOT EXISTS trigger_events (
    id          BIGSERIAL PRIMARY KEY,
    webhook_id  BIGINT NOT NULL,
    payload_id  BIGINT NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trigger_events_webhook ON trigger_events(webhook_id, id);
CREATE INDEX IF NOT EXISTS idx_trigger_events_created ON trigger_events(created_at);
`

var _ Dialect = (*PostgresDialect)(nil)
