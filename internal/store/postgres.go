package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresStore is a Store on a PostgreSQL schema. Tables are created on open.
type PostgresStore struct {
	db      *sql.DB
	classes string
	users   string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and prepares the tables in schema, "public" when empty.
func NewPostgresStore(ctx context.Context, dsn, schema string) (*PostgresStore, error) {
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, ErrStore.MsgErr("opening database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		return nil, ErrStore.MsgErr("connecting to database", err)
	}

	s := &PostgresStore{
		db:      db,
		classes: pq.QuoteIdentifier(schema) + ".classes",
		users:   pq.QuoteIdentifier(schema) + ".users",
	}
	if err := s.migrate(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context, schema string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(schema)),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				deleted_at TIMESTAMPTZ
			)`, s.classes),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				username TEXT NOT NULL,
				class_id BIGINT NOT NULL REFERENCES %s (id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				deleted_at TIMESTAMPTZ
			)`, s.users, s.classes),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("schema", schema).Msg("failed to create tables")
			return ErrStore.MsgErr("creating tables", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateClass(ctx context.Context, name string) (*Class, error) {
	if err := validateName("class name", name); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (name)
		VALUES ($1)
		RETURNING id, created_at;
	`, s.classes)

	c := Class{Name: name}
	err := s.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.Ctx(ctx).Info().Str("class", name).Msg("class already exists")
			return nil, ErrAlreadyExists.Msg(fmt.Sprintf("class %q already exists", name))
		}
		log.Ctx(ctx).Error().Err(err).Str("class", name).Msg("failed to insert class")
		return nil, ErrStore.Err(err)
	}
	return &c, nil
}

func (s *PostgresStore) GetClass(ctx context.Context, id int64) (*Class, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at, deleted_at
		FROM %s
		WHERE id = $1;
	`, s.classes)

	var (
		c       Class
		deleted sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound.Msg(fmt.Sprintf("class %d not found", id))
		}
		log.Ctx(ctx).Error().Err(err).Int64("class_id", id).Msg("failed to retrieve class")
		return nil, ErrStore.Err(err)
	}
	c.DeletedAt = nullTime(deleted)
	return &c, nil
}

func (s *PostgresStore) DeleteClass(ctx context.Context, id int64) error {
	return s.softDelete(ctx, s.classes, "class", id)
}

func (s *PostgresStore) CreateUser(ctx context.Context, username string, classID int64) (*User, error) {
	if err := validateName("username", username); err != nil {
		return nil, err
	}
	// deleted classes take no new users
	query := fmt.Sprintf(`
		INSERT INTO %s (username, class_id)
		SELECT $1, id FROM %s WHERE id = $2 AND deleted_at IS NULL
		RETURNING id, created_at;
	`, s.users, s.classes)

	u := User{Username: username, ClassID: classID}
	err := s.db.QueryRowContext(ctx, query, username, classID).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, sql.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation) {
			return nil, ErrInvalidInput.Msg(fmt.Sprintf("class %d does not exist", classID))
		}
		log.Ctx(ctx).Error().Err(err).Str("username", username).Msg("failed to insert user")
		return nil, ErrStore.Err(err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, class_id, created_at, deleted_at
		FROM %s
		WHERE id = $1;
	`, s.users)

	var (
		u       User
		deleted sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.ClassID, &u.CreatedAt, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound.Msg(fmt.Sprintf("user %d not found", id))
		}
		log.Ctx(ctx).Error().Err(err).Int64("user_id", id).Msg("failed to retrieve user")
		return nil, ErrStore.Err(err)
	}
	u.DeletedAt = nullTime(deleted)
	return &u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	return s.softDelete(ctx, s.users, "user", id)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) softDelete(ctx context.Context, table, kind string, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL;
	`, table)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("id", id).Msgf("failed to delete %s", kind)
		return ErrStore.Err(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ErrStore.Err(err)
	}
	if n == 0 {
		return ErrNotFound.Msg(fmt.Sprintf("%s %d not found", kind, id))
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
