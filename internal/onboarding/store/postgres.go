package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/sentinel"
	"satnam/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is a seam for tests that run without a database.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate onboarding schema: %w", err)
	}
	return nil
}

// OpenPostgres opens a pgx-backed database/sql pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Postgres keeps the session document as JSONB with the columns needed
// for lookups broken out.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn joins the transaction on ctx when there is one.
func (s *Postgres) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const (
	insertSession = `
INSERT INTO onboarding_sessions (id, coordinator_user_id, mode, status, document, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

	selectSession = `SELECT document FROM onboarding_sessions WHERE id = $1`

	lockSession = `SELECT status FROM onboarding_sessions WHERE id = $1 FOR UPDATE`

	updateSession = `
UPDATE onboarding_sessions
SET status = $2, document = $3, updated_at = $4
WHERE id = $1`

	selectResumable = `
SELECT document FROM onboarding_sessions
WHERE coordinator_user_id = $1 AND status = ANY($2)
ORDER BY updated_at DESC`
)

var resumableStatuses = []string{string(models.SessionActive), string(models.SessionPaused)}

func (s *Postgres) Create(ctx context.Context, session *models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, insertSession,
		session.ID.String(),
		session.CoordinatorUserID.String(),
		string(session.Mode),
		string(session.Status),
		doc,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	var doc []byte
	err := s.conn(ctx).QueryRowContext(ctx, selectSession, sessionID.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return decodeSession(doc)
}

// Save locks the row so a session finished by another process is never
// overwritten.
func (s *Postgres) Save(ctx context.Context, session *models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		var status string
		err := s.conn(ctx).QueryRowContext(ctx, lockSession, session.ID.String()).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if models.SessionStatus(status).IsTerminal() {
			return sentinel.ErrConflict
		}
		if _, err := s.conn(ctx).ExecContext(ctx, updateSession,
			session.ID.String(),
			string(session.Status),
			doc,
			session.UpdatedAt,
		); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

func (s *Postgres) ListResumable(ctx context.Context, coordinator id.UserID) ([]*models.Session, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, selectResumable, coordinator.String(), pq.Array(resumableStatuses))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func decodeSession(doc []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
