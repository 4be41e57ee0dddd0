package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/museum-members/member-registry-api/internal/adapters/postgres"
	"github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
// Records are scoped by the token issuer so that subjects from different issuers never collide.
type Store struct {
	db     postgres.DB
	issuer string
}

func NewStore(db postgres.DB, jwtIssuer string) *Store {
	return &Store{db: db, issuer: jwtIssuer}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.db == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	rec, err := scanRecord(s.db.QueryRow(ctx, `
		SELECT body_hash, status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject_iss = $2
		  AND subject_sub = $3
		  AND route = $4
	`,
		string(fp.Key),
		s.issuer,
		string(fp.Subject),
		fp.Route,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}
	return rec, true, nil
}

// PutIfAbsent inserts rec; on conflict the stored record is returned unchanged.
func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.db == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	ct, err := s.db.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			subject_iss,
			subject_sub,
			route,
			body_hash,
			status_code,
			content_type,
			body,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, route) DO NOTHING
	`,
		string(fp.Key),
		s.issuer,
		string(fp.Subject),
		fp.Route,
		rec.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		body,
		createdAt.UTC(),
	)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	if ct.RowsAffected() == 1 {
		rec.CreatedAt = createdAt.UTC()
		return rec, true, nil
	}

	existing, ok, err := s.Get(ctx, fp)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	if !ok {
		return idempotency.Record{}, false, errors.New("idempotency record vanished after conflict")
	}
	return existing, false, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (idempotency.Record, error) {
	var rec idempotency.Record
	if err := row.Scan(&rec.BodyHash, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		return idempotency.Record{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
