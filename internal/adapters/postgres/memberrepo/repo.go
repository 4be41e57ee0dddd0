package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/museum-members/member-registry-api/internal/adapters/postgres"
	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
	"github.com/museum-members/member-registry-api/internal/ports/out/memberrepo"
)

const (
	constraintExternalID  = "members_external_id_unique"
	constraintActiveEmail = "members_active_email_unique"
)

const selectMember = `
	SELECT
		m.external_id,
		m.name,
		m.email,
		m.phone,
		m.is_deleted,
		m.created_at,
		m.updated_at
	FROM members m
`

// rankedMembers classifies every member passing the status filter ($2) against the query ($1).
// tier is NULL when no field reaches any tier; the empty query never matches.
// score is the best similarity over all fields and may come from a different field than tier.
// similarity() returns real, so the threshold is real too; a numeric 0.3 would let 3/10 through.
const rankedMembers = `
	SELECT
		m.external_id,
		m.name,
		m.email,
		m.phone,
		m.is_deleted,
		m.created_at,
		m.updated_at,
		CASE
			WHEN $1::text = '' THEN NULL
			WHEN lower(m.name) = lower($1::text)
			  OR lower(m.email) = lower($1::text)
			  OR lower(m.phone) = lower($1::text) THEN 1
			WHEN starts_with(lower(m.name), lower($1::text))
			  OR starts_with(lower(m.email), lower($1::text))
			  OR starts_with(lower(m.phone), lower($1::text)) THEN 2
			WHEN strpos(lower(m.name), lower($1::text)) > 0
			  OR strpos(lower(m.email), lower($1::text)) > 0
			  OR strpos(lower(m.phone), lower($1::text)) > 0 THEN 3
			WHEN GREATEST(similarity(m.name, $1::text), similarity(m.email, $1::text), similarity(m.phone, $1::text)) > 0.3::real THEN 4
		END AS tier,
		GREATEST(similarity(m.name, $1::text), similarity(m.email, $1::text), similarity(m.phone, $1::text)) AS score
	FROM members m
	WHERE ($2::text = 'all' OR m.is_deleted = ($2::text = 'deleted'))
`

const searchRankedPage = `
	SELECT external_id, name, email, phone, is_deleted, created_at, updated_at, tier, score
	FROM (` + rankedMembers + `) ranked
	WHERE tier IS NOT NULL
	ORDER BY tier ASC, score DESC, name COLLATE "C" ASC, external_id ASC
	LIMIT $3 OFFSET $4
`

const countRanked = `
	SELECT count(*)
	FROM (` + rankedMembers + `) ranked
	WHERE tier IS NOT NULL
`

// Repo is a Postgres implementation of memberrepo.Repository.
// Ranked search is pushed down to pg_trgm.
type Repo struct {
	db postgres.DB
}

func NewRepo(db postgres.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO members (
			external_id,
			name,
			email,
			phone,
			is_deleted,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		m.Name,
		m.Email,
		m.Phone,
		m.IsDeleted,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m domain.Member) error {
	if r.db == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	ct, err := r.db.Exec(ctx, `
		UPDATE members
		SET name = $2,
		    email = $3,
		    phone = $4,
		    is_deleted = $5,
		    updated_at = $6
		WHERE external_id = $1
	`,
		id,
		m.Name,
		m.Email,
		m.Phone,
		m.IsDeleted,
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	if r.db == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.db.QueryRow(ctx, selectMember+`WHERE m.external_id = $1`, uid))
}

func (r *Repo) FindActiveByEmail(ctx context.Context, email string) (domain.Member, error) {
	if r.db == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	return scanMember(r.db.QueryRow(ctx, selectMember+`WHERE lower(m.email) = lower($1) AND NOT m.is_deleted`, email))
}

func (r *Repo) List(ctx context.Context, status domain.ActiveStatus) ([]domain.Member, error) {
	if r.db == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.db.Query(ctx, selectMember+`
		WHERE ($1::text = 'all' OR m.is_deleted = ($1::text = 'deleted'))
		ORDER BY lower(m.name) ASC, m.external_id ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// snapshotTx makes the page and its count read the same snapshot.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// SearchRanked runs the page query and its count twin in one read-only snapshot,
// so totalElements always agrees with the content under concurrent writes.
// Either failure fails the whole search.
func (r *Repo) SearchRanked(ctx context.Context, q ranking.Query) (ranking.Page, error) {
	if r.db == nil {
		return ranking.Page{}, errors.New("nil postgres pool")
	}
	if err := q.Validate(); err != nil {
		return ranking.Page{}, err
	}

	tx, err := r.db.BeginTx(ctx, snapshotTx)
	if err != nil {
		return ranking.Page{}, fmt.Errorf("search members: begin: %w", err)
	}
	page, err := searchRankedTx(ctx, tx, q)
	if err != nil {
		_ = tx.Rollback(ctx)
		return ranking.Page{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ranking.Page{}, fmt.Errorf("search members: commit: %w", err)
	}
	return page, nil
}

func searchRankedTx(ctx context.Context, tx pgx.Tx, q ranking.Query) (ranking.Page, error) {
	rows, err := tx.Query(ctx, searchRankedPage, *q.Text, string(q.Status), q.PageSize, q.Offset())
	if err != nil {
		return ranking.Page{}, fmt.Errorf("search members: %w", err)
	}
	content := make([]ranking.Result, 0, q.PageSize)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			rows.Close()
			return ranking.Page{}, err
		}
		content = append(content, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ranking.Page{}, fmt.Errorf("search members: %w", err)
	}

	var total int64
	if err := tx.QueryRow(ctx, countRanked, *q.Text, string(q.Status)).Scan(&total); err != nil {
		return ranking.Page{}, fmt.Errorf("count members: %w", err)
	}
	return ranking.NewPage(content, q.PageNumber, q.PageSize, int(total)), nil
}

// --- helpers ---

func mapWriteError(err error) error {
	switch {
	case postgres.IsUniqueViolation(err, constraintExternalID):
		return memberrepo.ErrAlreadyExists
	case postgres.IsUniqueViolation(err, constraintActiveEmail):
		return memberrepo.ErrEmailInUse
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var (
		externalID uuid.UUID
		m          domain.Member
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(
		&externalID,
		&m.Name,
		&m.Email,
		&m.Phone,
		&m.IsDeleted,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Member{}, memberrepo.ErrNotFound
		}
		return domain.Member{}, err
	}
	m.ID = domain.MemberID(externalID.String())
	m.CreatedAt = createdAt.UTC()
	m.UpdatedAt = updatedAt.UTC()
	return m, nil
}

func scanResult(row scanner) (ranking.Result, error) {
	var (
		externalID uuid.UUID
		res        ranking.Result
		createdAt  time.Time
		updatedAt  time.Time
		tier       int32
		score      float64
	)
	if err := row.Scan(
		&externalID,
		&res.Member.Name,
		&res.Member.Email,
		&res.Member.Phone,
		&res.Member.IsDeleted,
		&createdAt,
		&updatedAt,
		&tier,
		&score,
	); err != nil {
		return ranking.Result{}, err
	}
	res.Member.ID = domain.MemberID(externalID.String())
	res.Member.CreatedAt = createdAt.UTC()
	res.Member.UpdatedAt = updatedAt.UTC()
	res.Tier = ranking.Tier(tier)
	res.Score = score
	if !res.Tier.Valid() {
		return ranking.Result{}, fmt.Errorf("search members: unexpected tier %d", tier)
	}
	return res, nil
}
