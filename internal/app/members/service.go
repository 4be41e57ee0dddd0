package members

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
	clockport "github.com/museum-members/member-registry-api/internal/ports/out/clock"
	"github.com/museum-members/member-registry-api/internal/ports/out/memberrepo"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock
	log  *zap.Logger

	newMemberID func() domain.MemberID

	// DefaultPageSize applies when a search names no page size.
	DefaultPageSize int
	// MaxPageSize bounds the page size a caller may request.
	MaxPageSize int
}

func NewService(repo memberrepo.Repository, clk clockport.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo: repo,
		clk:  clk,
		log:  log,
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     MaxPageSize,
	}
}

func (s *Service) RegisterMember(ctx context.Context, in RegisterMemberInput) (domain.Member, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Member{}, validationError("name", "must be non-empty")
	}
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.Member{}, validationError("email", err.Error())
	}
	if err := s.ensureEmailUnique(ctx, email, ""); err != nil {
		return domain.Member{}, err
	}

	now := s.clk.Now()
	m := domain.Member{
		ID:        s.newMemberID(),
		Name:      name,
		Email:     email,
		Phone:     domain.NormalizeOptional(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrEmailInUse) {
			return domain.Member{}, emailInUseError()
		}
		return domain.Member{}, err
	}
	s.log.Info("member registered", zap.String("memberId", string(m.ID)))
	return m, nil
}

func (s *Service) GetMember(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, notFoundError()
		}
		return domain.Member{}, err
	}
	return m, nil
}

func (s *Service) ListMembers(ctx context.Context, status domain.ActiveStatus) ([]domain.Member, error) {
	if status == "" {
		status = domain.ActiveStatusActive
	}
	if !status.Valid() {
		return nil, validationError("status", "must be one of active, deleted, all")
	}
	return s.repo.List(ctx, status)
}

func (s *Service) UpdateMember(ctx context.Context, id domain.MemberID, in UpdateMemberInput) (domain.Member, error) {
	m, err := s.GetMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.Member{}, validationError("name", "cannot be null")
		}
		name := domain.NormalizeHumanName(in.Name.Value())
		if name == "" {
			return domain.Member{}, validationError("name", "must be non-empty")
		}
		m.Name = name
	}

	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			return domain.Member{}, validationError("email", "cannot be null")
		}
		email := strings.TrimSpace(in.Email.Value())
		if err := validateEmail(email); err != nil {
			return domain.Member{}, validationError("email", err.Error())
		}
		// Deleted members are outside the uniqueness population until restored.
		if !m.IsDeleted {
			if err := s.ensureEmailUnique(ctx, email, m.ID); err != nil {
				return domain.Member{}, err
			}
		}
		m.Email = email
	}

	if in.Phone.IsSpecified() {
		if in.Phone.IsNull() {
			m.Phone = nil
		} else {
			v := in.Phone.Value()
			m.Phone = domain.NormalizeOptional(&v)
		}
	}

	m.UpdatedAt = s.clk.Now()
	if err := s.save(ctx, m); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

// DeleteMember soft-deletes the member. Deleting an already deleted member is a no-op.
func (s *Service) DeleteMember(ctx context.Context, id domain.MemberID) error {
	m, err := s.GetMember(ctx, id)
	if err != nil {
		return err
	}
	if m.IsDeleted {
		return nil
	}
	m.IsDeleted = true
	m.UpdatedAt = s.clk.Now()
	if err := s.save(ctx, m); err != nil {
		return err
	}
	s.log.Info("member deleted", zap.String("memberId", string(m.ID)))
	return nil
}

// RestoreMember clears the soft-delete flag. It fails with 409 when another active member took the email meanwhile.
func (s *Service) RestoreMember(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.GetMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if !m.IsDeleted {
		return m, nil
	}
	if err := s.ensureEmailUnique(ctx, m.Email, m.ID); err != nil {
		return domain.Member{}, err
	}
	m.IsDeleted = false
	m.UpdatedAt = s.clk.Now()
	if err := s.save(ctx, m); err != nil {
		return domain.Member{}, err
	}
	s.log.Info("member restored", zap.String("memberId", string(m.ID)))
	return m, nil
}

// SearchMembers ranks members against the query and returns the requested page.
func (s *Service) SearchMembers(ctx context.Context, in SearchMembersInput) (ranking.Page, error) {
	q := ranking.Query{
		Status:   in.Status,
		PageSize: s.DefaultPageSize,
	}
	if in.Query.IsSpecified() && !in.Query.IsNull() {
		text := in.Query.Value()
		q.Text = &text
	}
	if q.Status == "" {
		q.Status = domain.ActiveStatusActive
	}
	if in.PageNumber != nil {
		q.PageNumber = *in.PageNumber
	}
	if in.PageSize != nil {
		q.PageSize = *in.PageSize
	}
	if s.MaxPageSize > 0 && q.PageSize > s.MaxPageSize {
		return ranking.Page{}, validationError("pageSize", "must be at most "+strconv.Itoa(s.MaxPageSize))
	}
	if err := q.Validate(); err != nil {
		return ranking.Page{}, mapRankingError(err)
	}

	start := time.Now()
	page, err := s.repo.SearchRanked(ctx, q)
	if err != nil {
		if errors.Is(err, ranking.ErrInvalidArgument) {
			return ranking.Page{}, mapRankingError(err)
		}
		s.log.Error("member search failed", zap.String("status", string(q.Status)), zap.Error(err))
		return ranking.Page{}, err
	}
	s.log.Debug("member search",
		zap.Int("queryLength", len([]rune(*q.Text))),
		zap.String("status", string(q.Status)),
		zap.Int("pageNumber", q.PageNumber),
		zap.Int("pageSize", q.PageSize),
		zap.Int("totalElements", page.TotalElements),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}

func (s *Service) save(ctx context.Context, m domain.Member) error {
	if err := s.repo.Update(ctx, m); err != nil {
		switch {
		case errors.Is(err, memberrepo.ErrNotFound):
			return notFoundError()
		case errors.Is(err, memberrepo.ErrEmailInUse):
			return emailInUseError()
		}
		return err
	}
	return nil
}

func mapRankingError(err error) error {
	var ae *ranking.ArgumentError
	if errors.As(err, &ae) {
		field := ae.Field
		if field == "query" {
			field = "q"
		}
		return validationError(field, ae.Reason)
	}
	return validationError("search", err.Error())
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func (s *Service) ensureEmailUnique(ctx context.Context, email string, exclude domain.MemberID) error {
	existing, err := s.repo.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil
		}
		return err
	}
	if exclude != "" && existing.ID == exclude {
		return nil
	}
	return emailInUseError()
}
