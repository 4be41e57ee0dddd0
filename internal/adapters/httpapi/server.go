package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/museum-members/member-registry-api/internal/app/members"
	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
	"github.com/museum-members/member-registry-api/internal/platform/metrics"
	"github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
)

const routeRegisterMember = "POST /members"

// Server is the HTTP adapter over the members service.
type Server struct {
	Members *members.Service
	Idem    idempotency.Store
	Metrics *metrics.Metrics

	log *zap.Logger
}

func NewServer(membersSvc *members.Service, idem idempotency.Store, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Members: membersSvc,
		Idem:    idem,
		Metrics: m,
		log:     log,
	}
}

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	var statusParam *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &statusParam); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidParameter, "invalid status parameter", map[string]any{"status": err.Error()})
		return
	}
	status, ok := parseStatus(w, r, statusParam)
	if !ok {
		return
	}

	ms, err := s.Members.ListMembers(r.Context(), status)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, memberFromDomain(m))
	}
	writeJSON(w, http.StatusOK, MemberListResponse{Members: out})
}

func (s *Server) SearchMembers(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Q      *string
		Status *string
		Page   *int
		Size   *int
	}
	query := r.URL.Query()
	for name, dest := range map[string]any{
		"q":      &params.Q,
		"status": &params.Status,
		"page":   &params.Page,
		"size":   &params.Size,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			writeError(w, r, http.StatusBadRequest, codeInvalidParameter, "invalid "+name+" parameter", map[string]any{name: err.Error()})
			return
		}
	}
	status, ok := parseStatus(w, r, params.Status)
	if !ok {
		return
	}

	in := members.SearchMembersInput{
		Status:     status,
		PageNumber: params.Page,
		PageSize:   params.Size,
	}
	if params.Q != nil {
		in.Query = members.Some(*params.Q)
	}

	page, err := s.Members.SearchMembers(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.Metrics.RecordSearch(page)
	writeJSON(w, http.StatusOK, searchPageFromDomain(page))
}

func (s *Server) RegisterMember(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "unable to read request body", nil)
		return
	}
	var body RegisterMemberRequest
	if !decodeBody(w, r, raw, &body) {
		return
	}

	// Idempotency handling:
	// - replay if same actor+key+route+bodyHash
	// - reject if same actor+key+route with different bodyHash (409)
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	var (
		fp       idempotency.Fingerprint
		bodyHash string
	)
	if key != "" && s.Idem != nil {
		sub, _ := SubjectFromContext(r.Context())
		fp = idempotency.Fingerprint{Key: idempotency.Key(key), Subject: domain.SubjectID(sub), Route: routeRegisterMember}
		bodyHash = hashRegisterMemberBody(body)

		rec, found, err := s.Idem.Get(r.Context(), fp)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if found {
			s.replay(w, r, rec, bodyHash)
			return
		}
	}

	in := members.RegisterMemberInput{
		Name:  body.Name,
		Email: string(body.Email),
		Phone: body.Phone,
	}
	m, err := s.Members.RegisterMember(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	resp := MemberResponse{Member: memberFromDomain(m)}
	if bodyHash != "" {
		b, err := json.Marshal(resp)
		if err == nil {
			existing, stored, err := s.Idem.PutIfAbsent(r.Context(), fp, idempotency.Record{
				BodyHash:    bodyHash,
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
			switch {
			case err != nil:
				s.log.Warn("idempotency record not stored", zap.String("idempotencyKey", key), zap.Error(err))
			case !stored:
				// A concurrent request with the same key won; answer with its response.
				s.replay(w, r, existing, bodyHash)
				return
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := bindMemberID(w, r)
	if !ok {
		return
	}
	m, err := s.Members.GetMember(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberFromDomain(m)})
}

func (s *Server) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := bindMemberID(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "unable to read request body", nil)
		return
	}
	var body UpdateMemberRequest
	if !decodeBody(w, r, raw, &body) {
		return
	}

	m, err := s.Members.UpdateMember(r.Context(), id, updateMemberInputFromWire(body))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberFromDomain(m)})
}

func (s *Server) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := bindMemberID(w, r)
	if !ok {
		return
	}
	if err := s.Members.DeleteMember(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) RestoreMember(w http.ResponseWriter, r *http.Request) {
	id, ok := bindMemberID(w, r)
	if !ok {
		return
	}
	m, err := s.Members.RestoreMember(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Member: memberFromDomain(m)})
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, rec idempotency.Record, bodyHash string) {
	if rec.BodyHash != bodyHash {
		writeError(w, r, http.StatusConflict, codeIdempotencyKeyReuse, "idempotency key reuse with different payload", nil)
		return
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(headerIdempotentReplayed, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}

// --- binding helpers ---

func bindMemberID(w http.ResponseWriter, r *http.Request) (domain.MemberID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "memberId", chi.URLParam(r, "memberId"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidParameter, "invalid memberId parameter", map[string]any{"memberId": err.Error()})
		return "", false
	}
	return domain.MemberID(id.String()), true
}

func parseStatus(w http.ResponseWriter, r *http.Request, p *string) (domain.ActiveStatus, bool) {
	if p == nil {
		return domain.ActiveStatusActive, true
	}
	status, err := domain.ParseActiveStatus(*p)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "invalid status", map[string]any{"status": err.Error()})
		return "", false
	}
	return status, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, raw []byte, dst any) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "missing request body", nil)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		if errors.Is(err, openapi_types.ErrValidationEmail) {
			writeError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "invalid email", map[string]any{"email": err.Error()})
			return false
		}
		writeError(w, r, http.StatusUnprocessableEntity, members.CodeValidation, "invalid request body", map[string]any{"body": err.Error()})
		return false
	}
	return true
}

// --- mapping ---

func memberFromDomain(m domain.Member) Member {
	return Member{
		MemberId:  string(m.ID),
		Name:      m.Name,
		Email:     m.Email,
		Phone:     nullableString(m.Phone),
		IsDeleted: m.IsDeleted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func searchPageFromDomain(p ranking.Page) SearchPage {
	out := SearchPage{
		Content:       make([]SearchResult, 0, len(p.Content)),
		PageNumber:    p.PageNumber,
		PageSize:      p.PageSize,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
	for _, res := range p.Content {
		out.Content = append(out.Content, SearchResult{
			Member: memberFromDomain(res.Member),
			Tier:   res.Tier.String(),
			Score:  res.Score,
		})
	}
	return out
}

func nullableString(p *string) nullable.Nullable[string] {
	if p == nil {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(*p)
}

func updateMemberInputFromWire(b UpdateMemberRequest) members.UpdateMemberInput {
	in := members.UpdateMemberInput{
		Name:  optionalFromNullable(b.Name),
		Phone: optionalFromNullable(b.Phone),
	}
	switch {
	case !b.Email.IsSpecified():
	case b.Email.IsNull():
		in.Email = members.Null[string]()
	default:
		v, _ := b.Email.Get()
		in.Email = members.Some(string(v))
	}
	return in
}

func optionalFromNullable(n nullable.Nullable[string]) members.Optional[string] {
	if !n.IsSpecified() {
		return members.Unspecified[string]()
	}
	if n.IsNull() {
		return members.Null[string]()
	}
	v, err := n.Get()
	if err != nil {
		return members.Unspecified[string]()
	}
	return members.Some(v)
}

// hashRegisterMemberBody hashes the normalized payload so that cosmetic differences still replay.
func hashRegisterMemberBody(b RegisterMemberRequest) string {
	canon := struct {
		Name  string  `json:"name"`
		Email string  `json:"email"`
		Phone *string `json:"phone,omitempty"`
	}{
		Name:  domain.NormalizeHumanName(b.Name),
		Email: strings.ToLower(strings.TrimSpace(string(b.Email))),
		Phone: domain.NormalizeOptional(b.Phone),
	}
	buf, _ := json.Marshal(canon)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
