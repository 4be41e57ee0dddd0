package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	memclock "github.com/museum-members/member-registry-api/internal/adapters/memory/clock"
	memidempotency "github.com/museum-members/member-registry-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/museum-members/member-registry-api/internal/adapters/memory/memberrepo"
	"github.com/museum-members/member-registry-api/internal/app/members"
	"github.com/museum-members/member-registry-api/internal/platform/metrics"
)

func newTestServer(t *testing.T) (*Server, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	svc := members.NewService(memmemberrepo.NewRepo(), clk, nil)
	return NewServer(svc, memidempotency.NewStore(), metrics.New(), nil), clk
}

func newTestMemberRouter(t *testing.T) http.Handler {
	t.Helper()
	api, _ := newTestServer(t)
	return NewRouterWithOptions(api, RouterOptions{AuthMiddleware: NewDevAuthMiddleware("staff-1")})
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %T: %v body=%s", out, err, rec.Body.String())
	}
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, status, rec.Body.String())
	}
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("code: got %q want %q", er.Error.Code, code)
	}
	return er
}

func registerMember(t *testing.T, h http.Handler, name, email string) Member {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": name, "email": email})
	rec := do(t, h, http.MethodPost, "/members", string(body), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q: status %d body=%s", name, rec.Code, rec.Body.String())
	}
	return decode[MemberResponse](t, rec).Member
}

func TestMembers_RegisterThenGet(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	created := registerMember(t, h, "  Alice   Smith ", "alice@example.com")
	if created.Name != "Alice Smith" || created.IsDeleted {
		t.Fatalf("created=%+v", created)
	}
	if !created.Phone.IsNull() {
		t.Fatalf("phone should serialize as null")
	}

	rec := do(t, h, http.MethodGet, "/members/"+created.MemberId, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"phone":null`) {
		t.Fatalf("expected explicit null phone, body=%s", rec.Body.String())
	}
	got := decode[MemberResponse](t, rec).Member
	if got.MemberId != created.MemberId || got.Email != "alice@example.com" {
		t.Fatalf("got=%+v", got)
	}
}

func TestMembers_Register_Validation(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "blank name", body: `{"name":"  ","email":"a@example.com"}`},
		{name: "invalid email", body: `{"name":"A","email":"not-an-email"}`},
		{name: "wrong type", body: `{"name":7,"email":"a@example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/members", tt.body, nil)
			requireErrorCode(t, rec, http.StatusUnprocessableEntity, members.CodeValidation)
		})
	}
}

func TestMembers_Register_EmailInUse_409(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	registerMember(t, h, "Alice", "alice@example.com")
	rec := do(t, h, http.MethodPost, "/members", `{"name":"Alice Two","email":"ALICE@example.com"}`, nil)
	requireErrorCode(t, rec, http.StatusConflict, members.CodeEmailAlreadyInUse)
}

func TestMembers_GetMember_BadIDAndMissing(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	rec := do(t, h, http.MethodGet, "/members/not-a-uuid", "", nil)
	requireErrorCode(t, rec, http.StatusBadRequest, codeInvalidParameter)

	rec = do(t, h, http.MethodGet, "/members/6f1c9a0e-8a41-4d51-9f57-3f0e8f1d2a11", "", nil)
	requireErrorCode(t, rec, http.StatusNotFound, members.CodeMemberNotFound)
}

func TestMembers_Update_PatchSemantics(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	rec := do(t, h, http.MethodPost, "/members", `{"name":"Alice","email":"alice@example.com","phone":"030 1234"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[MemberResponse](t, rec).Member
	if v, err := created.Phone.Get(); err != nil || v != "030 1234" {
		t.Fatalf("phone=%v err=%v", v, err)
	}

	// Omitted fields are left alone; explicit null clears the phone.
	rec = do(t, h, http.MethodPatch, "/members/"+created.MemberId, `{"name":"Alice Smith","phone":null}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status %d body=%s", rec.Code, rec.Body.String())
	}
	updated := decode[MemberResponse](t, rec).Member
	if updated.Name != "Alice Smith" || updated.Email != "alice@example.com" || !updated.Phone.IsNull() {
		t.Fatalf("updated=%+v", updated)
	}

	rec = do(t, h, http.MethodPatch, "/members/"+created.MemberId, `{"name":null}`, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, members.CodeValidation)

	rec = do(t, h, http.MethodPatch, "/members/"+created.MemberId, `{"email":"nope"}`, nil)
	er := requireErrorCode(t, rec, http.StatusUnprocessableEntity, members.CodeValidation)
	details, err := er.Error.Details.Get()
	if err != nil {
		t.Fatalf("expected details: %v", err)
	}
	if _, ok := details["email"]; !ok {
		t.Fatalf("details=%v", details)
	}
}

func TestMembers_DeleteThenRestore(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	m := registerMember(t, h, "Alice", "alice@example.com")

	rec := do(t, h, http.MethodDelete, "/members/"+m.MemberId, "", nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete status %d body=%q", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodDelete, "/members/"+m.MemberId, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status %d", rec.Code)
	}

	list := decode[MemberListResponse](t, do(t, h, http.MethodGet, "/members", "", nil))
	if len(list.Members) != 0 {
		t.Fatalf("active list=%+v", list.Members)
	}
	list = decode[MemberListResponse](t, do(t, h, http.MethodGet, "/members?status=deleted", "", nil))
	if len(list.Members) != 1 || !list.Members[0].IsDeleted {
		t.Fatalf("deleted list=%+v", list.Members)
	}

	rec = do(t, h, http.MethodPost, "/members/"+m.MemberId+"/restore", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status %d body=%s", rec.Code, rec.Body.String())
	}
	if restored := decode[MemberResponse](t, rec).Member; restored.IsDeleted {
		t.Fatalf("restored=%+v", restored)
	}

	rec = do(t, h, http.MethodGet, "/members?status=archived", "", nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, members.CodeValidation)
}

func TestMembers_Search_RanksAndPaginates(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	registerMember(t, h, "Anna", "anna@example.com")
	registerMember(t, h, "Annabelle Weber", "belle@example.com")
	registerMember(t, h, "Marianna Roth", "roth@example.com")
	registerMember(t, h, "Bernd Mueller", "bernd@example.net")

	rec := do(t, h, http.MethodGet, "/members/search?q=anna", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	page := decode[SearchPage](t, rec)
	if page.TotalElements != 3 || page.TotalPages != 1 || page.PageNumber != 0 || page.PageSize != members.DefaultPageSize {
		t.Fatalf("page=%+v", page)
	}
	wantTiers := []string{"EXACT_MATCH", "PREFIX_MATCH", "SUBSTRING_MATCH"}
	wantNames := []string{"Anna", "Annabelle Weber", "Marianna Roth"}
	for i, res := range page.Content {
		if res.Tier != wantTiers[i] || res.Member.Name != wantNames[i] {
			t.Fatalf("content[%d]=%s/%s, want %s/%s", i, res.Tier, res.Member.Name, wantTiers[i], wantNames[i])
		}
	}

	page = decode[SearchPage](t, do(t, h, http.MethodGet, "/members/search?q=anna&page=1&size=2", "", nil))
	if len(page.Content) != 1 || page.Content[0].Member.Name != "Marianna Roth" || page.TotalPages != 2 {
		t.Fatalf("page 1=%+v", page)
	}

	// Past the last page is empty, not an error.
	page = decode[SearchPage](t, do(t, h, http.MethodGet, "/members/search?q=anna&page=9&size=2", "", nil))
	if len(page.Content) != 0 || page.TotalElements != 3 {
		t.Fatalf("page 9=%+v", page)
	}
}

func TestMembers_Search_ParameterErrors(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{name: "missing q", query: "", status: http.StatusUnprocessableEntity, code: members.CodeValidation},
		{name: "non-numeric page", query: "?q=a&page=two", status: http.StatusBadRequest, code: codeInvalidParameter},
		{name: "negative page", query: "?q=a&page=-1", status: http.StatusUnprocessableEntity, code: members.CodeValidation},
		{name: "zero size", query: "?q=a&size=0", status: http.StatusUnprocessableEntity, code: members.CodeValidation},
		{name: "size above max", query: "?q=a&size=101", status: http.StatusUnprocessableEntity, code: members.CodeValidation},
		{name: "unknown status", query: "?q=a&status=gone", status: http.StatusUnprocessableEntity, code: members.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/members/search"+tt.query, "", nil)
			requireErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestMembers_Register_IdempotentReplay(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)
	hdr := map[string]string{headerIdempotencyKey: "key-1"}

	first := do(t, h, http.MethodPost, "/members", `{"name":"Alice","email":"alice@example.com"}`, hdr)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status %d body=%s", first.Code, first.Body.String())
	}

	// Cosmetic differences still replay.
	second := do(t, h, http.MethodPost, "/members", `{"name":" Alice ","email":"Alice@Example.com"}`, hdr)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status %d body=%s", second.Code, second.Body.String())
	}
	if second.Header().Get(headerIdempotentReplayed) != "true" {
		t.Fatalf("expected %s header", headerIdempotentReplayed)
	}
	if decode[MemberResponse](t, first).Member.MemberId != decode[MemberResponse](t, second).Member.MemberId {
		t.Fatalf("replay returned a different member")
	}

	rec := do(t, h, http.MethodPost, "/members", `{"name":"Bob","email":"bob@example.com"}`, hdr)
	requireErrorCode(t, rec, http.StatusConflict, codeIdempotencyKeyReuse)

	// Keys are scoped per subject.
	other := map[string]string{headerIdempotencyKey: "key-1", "X-Debug-Subject": "staff-2"}
	rec = do(t, h, http.MethodPost, "/members", `{"name":"Bob","email":"bob@example.com"}`, other)
	if rec.Code != http.StatusCreated || rec.Header().Get(headerIdempotentReplayed) != "" {
		t.Fatalf("other subject status %d replayed=%q", rec.Code, rec.Header().Get(headerIdempotentReplayed))
	}
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	requireErrorCode(t, do(t, h, http.MethodGet, "/nope", "", nil), http.StatusNotFound, codeNotFound)
	requireErrorCode(t, do(t, h, http.MethodPut, "/members", "", nil), http.StatusMethodNotAllowed, codeMethodNotAllowed)
}

func TestRouter_MetricsRecordsSearches(t *testing.T) {
	t.Parallel()
	h := newTestMemberRouter(t)

	registerMember(t, h, "Anna", "anna@example.com")
	do(t, h, http.MethodGet, "/members/search?q=anna", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`member_registry_search_results_total{tier="EXACT_MATCH"} 1`,
		`route="/members/search"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}
