package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Wire types for the member registry API.

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type Member struct {
	MemberId  string                    `json:"memberId"`
	Name      string                    `json:"name"`
	Email     string                    `json:"email"`
	Phone     nullable.Nullable[string] `json:"phone"`
	IsDeleted bool                      `json:"isDeleted"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

type MemberResponse struct {
	Member Member `json:"member"`
}

type MemberListResponse struct {
	Members []Member `json:"members"`
}

type RegisterMemberRequest struct {
	Name  string              `json:"name"`
	Email openapi_types.Email `json:"email"`
	Phone *string             `json:"phone,omitempty"`
}

// UpdateMemberRequest distinguishes omitted fields from explicit nulls.
type UpdateMemberRequest struct {
	Name  nullable.Nullable[string]              `json:"name,omitempty"`
	Email nullable.Nullable[openapi_types.Email] `json:"email,omitempty"`
	Phone nullable.Nullable[string]              `json:"phone,omitempty"`
}

type SearchResult struct {
	Member Member  `json:"member"`
	Tier   string  `json:"tier"`
	Score  float64 `json:"score"`
}

type SearchPage struct {
	Content       []SearchResult `json:"content"`
	PageNumber    int            `json:"pageNumber"`
	PageSize      int            `json:"pageSize"`
	TotalElements int            `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
}
