// Package cli implements the membersearch command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/museum-members/member-registry-api/internal/domain"
	"github.com/museum-members/member-registry-api/internal/domain/ranking"
)

// memberRecord is the on-disk shape of a member in a --file export.
type memberRecord struct {
	MemberID  string  `json:"memberId"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	IsDeleted bool    `json:"isDeleted"`
}

type rankedRecord struct {
	Member memberRecord `json:"member"`
	Tier   string       `json:"tier"`
	Score  float64      `json:"score"`
}

type pageRecord struct {
	Content       []rankedRecord `json:"content"`
	PageNumber    int            `json:"pageNumber"`
	PageSize      int            `json:"pageSize"`
	TotalElements int            `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
}

type rankOptions struct {
	file   string
	query  string
	status string
	page   int
	size   int
}

// NewRankCmd creates the 'rank' command, which ranks an exported member list offline.
func NewRankCmd() *cobra.Command {
	var opts rankOptions

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank members from a JSON file against a query",
		Long: `Reads a JSON array of members and prints one page of ranked matches,
using the same tiers and ordering as GET /members/search.`,
		Example: `  membersearch rank --file members.json --query "anna"
  membersearch rank -f members.json -q schmidt --status all --page 1 --size 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, closeFn, err := openInput(cmd, opts.file)
			if err != nil {
				return err
			}
			defer closeFn()
			return runRank(in, cmd.OutOrStdout(), opts, cmd.Flags().Changed("query"))
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "JSON file of members (- for stdin)")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Search text")
	cmd.Flags().StringVar(&opts.status, "status", string(domain.ActiveStatusActive), "Member status filter: active, deleted or all")
	cmd.Flags().IntVar(&opts.page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&opts.size, "size", 20, "Page size")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open members file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runRank(in io.Reader, out io.Writer, opts rankOptions, hasQuery bool) error {
	var records []memberRecord
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("decode members: %w", err)
	}
	candidates := make([]domain.Member, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, domain.Member{
			ID:        domain.MemberID(r.MemberID),
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			IsDeleted: r.IsDeleted,
		})
	}

	status, err := domain.ParseActiveStatus(opts.status)
	if err != nil {
		return err
	}
	q := ranking.Query{
		Status:     status,
		PageNumber: opts.page,
		PageSize:   opts.size,
	}
	if hasQuery {
		text := opts.query
		q.Text = &text
	}

	page, err := ranking.Search(q, candidates)
	if err != nil {
		return err
	}

	rec := pageRecord{
		Content:       make([]rankedRecord, 0, len(page.Content)),
		PageNumber:    page.PageNumber,
		PageSize:      page.PageSize,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	}
	for _, res := range page.Content {
		rec.Content = append(rec.Content, rankedRecord{
			Member: memberRecord{
				MemberID:  string(res.Member.ID),
				Name:      res.Member.Name,
				Email:     res.Member.Email,
				Phone:     res.Member.Phone,
				IsDeleted: res.Member.IsDeleted,
			},
			Tier:  res.Tier.String(),
			Score: res.Score,
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
