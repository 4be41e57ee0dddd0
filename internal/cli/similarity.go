package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/museum-members/member-registry-api/internal/domain/ranking"
)

// NewSimilarityCmd creates the 'similarity' command.
func NewSimilarityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "similarity A B",
		Short: "Print the trigram similarity of two strings",
		Long: `Prints the case-insensitive trigram similarity of A and B, in [0, 1].
Values above 0.3 count as a fuzzy match in search.`,
		Example: `  membersearch similarity "Anna Schmidt" "Anna Schmid"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ranking.Similarity(args[0], args[1])
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", s)
			return err
		},
	}
}
