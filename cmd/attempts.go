package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/anuvad/internal/store"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List graded attempts from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		learnerID, _ := cmd.Flags().GetString("learner")

		s, err := openStoreFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.QueryAttempts(cmd.Context(), store.QueryOpts{Limit: limit, LearnerID: learnerID})
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No attempts recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-12s  %-3s  %-22s  %-4s  %s\n",
			"ID", "Graded", "Learner", "Lvl", "Type", "Prog", "OK")
		fmt.Println(strings.Repeat("─", 80))
		for _, r := range recs {
			ok := "✓"
			if !r.Correct {
				ok = "✗"
			}
			fmt.Printf("%-5d  %-19s  %-12s  %-3d  %-22s  %-4d  %s\n",
				r.ID,
				r.GradedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(r.LearnerID, 12),
				r.Level,
				truncate(r.SentenceType, 22),
				r.ProgressAfter,
				ok,
			)
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Printf("       %s\n       → %s\n", r.Sentence, r.Translation)
				if !r.Correct && r.CorrectTranslation != "" {
					fmt.Printf("       ✓ %s\n", r.CorrectTranslation)
				}
			}
		}
		return nil
	},
}

func init() {
	attemptsCmd.Flags().IntP("limit", "n", 20, "Number of attempts to show")
	attemptsCmd.Flags().StringP("learner", "l", "", "Filter by learner ID")
	attemptsCmd.Flags().BoolP("verbose", "v", false, "Show sentences and translations")
}
