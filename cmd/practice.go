package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abhisek/anuvad/internal/client"
	"github.com/abhisek/anuvad/internal/ui/practice"
	"github.com/abhisek/anuvad/internal/ui/report"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practise translating sentences in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		level, _ := cmd.Flags().GetInt("level")
		if level < 1 || level > 5 {
			return fmt.Errorf("level must be between 1 and 5, got %d", level)
		}

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		return practice.Run(c, learnerID, level)
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show a learner's progress report",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		rep, err := c.Progress(ctx, learnerID)
		if err != nil {
			return err
		}
		fmt.Println(report.Render(*rep, terminalWidth()))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Grade a single Bengali/English pair without recording it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ban, _ := cmd.Flags().GetString("ban")
		eng, _ := cmd.Flags().GetString("eng")

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		res, err := c.Check(ctx, ban, eng)
		if err != nil {
			return err
		}

		fmt.Printf("Status:   %s\n", res.Status)
		fmt.Printf("Message:  %s\n", res.Message)
		if res.CorrectTranslation != "" {
			fmt.Printf("Correct:  %s\n", res.CorrectTranslation)
		}
		for _, f := range res.Errors {
			fmt.Printf("  - [%s] %s\n", f.Category, f.Detail)
		}
		if res.Why.IncorrectReason != "" {
			fmt.Printf("\nWhy:      %s\n", res.Why.IncorrectReason)
		}
		if res.Why.CorrectionExplanation != "" {
			fmt.Printf("Fix:      %s\n", res.Why.CorrectionExplanation)
		}
		return nil
	},
}

// connect builds an API client and refuses to talk to a server with a
// different major version.
func connect(cmd *cobra.Command) (*client.Client, error) {
	c := client.New(serverURL(cmd))

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	h, err := c.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("server unreachable at %s: %w", serverURL(cmd), err)
	}
	if err := client.CheckCompatible(version, h.Version); err != nil {
		return nil, err
	}
	return c, nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func init() {
	practiceCmd.Flags().StringP("learner", "l", "", "Learner ID (required)")
	practiceCmd.Flags().Int("level", 1, "Difficulty level 1-5")
	_ = practiceCmd.MarkFlagRequired("learner")

	progressCmd.Flags().StringP("learner", "l", "", "Learner ID (required)")
	_ = progressCmd.MarkFlagRequired("learner")

	checkCmd.Flags().String("ban", "", "Bengali sentence (required)")
	checkCmd.Flags().String("eng", "", "English translation (required)")
	_ = checkCmd.MarkFlagRequired("ban")
	_ = checkCmd.MarkFlagRequired("eng")
}
