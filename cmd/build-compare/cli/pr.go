package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/davarch/build-compare/internal/infrastructure/gitrepo"
)

var prJSON bool

var prCmd = &cobra.Command{
	Use:   "pr [branch]",
	Short: "Show the active pull request for a branch (default: current git branch)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ref, err := a.pipeline("")
		if err != nil {
			return err
		}

		var branch string
		if len(args) == 1 {
			branch = args[0]
		} else if branch, err = gitrepo.CurrentBranch(ctx, ""); err != nil {
			return err
		}

		pr, ok, err := a.prs.ActiveForBranch(ctx, ref.RepositoryID, branch)
		if err != nil {
			return err
		}

		if prJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if !ok {
				return enc.Encode(nil)
			}
			return enc.Encode(pr)
		}

		if !ok {
			fmt.Printf("no active pull request for %s\n", branch)
			return nil
		}
		draft := ""
		if pr.IsDraft {
			draft = " [draft]"
		}
		fmt.Printf("PR %d%s: %s\n", pr.ID, draft, pr.Title)
		fmt.Printf("  %s -> %s\n", pr.SourceRef, pr.TargetRef)
		if pr.CreatedBy != "" {
			fmt.Printf("  by %s\n", pr.CreatedBy)
		}
		if pr.WebURL != "" {
			fmt.Printf("  %s\n", pr.WebURL)
		}
		return nil
	},
}

func init() {
	prCmd.Flags().BoolVar(&prJSON, "json", false, "print JSON")
	rootCmd.AddCommand(prCmd)
}
