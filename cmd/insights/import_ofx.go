package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/ofximport"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX statements into an account",
		Long: `Import bank or credit card statements exported as OFX or QFX.

Examples:
  insights import-ofx --user 3 --account 7 ~/Downloads/statement.qfx
  insights import-ofx --user 3 --account 7 --dry-run ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
	cmd.Flags().Int64("user", 0, "owner of the account")
	cmd.Flags().Int64("account", 0, "account to import into")
	cmd.Flags().BoolP("dry-run", "d", false, "parse and print without saving")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	accountID, _ := cmd.Flags().GetInt64("account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.Repo.GetAccount(ctx, userID, accountID); err != nil {
		return err
	}

	parser := ofximport.NewParser(a.Log)
	var all []models.Transaction
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		txns, err := parser.Parse(f, userID, accountID)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, txns...)
	}

	if dryRun {
		return printJSON(cmd, all)
	}
	if len(all) == 0 {
		a.Log.Warn("No transactions found")
		return nil
	}
	return a.Service.ImportTransactions(ctx, all)
}
