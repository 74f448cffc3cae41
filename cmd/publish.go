package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"app-host/core/reconcile"
	"app-host/core/storage"
	"app-host/core/watcher"
	"app-host/feature/assets"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	publishPrune  bool
	publishDryRun bool
	publishYes    bool
	publishJSON   bool
)

// publishCmd uploads static handler files to the bucket.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish static assets to object storage",
	Long: `Uploads every file served by a static handler that is missing or changed in the bucket.

Examples:
  # Show what would change
  publish --dry-run

  # Upload and delete objects no handler serves, with confirmation
  publish --prune

  # Non-interactive
  publish --prune --yes`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishPrune, "prune", false, "delete bucket objects no static handler serves")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "plan only, no uploads or deletes")
	publishCmd.Flags().BoolVar(&publishYes, "yes", false, "auto-confirm pruning (non-interactive)")
	publishCmd.Flags().BoolVar(&publishJSON, "json", false, "print the plan as JSON")
	RootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, err := loadRuntime()
	if err != nil {
		return err
	}
	defer l.Sync()

	if !cfg.Storage.Enabled() {
		return fmt.Errorf("storage is not configured (set STORAGE_ENDPOINT)")
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	appCfg := cfg.App
	appCfg.Watch = false
	holder, err := watcher.New(appCfg, l)
	if err != nil {
		return err
	}

	svc := assets.NewService(client, cfg.Storage, holder, l)
	opts := reconcile.Options{Prune: publishPrune, DryRun: true}

	l.Info("Planning publish...")
	plan, err := svc.Plan(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to plan publish: %w", err)
	}
	printPublishReport(l, plan)

	if publishDryRun || len(plan.Actions) == 0 {
		if publishJSON {
			return writeJSON(cmd, plan)
		}
		l.Info("No changes were made.")
		return nil
	}

	if publishPrune && plan.Summary.Deletes > 0 && !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	opts.DryRun = false
	plan, executed, err := svc.Publish(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	l.Info("Successfully executed actions", zap.Int("count", executed))
	if publishJSON {
		return writeJSON(cmd, plan)
	}
	return nil
}

// printPublishReport prints a formatted plan summary using logger.
func printPublishReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary
	l.Info("Publish report",
		zap.Int("total_items", s.TotalItems),
		zap.Int("missing", s.Missing),
		zap.Int("extra", s.Extra),
		zap.Int("changed", s.Changed),
		zap.Int("uploads", s.Uploads),
		zap.Int("deletes", s.Deletes),
	)

	// Show sample of actions (max 5 for logger)
	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if publishYes {
		fmt.Println("\nAuto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\nType 'yes' to confirm deleting bucket objects: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
