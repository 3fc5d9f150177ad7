package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/config"
	"dycrawler/pkg/logger"
)

// checkpointsCmd represents the checkpoints command
var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect saved crawl checkpoints",
	Long: `Inspect the checkpoints saved by previous crawl runs.

A checkpoint records which items were harvested and where every cursor
stood when the run stopped. 'crawl --checkpoint-id <id>' resumes one.`,
}

// checkpointsListCmd represents the checkpoints list command
var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints",
	RunE:  runCheckpointsList,
}

// checkpointsShowCmd represents the checkpoints show command
var checkpointsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one checkpoint in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsShow,
}

// checkpointsDeleteCmd represents the checkpoints delete command
var checkpointsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsDelete,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsShowCmd)
	checkpointsCmd.AddCommand(checkpointsDeleteCmd)
}

func openCheckpointStore() (checkpoint.Store, *config.Config, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := checkpointStore(cfg, logger.GetLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return store, cfg, nil
}

func runCheckpointsList(cmd *cobra.Command, args []string) error {
	store, cfg, err := openCheckpointStore()
	if err != nil {
		return err
	}
	defer store.Close()

	checkpoints, err := store.List(cfg.Platform.Name)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(checkpoints) == 0 {
		fmt.Println("No checkpoints saved.")
		return nil
	}

	fmt.Printf("%-36s %-10s %-8s %-8s %s\n", "ID", "MODE", "ITEMS", "DONE", "UPDATED")
	for _, cp := range checkpoints {
		fmt.Printf("%-36s %-10s %-8d %-8d %s\n",
			cp.ID, cp.Mode, len(cp.Items), cp.DoneCount(false),
			cp.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCheckpointsShow(cmd *cobra.Command, args []string) error {
	store, _, err := openCheckpointStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cp, err := store.LoadByID(args[0])
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp == nil {
		return fmt.Errorf("checkpoint %s not found", args[0])
	}

	fmt.Printf("ID:        %s\n", cp.ID)
	fmt.Printf("Platform:  %s\n", cp.Platform)
	fmt.Printf("Mode:      %s\n", cp.Mode)
	fmt.Printf("Created:   %s\n", cp.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:   %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05"))

	switch cp.Mode {
	case checkpoint.ModeSearch:
		fmt.Printf("Keyword:   %s\n", cp.CurrentKeyword)
		fmt.Printf("Page:      %d\n", cp.CurrentPage)
	case checkpoint.ModeCreator:
		fmt.Printf("Creator:   %s\n", cp.CreatorID)
		fmt.Printf("Cursor:    %d\n", cp.CreatorPage)
	case checkpoint.ModeHomefeed:
		fmt.Printf("Refresh:   %d\n", cp.RefreshIndex)
	}

	fmt.Printf("Items:     %d tracked, %d done, %d with comments done\n",
		len(cp.Items), cp.DoneCount(false), cp.DoneCount(true))

	for _, item := range cp.Items {
		state := "pending"
		switch {
		case item.CommentsCrawled:
			state = "done"
		case item.ItemCrawled:
			state = "item done"
		}
		fmt.Printf("  %-24s %-10s cursor=%d\n", item.ItemID, state, item.CommentCursor)
	}
	return nil
}

func runCheckpointsDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openCheckpointStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	fmt.Printf("Checkpoint %s deleted.\n", args[0])
	return nil
}
