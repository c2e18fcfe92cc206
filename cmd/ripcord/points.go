package main

import (
	"fmt"
	"strings"

	"github.com/lyndonlyu/ripcord/internal/passport"
	"github.com/lyndonlyu/ripcord/internal/registry"
	"github.com/spf13/cobra"
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Manage rollback points",
}

var pointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known rollback points, most recent first",
	RunE:  listPoints,
}

var pointsAddCmd = &cobra.Command{
	Use:   "add [description]",
	Short: "Record the current HEAD as a rollback point",
	Args:  cobra.MaximumNArgs(1),
	RunE:  addPoint,
}

func init() {
	pointsCmd.AddCommand(pointsListCmd)
	pointsCmd.AddCommand(pointsAddCmd)
	rootCmd.AddCommand(pointsCmd)
}

func listPoints(cmd *cobra.Command, args []string) error {
	_, store, err := openProject()
	if err != nil {
		return err
	}
	points, err := registry.New(store).Load()
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-20s %s\n", "COMMIT", "CREATED", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 70))
	for _, pt := range points {
		hash := pt.CommitHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Printf("%-12s %-20s %s\n", hash, pt.Timestamp, pt.Description)
	}
	return nil
}

func addPoint(cmd *cobra.Command, args []string) error {
	cfg, store, err := openProject()
	if err != nil {
		return err
	}
	description := ""
	if len(args) > 0 {
		description = args[0]
	}

	// First point in a fresh project: seed an empty passport.
	if !store.Exists() {
		if err := store.Save(&passport.Passport{}); err != nil {
			return err
		}
	}

	pt, err := registry.New(store).Capture(cfg.Root, description)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded rollback point %s (%s)\n", pt.CommitHash, pt.Description)
	return nil
}
