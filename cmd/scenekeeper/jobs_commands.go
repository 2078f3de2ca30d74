package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/workflow"
)

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Delete duplicate scenes and files",
	}

	var distance string
	scenes := &cobra.Command{
		Use:   "scenes",
		Short: "Resolve phash duplicate groups and destroy the losing scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{distance}
			if strings.TrimSpace(distance) == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				names = cfg.Duplicates.Distances
			}
			return ctx.runJob(cmd, duplicateScenesJob(names))
		},
	}
	scenes.Flags().StringVar(&distance, "distance", "", "Only this phash distance (exact, high, medium, low); default is every configured distance")

	files := &cobra.Command{
		Use:   "files",
		Short: "Keep the best file of organized multi-file scenes and destroy the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, single((*workflow.Runner).DeleteDuplicateFiles))
		},
	}

	all := &cobra.Command{
		Use:   "all",
		Short: "Run the scene pass for every configured distance, then the file pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, many((*workflow.Runner).DeleteDuplicates))
		},
	}

	cmd.AddCommand(scenes, files, all)
	return cmd
}

func duplicateScenesJob(names []string) jobFunc {
	return func(c context.Context, r *workflow.Runner) ([]workflow.Report, error) {
		var reports []workflow.Report
		for _, name := range names {
			d, err := catalog.ParseDistance(name)
			if err != nil {
				return reports, err
			}
			report, err := r.DeleteDuplicateScenes(c, d)
			reports = append(reports, report)
			if err != nil {
				return reports, err
			}
		}
		return reports, nil
	}
}

func newMatchesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Match unorganized scenes against stash boxes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "process",
			Short: "Scrape unorganized scenes and tag the outcome",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runJob(cmd, single((*workflow.Runner).ProcessMatches))
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Strip stash-box match tags from organized scenes",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runJob(cmd, single((*workflow.Runner).RemoveMatches))
			},
		},
		&cobra.Command{
			Use:   "remove-false",
			Short: "Clear done and match tags from scenes marked as false matches",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runJob(cmd, single((*workflow.Runner).RemoveFalseMatches))
			},
		},
	)
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove corrupted and trashed scenes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "corrupted",
			Short: "Destroy scenes whose files have no phash, keeping the files",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runJob(cmd, single((*workflow.Runner).ProcessCorrupted))
			},
		},
		&cobra.Command{
			Use:   "trash",
			Short: "Destroy scenes and files under paths.trash_path",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.runJob(cmd, single((*workflow.Runner).ProcessTrash))
			},
		},
	)
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run cleanup, matching and tag removal in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, many((*workflow.Runner).ProcessAll))
		},
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Start a catalog metadata scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, single((*workflow.Runner).Scan))
		},
	}
}
