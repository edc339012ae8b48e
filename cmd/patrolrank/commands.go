package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/patrolrank/internal/app"
)

func recomputeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Run one ranking pass over every officer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				res, err := svc.Recompute(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d officers ranked\n", res.Message, res.Ranked)
				return nil
			})
		},
	}
}

func scoreCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "score <id>",
		Short: "Score one officer and persist the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				res, err := svc.Score(ctx, id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				o := res.Officer
				rows := [][]string{
					{"Name", o.Name},
					{"Badge", o.BadgeNumber},
					{"Grade", o.Grade},
					{"Score", formatScore(res.Score)},
				}
				return renderTable(cmd.OutOrStdout(), fmt.Sprintf("Officer %d", o.ID), []string{"Field", "Value"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func topCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the best ranked officers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				entries, err := svc.TopN(ctx, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{
						strconv.Itoa(e.Rank),
						strconv.FormatInt(e.OfficerID, 10),
						e.Name,
						e.BadgeNumber,
						e.Grade,
						formatScore(e.Score),
					}
				}
				return renderTable(cmd.OutOrStdout(), "Top officers", []string{"Rank", "ID", "Name", "Badge", "Grade", "Score"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "max officers to show (default: from config)")
	return cmd
}

func seedCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create officers with random metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				officers, err := svc.Seed(ctx, count)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d officers\n", len(officers))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "officers to create (default: from config)")
	return cmd
}

func historyCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show an officer's rank history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				logs, err := svc.History(ctx, id, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), logs)
				}
				rows := make([][]string, len(logs))
				for i, l := range logs {
					rows[i] = []string{
						l.Timestamp.Local().Format(time.DateTime),
						strconv.Itoa(l.Rank),
						formatScore(l.Score),
					}
				}
				return renderTable(cmd.OutOrStdout(), fmt.Sprintf("Officer %d history", id), []string{"Logged at", "Rank", "Score"}, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "max entries to show (default: from config)")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid officer id %q", s)
	}
	return id, nil
}
