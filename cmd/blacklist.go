package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liac-group/outreach-cli/internal/model"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the company blacklist",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Blacklist.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("blacklist is empty")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%-40s %-18s %s", e.Company, e.Reason, e.AddedAt.Format("2006-01-02"))
			if e.Detail != "" {
				line += "  (" + e.Detail + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var blacklistReason string

var blacklistAddCmd = &cobra.Command{
	Use:   "add [company...]",
	Short: "Add a company to the blacklist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		company := strings.Join(args, " ")
		reason := model.BlacklistReason(blacklistReason)
		if err := env.Blacklist.Add(cmd.Context(), company, reason, "added via cli"); err != nil {
			return err
		}
		fmt.Printf("blacklisted %q (%s)\n", company, reason)
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove [company...]",
	Short: "Remove a company from the blacklist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		company := strings.Join(args, " ")
		if err := env.Blacklist.Remove(cmd.Context(), company); err != nil {
			return err
		}
		fmt.Printf("removed %q\n", company)
		return nil
	},
}

var blacklistStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show blacklist counts by reason",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Blacklist.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total: %d\n", stats.Total)
		for reason, n := range stats.ByReason {
			fmt.Printf("  %-20s %d\n", reason, n)
		}
		return nil
	},
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every blacklist entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Blacklist.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := env.Blacklist.Remove(cmd.Context(), e.Company); err != nil {
				return err
			}
		}
		fmt.Printf("removed %d entries\n", len(entries))
		return nil
	},
}

func init() {
	blacklistAddCmd.Flags().StringVar(&blacklistReason, "reason", string(model.ReasonExplicit), "blacklist reason")
	blacklistCmd.AddCommand(blacklistListCmd, blacklistAddCmd, blacklistRemoveCmd, blacklistStatsCmd, blacklistClearCmd)
	rootCmd.AddCommand(blacklistCmd)
}
