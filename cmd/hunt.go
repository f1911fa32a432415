package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liac-group/outreach-cli/internal/model"
)

var (
	huntCampaigns     bool
	huntEnforceSalary bool
	huntHoursOld      int
	huntMaxEmployees  int
	huntMinScore      float64
	huntJSON          bool
)

var huntCmd = &cobra.Command{
	Use:   "hunt [query...]",
	Short: "Search job boards and process the hiring companies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Flag overrides land in the config before the analyzer and
		// discoverer are built from it.
		if cmd.Flags().Changed("campaigns") {
			cfg.Pipeline.CreateCampaigns = huntCampaigns
		}
		if cmd.Flags().Changed("enforce-salary") {
			cfg.Pipeline.EnforceSalary = huntEnforceSalary
		}
		if huntHoursOld > 0 {
			cfg.Pipeline.HoursOld = huntHoursOld
		}
		if huntMaxEmployees > 0 {
			cfg.Pipeline.MaxEmployeeCount = huntMaxEmployees
		}
		if huntMinScore > 0 {
			cfg.Pipeline.MinDecisionMakerScore = huntMinScore
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := batchOptions()

		enc := json.NewEncoder(os.Stdout)
		runner := env.Runner(func(r model.UnitResult) {
			if huntJSON {
				_ = enc.Encode(r)
				return
			}
			printUnitResult(r)
		})

		query := strings.Join(args, " ")
		batch, stats, err := runner.Hunt(ctx, query, opts)
		if err != nil {
			return err
		}

		fmt.Printf("\nBatch %s complete\n", batch.ID)
		fmt.Printf("  jobs seen:             %d\n", stats.JobsSeen)
		fmt.Printf("  companies processed:   %d\n", stats.CompaniesProcessed)
		fmt.Printf("  companies blacklisted: %d\n", stats.CompaniesBlacklisted)
		fmt.Printf("  companies failed:      %d\n", stats.CompaniesFailed)
		fmt.Printf("  duplicates skipped:    %d\n", stats.DuplicatesSkipped)
		fmt.Printf("  contacts found:        %d\n", stats.ContactsFound)
		fmt.Printf("  campaigns created:     %d\n", stats.CampaignsCreated)
		return nil
	},
}

func printUnitResult(r model.UnitResult) {
	switch {
	case r.Blacklisted:
		fmt.Printf("✗ %s (%s) blacklisted: %s\n", r.Company, r.JobTitle, r.BlacklistReason)
	case r.StageReached == model.StateFailed:
		fmt.Printf("✗ %s (%s) failed\n", r.Company, r.JobTitle)
	case r.CampaignID != "":
		fmt.Printf("✓ %s (%s) %d contacts, campaign %s\n", r.Company, r.JobTitle, r.ContactsFound, r.CampaignID)
	default:
		fmt.Printf("✓ %s (%s) %d contacts\n", r.Company, r.JobTitle, r.ContactsFound)
	}
}

func init() {
	huntCmd.Flags().BoolVar(&huntCampaigns, "campaigns", false, "create email campaigns for discovered contacts")
	huntCmd.Flags().BoolVar(&huntEnforceSalary, "enforce-salary", false, "drop postings without salary information")
	huntCmd.Flags().IntVar(&huntHoursOld, "hours-old", 0, "posting age limit in hours (0 = config default)")
	huntCmd.Flags().IntVar(&huntMaxEmployees, "max-employees", 0, "company size cutoff (0 = config default)")
	huntCmd.Flags().Float64Var(&huntMinScore, "min-score", 0, "decision-maker title score floor (0 = config default)")
	huntCmd.Flags().BoolVar(&huntJSON, "json", false, "emit unit results as JSON lines")
	rootCmd.AddCommand(huntCmd)
}
