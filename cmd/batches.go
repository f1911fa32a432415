package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var batchesLimit int

var batchesCmd = &cobra.Command{
	Use:   "batches [batch-id]",
	Short: "List hunt batches, or inspect one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) == 1 {
			return showBatch(cmd, env, args[0])
		}

		batches, err := env.Store.ListBatches(cmd.Context(), batchesLimit)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("no batches")
			return nil
		}
		for _, b := range batches {
			fmt.Printf("%s  %-10s  %s  jobs=%d companies=%d contacts=%d\n",
				b.ID, b.Status, b.CreatedAt.Format("2006-01-02 15:04"),
				b.Stats.JobsSeen, b.Stats.CompaniesProcessed, b.Stats.ContactsFound)
			fmt.Printf("    %s\n", b.Query)
		}
		return nil
	},
}

func showBatch(cmd *cobra.Command, env *appEnv, id string) error {
	batch, err := env.Store.GetBatch(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("batch %s (%s)\n", batch.ID, batch.Status)
	fmt.Printf("query: %s\n\n", batch.Query)

	summaries, err := env.Store.CompanySummaries(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		line := fmt.Sprintf("%-30s %-16s", s.Company, s.State)
		if s.Bracket != "" {
			line += fmt.Sprintf(" size=%s", s.Bracket)
		}
		if s.BlacklistReason != "" {
			line += fmt.Sprintf(" reason=%s", s.BlacklistReason)
		}
		if s.ContactsFound > 0 {
			line += fmt.Sprintf(" contacts=%d", s.ContactsFound)
		}
		if s.CampaignID != "" {
			line += fmt.Sprintf(" campaign=%s", s.CampaignID)
		}
		if s.Error != "" {
			line += fmt.Sprintf(" error=%q", s.Error)
		}
		fmt.Println(line)
	}

	outcomes, err := env.Store.StageOutcomes(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(outcomes) > 0 {
		fmt.Println("\nstage outcomes:")
		for _, o := range outcomes {
			mark := "ok"
			if !o.Success {
				mark = "FAIL"
			}
			line := fmt.Sprintf("  %s  %-25s %-9s %s", o.Timestamp.Format("15:04:05"), o.Company, o.Stage, mark)
			if o.Error != "" {
				line += "  " + o.Error
			}
			fmt.Println(line)
		}
	}
	return nil
}

func init() {
	batchesCmd.Flags().IntVar(&batchesLimit, "limit", 20, "max batches to list")
	rootCmd.AddCommand(batchesCmd)
}
