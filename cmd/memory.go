package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and reset processing memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fingerprint and blacklist key counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		fps, err := env.KV.Keys(cmd.Context(), "fp:")
		if err != nil {
			return err
		}
		bls, err := env.KV.Keys(cmd.Context(), "bl:")
		if err != nil {
			return err
		}
		fmt.Printf("fingerprints: %d\n", len(fps))
		fmt.Printf("blacklist:    %d\n", len(bls))
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every processed unit, keeping the blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		keys, err := env.KV.Keys(cmd.Context(), "fp:")
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := env.KV.Delete(cmd.Context(), key); err != nil {
				return err
			}
		}
		fmt.Printf("cleared %d fingerprints\n", len(keys))
		return nil
	},
}

func init() {
	memoryCmd.AddCommand(memoryStatsCmd, memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}
