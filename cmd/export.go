package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/liac-group/outreach-cli/internal/model"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [batch-id]",
	Short: "Export a batch's contacts to an .xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		batchID := args[0]
		contacts, err := env.Store.ContactsByBatch(cmd.Context(), batchID)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			return eris.Errorf("batch %s has no contacts", batchID)
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("contacts-%s.xlsx", batchID)
		}
		if err := writeContactsWorkbook(out, contacts); err != nil {
			return err
		}
		fmt.Printf("wrote %d contacts to %s\n", len(contacts), out)
		return nil
	},
}

func writeContactsWorkbook(path string, contacts []model.Contact) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Company", "First Name", "Last Name", "Title", "Email", "Score", "LinkedIn"} {
		header.AddCell().Value = h
	}

	for _, c := range contacts {
		row := sheet.AddRow()
		row.AddCell().Value = c.Company
		row.AddCell().Value = c.FirstName
		row.AddCell().Value = c.LastName
		row.AddCell().Value = c.Title
		row.AddCell().Value = c.Email
		row.AddCell().SetFloatWithFormat(c.Score, "0.00")
		row.AddCell().Value = c.LinkedInURL
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save workbook")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default contacts-<batch>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
