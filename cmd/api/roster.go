package main

import (
	"fmt"
	"os"

	"github.com/cmlabs-hris/attendance-bot/internal/pkg/roster"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Import or export the member roster",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert every member of a YAML roster into the member store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterImport,
}

var rosterExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the member store as a YAML roster",
	Args:  cobra.NoArgs,
	RunE:  runRosterExport,
}

func init() {
	rosterCmd.AddCommand(rosterImportCmd)
	rosterCmd.AddCommand(rosterExportCmd)
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	members, err := roster.Decode(f)
	if err != nil {
		return err
	}

	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.members.SaveAll(cmd.Context(), members); err != nil {
		return fmt.Errorf("failed to import roster: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d members from %s\n", len(members), args[0])
	return nil
}

func runRosterExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	members, err := st.members.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	return roster.Encode(cmd.OutOrStdout(), members)
}
