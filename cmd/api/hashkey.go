package main

import (
	"bufio"
	"fmt"
	"strings"

	authService "github.com/cmlabs-hris/attendance-bot/internal/service/auth"
	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the ADMIN_KEY_HASH value for an admin API key",
	Long: `hash-key prints the bcrypt hash to put in ADMIN_KEY_HASH.
Without an argument the key is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashKey,
}

func runHashKey(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = strings.TrimSpace(line)
	}

	hash, err := authService.HashKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
