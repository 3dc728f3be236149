package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func runRoot(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return strings.TrimSpace(out.String())
}

func TestHashKey_FromArgument(t *testing.T) {
	hash := runRoot(t, "", "hash-key", "s3cret-key")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-key")))
}

func TestHashKey_FromStdin(t *testing.T) {
	hash := runRoot(t, "piped-key\n", "hash-key")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("piped-key")))
}

func TestHashKey_EmptyKey(t *testing.T) {
	rootCmd.SetArgs([]string{"hash-key", ""})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
	})
	assert.Error(t, rootCmd.Execute())
}
