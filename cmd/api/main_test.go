package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "smtp-check")
	assert.NotNil(t, root.RunE, "running without a subcommand serves")
}

func TestSMTPCheckWithoutRelay(t *testing.T) {
	t.Setenv("SMTP_HOST", "")

	root := newRootCmd()
	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"smtp-check", "--timeout", "1s"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP error")
	assert.Contains(t, stderr.String(), "SMTP_HOST is not set")
}
