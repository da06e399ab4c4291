package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/formatting"
	"scoreboard/internal/intra"
)

func TestRegisterOutputFlags(t *testing.T) {
	var flags OutputFlags
	cmd := &cobra.Command{Use: "students"}
	RegisterOutputFlags(cmd, &flags)

	require.NoError(t, cmd.ParseFlags([]string{"-o", "json", "--no-headers", "-q"}))
	assert.Equal(t, "json", flags.OutputFormat)
	assert.True(t, flags.NoHeaders)
	assert.True(t, flags.Quiet)
}

func TestOutputFlags_Formatter(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{Use: "students"}
	cmd.SetOut(&buf)

	f, err := (&OutputFlags{OutputFormat: "yaml"}).Formatter(cmd)
	require.NoError(t, err)
	assert.IsType(t, &formatting.YAMLFormatter{}, f)
	require.NoError(t, f.Students([]intra.Student{{Login: "alice"}}, intra.Stats{TotalCount: 1}))
	assert.Contains(t, buf.String(), "login: alice")

	_, err = (&OutputFlags{OutputFormat: "csv"}).Formatter(cmd)
	assert.Error(t, err)
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	called := false
	require.NoError(t, WithSpinner(&buf, true, "Loading", func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Empty(t, buf.String())

	err := WithSpinner(&buf, true, "Loading", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}
