package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestOverridesFromFlags_OnlyExplicit(t *testing.T) {
	var got map[string]any
	cliApp := newCLI()
	cliApp.Action = func(c *cli.Context) error {
		got = overridesFromFlags(c)
		return nil
	}

	err := cliApp.Run([]string{"twap-backtest", "--quantity", "1000", "--end-index", "9", "--seed", "7", "--no-plots"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"strategy.total_quantity": 1000.0,
		"strategy.end_index":      9,
		"market.seed":             int64(7),
		"output.plots":            false,
	}, got)
}

func TestRun_WritesSummary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "result")
	var buf bytes.Buffer
	cliApp := newCLI()
	cliApp.Writer = &buf

	err := cliApp.Run([]string{
		"twap-backtest",
		"--quantity", "1000",
		"--start-index", "0",
		"--end-index", "9",
		"--periods", "10",
		"--output", out,
		"--no-plots",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "=== Performance Metrics ===")
	assert.FileExists(t, filepath.Join(out, "synthetic_data.csv"))
	assert.FileExists(t, filepath.Join(out, "executed_data.csv"))
}

func TestRun_RejectsInvalidQuantity(t *testing.T) {
	cliApp := newCLI()
	cliApp.Writer = &bytes.Buffer{}
	err := cliApp.Run([]string{"twap-backtest", "--quantity", "-5", "--output", t.TempDir(), "--no-plots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy.total_quantity")
}

func TestRun_RejectsNonFiniteQuantity(t *testing.T) {
	for _, q := range []string{"NaN", "Inf"} {
		cliApp := newCLI()
		cliApp.Writer = &bytes.Buffer{}
		err := cliApp.Run([]string{"twap-backtest", "--quantity", q, "--output", t.TempDir(), "--no-plots"})
		require.Error(t, err, q)
		assert.Contains(t, err.Error(), "strategy.total_quantity")
	}
}
