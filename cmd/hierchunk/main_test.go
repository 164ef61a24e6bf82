package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = "# Guide\n\nInstall the tool with the package manager of your choice.\n\n## Usage\n\n| Flag | Meaning |\n|---|---|\n| -o | output file |\n"

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSplitCommand_JSON(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "none")
	out := run(t, sampleDoc, "split", "-", "--format", "json")

	var res hierarchy.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Parents, 2)
	assert.Positive(t, res.Analysis.TableHandlingStats.TotalTableChunks)
}

func TestNormalizeCommand(t *testing.T) {
	out := run(t, "<b>x</b>\n\n\n\n|  a | b |\n|--|--|\n| 1 | 2 |", "normalize", "-")
	assert.Equal(t, "x\n\n|a|b|\n|---|---|\n|1|2|\n", out)
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "hierchunk dev\n", run(t, "", "version"))
}
