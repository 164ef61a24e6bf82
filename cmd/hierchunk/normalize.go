package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/hierchunk/internal/normalize"
	"github.com/dgallion1/hierchunk/internal/tableguard"
	"github.com/spf13/cobra"
)

var (
	normalizeOutput string
	normalizeMark   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file|->",
	Short: "Clean up converter Markdown",
	Long: `Normalize strips HTML remnants, tidies table rows and collapses blank
lines. With --mark, tables are also wrapped in protection markers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args[0])
		if err != nil {
			return err
		}
		out := normalize.Normalize(text)
		if normalizeMark {
			out = tableguard.Mark(out)
		}

		if normalizeOutput == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		}
		if err := os.WriteFile(normalizeOutput, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "write to this file instead of stdout")
	normalizeCmd.Flags().BoolVar(&normalizeMark, "mark", false, "wrap tables in protection markers")
}

func readText(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
