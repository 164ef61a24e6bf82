package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/hierchunk/internal/chunker"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/dgallion1/hierchunk/internal/tableguard"
	"github.com/spf13/cobra"
)

var inspectJSON bool

// inspectReport is what inspect prints.
type inspectReport struct {
	File       string                     `json:"file"`
	Converter  string                     `json:"converter"`
	Pages      int                        `json:"pages"`
	Characters int                        `json:"characters"`
	EstTokens  int                        `json:"estimated_tokens"`
	Tables     []tableSummary             `json:"tables"`
	Analysis   hierarchy.GroupingAnalysis `json:"analysis"`
	ChildTable tableguard.Summary         `json:"child_tables"`
	Flat       hierarchy.FlatStats        `json:"flat"`
}

type tableSummary struct {
	Line    int  `json:"line"`
	Rows    int  `json:"rows"`
	Columns int  `json:"columns"`
	Header  bool `json:"header"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|->",
	Short: "Report tables and chunk statistics without writing chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		builder, err := hierarchy.NewBuilder(cfg.Chunking, hierarchy.WithLogger(log))
		if err != nil {
			return err
		}
		res, err := loadInput(cmd, cfg, log, args[0])
		if err != nil {
			return err
		}

		result := builder.BuildConversion(res)
		report := inspectReport{
			File:       res.Metadata.FileName,
			Converter:  res.Metadata.ConverterUsed,
			Pages:      len(res.Pages),
			Characters: chunker.Length(res.Content),
			EstTokens:  chunker.EstimateTokens(res.Content),
			Tables:     []tableSummary{},
			Analysis:   result.Analysis,
			ChildTable: tableguard.Stats(result.Children),
			Flat:       hierarchy.FlatStatistics(builder.SplitFlat(res, nil)),
		}
		for _, t := range tableguard.Detect(res.Content) {
			report.Tables = append(report.Tables, tableSummary{
				Line:    t.StartLine + 1,
				Rows:    t.Rows,
				Columns: t.Columns,
				Header:  t.HasHeader,
			})
		}

		if inspectJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
}

func printReport(w io.Writer, r inspectReport) {
	a := r.Analysis
	fmt.Fprintf(w, "File: %s (converter %s, %d pages)\n", r.File, r.Converter, r.Pages)
	fmt.Fprintf(w, "Size: %d chars, ~%d tokens\n", r.Characters, r.EstTokens)
	fmt.Fprintf(w, "Tables: %d\n", len(r.Tables))
	for _, t := range r.Tables {
		fmt.Fprintf(w, "  line %d: %d rows x %d columns (header %t)\n", t.Line, t.Rows, t.Columns, t.Header)
	}
	fmt.Fprintf(w, "\nParents: %d  Children: %d  Avg children/parent: %.2f\n",
		a.TotalParentChunks, a.TotalChildChunks, a.AvgChildrenPerParent)
	fmt.Fprintf(w, "Parent size: min %d  max %d  avg %.1f  median %.1f\n",
		a.ParentSizeStats.Min, a.ParentSizeStats.Max, a.ParentSizeStats.Avg, a.ParentSizeStats.Median)
	fmt.Fprintf(w, "Child size:  min %d  max %d  avg %.1f  median %.1f\n",
		a.ChildSizeStats.Min, a.ChildSizeStats.Max, a.ChildSizeStats.Avg, a.ChildSizeStats.Median)
	fmt.Fprintf(w, "Grouping efficiency: %.2f\n", a.GroupingEfficiency)
	fmt.Fprintf(w, "Table children: %d (largest %d chars, fragmented %d)\n",
		r.ChildTable.TableChunks, r.ChildTable.LargestTable, a.TableHandlingStats.TableFragmentationCount)
	fmt.Fprintf(w, "\nSize distribution:\n")
	for _, b := range a.SizeDistribution {
		fmt.Fprintf(w, "  %-12s %d\n", b.Label, b.Count)
	}
	fmt.Fprintf(w, "\nFlat split: %d chunks, avg %.1f chars, %d tables\n",
		r.Flat.TotalChunks, r.Flat.AverageLength, r.Flat.TableChunks)
}
