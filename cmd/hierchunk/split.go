package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/hierchunk/internal/cache"
	"github.com/dgallion1/hierchunk/internal/config"
	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/export"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/spf13/cobra"
)

// split flags
var (
	splitMode          string
	splitFormat        string
	splitOutput        string
	splitPageRef       string
	splitParentSize    int
	splitParentOverlap int
	splitChildSize     int
	splitChildOverlap  int
	splitTablePolicy   string
	splitNoNormalize   bool
	splitNoTables      bool
	splitNoCache       bool
)

var splitCmd = &cobra.Command{
	Use:   "split <file|->",
	Short: "Split a document into parent and child chunks",
	Long: `Split converts the input (Markdown, text, HTML, CSV, DOCX, PDF, or a
cached conversion result ending in .json) and writes the chunks.

With --mode flat the document is cut into a single level of fixed-size
chunks instead. Use "-" to read Markdown from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		applySplitFlags(cmd, &cfg)

		builder, err := hierarchy.NewBuilder(cfg.Chunking, hierarchy.WithLogger(log))
		if err != nil {
			return err
		}

		res, err := loadInput(cmd, cfg, log, args[0])
		if err != nil {
			return err
		}

		var format export.Format
		if splitFormat != "" {
			if format, err = export.ParseFormat(splitFormat); err != nil {
				return err
			}
		}

		switch splitMode {
		case "flat":
			var pageRef *document.ConversionResult
			if splitPageRef != "" {
				if pageRef, err = document.DecodeFile(splitPageRef); err != nil {
					return fmt.Errorf("page reference: %w", err)
				}
			}
			chunks := builder.SplitFlat(res, pageRef)
			return writeFlat(cmd.OutOrStdout(), format, chunks)
		case "", "hierarchical":
		default:
			return fmt.Errorf("unknown mode %q (want hierarchical or flat)", splitMode)
		}

		start := time.Now()
		result := builder.BuildConversion(res)
		log.Info("split complete",
			"file", res.Metadata.FileName,
			"parents", len(result.Parents),
			"children", len(result.Children),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if splitOutput != "" {
			if err := export.ToFile(splitOutput, format, result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d parents and %d children to %s\n",
				len(result.Parents), len(result.Children), splitOutput)
			return nil
		}
		if format == "" {
			format = export.Markdown
		}
		return export.Write(cmd.OutOrStdout(), format, result)
	},
}

func init() {
	f := splitCmd.Flags()
	f.StringVarP(&splitMode, "mode", "m", "hierarchical", "hierarchical or flat")
	f.StringVarP(&splitFormat, "format", "f", "", "markdown, json or jsonl (default from --output extension, else markdown)")
	f.StringVarP(&splitOutput, "output", "o", "", "write to this file instead of stdout")
	f.StringVar(&splitPageRef, "page-ref", "", "cached conversion result used to estimate page numbers in flat mode")
	f.IntVar(&splitParentSize, "parent-size", 0, "parent chunk size in characters")
	f.IntVar(&splitParentOverlap, "parent-overlap", 0, "parent chunk overlap in characters")
	f.IntVar(&splitChildSize, "child-size", 0, "child chunk size in characters")
	f.IntVar(&splitChildOverlap, "child-overlap", 0, "child chunk overlap in characters")
	f.StringVar(&splitTablePolicy, "table-policy", "", "whole or rows: how oversized tables are cut into children")
	f.BoolVar(&splitNoNormalize, "no-normalize", false, "skip Markdown normalization")
	f.BoolVar(&splitNoTables, "no-keep-tables", false, "do not protect tables from being split")
	f.BoolVar(&splitNoCache, "no-cache", false, "bypass the conversion cache")
}

// applySplitFlags copies explicitly set flags over the loaded config.
func applySplitFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	c := &cfg.Chunking
	if f.Changed("parent-size") {
		c.ParentChunkSize = splitParentSize
	}
	if f.Changed("parent-overlap") {
		c.ParentChunkOverlap = splitParentOverlap
	}
	if f.Changed("child-size") {
		c.ChildChunkSize = splitChildSize
	}
	if f.Changed("child-overlap") {
		c.ChildChunkOverlap = splitChildOverlap
	}
	if f.Changed("table-policy") {
		c.TablePolicy = splitTablePolicy
	}
	if splitNoNormalize {
		c.NormalizeOutput = false
	}
	if splitNoTables {
		c.KeepTablesTogether = false
	}
}

// loadInput resolves the argument to a conversion result: stdin, a cached
// result, or a file converted through the cache.
func loadInput(cmd *cobra.Command, cfg config.Config, log *slog.Logger, arg string) (*document.ConversionResult, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return document.FromText("stdin.md", string(data)), nil
	}
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return document.DecodeFile(arg)
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &document.Error{Kind: document.NotFoundKind, Op: "read", Path: arg}
		}
		return nil, fmt.Errorf("read input: %w", err)
	}

	backend := cfg.CacheBackend
	if splitNoCache {
		backend = "none"
	}
	store, err := cache.Open(backend, cfg.CachePath, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	res, _, err := cache.Convert(cmd.Context(), store, log, cache.Source{
		Filename:    arg,
		Data:        data,
		PDFFallback: cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		return nil, err
	}
	res.Metadata.FilePath = arg
	return res, nil
}

func writeFlat(w io.Writer, format export.Format, chunks []*hierarchy.Chunk) error {
	out := w
	if splitOutput != "" {
		if format == "" {
			var err error
			if format, err = export.ParseFormat(filepath.Ext(splitOutput)); err != nil {
				return err
			}
		}
		f, err := os.Create(splitOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "", export.Markdown:
		return export.WriteFlatMarkdown(out, chunks)
	case export.JSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{
			"chunks": chunks,
			"stats":  hierarchy.FlatStatistics(chunks),
		})
	case export.JSONL:
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		for _, c := range chunks {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown export format %q", format)
}
