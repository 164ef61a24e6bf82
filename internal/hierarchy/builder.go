package hierarchy

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/hierchunk/internal/chunker"
	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/normalize"
	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// Builder produces parent and child chunks. It holds only read-only
// configuration, so one Builder can serve concurrent Build calls.
type Builder struct {
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
	normalizer *normalize.Normalizer
	structural *chunker.StructuralSplitter
	parents    *chunker.RecursiveSplitter
	children   *chunker.RecursiveSplitter
	flat       *chunker.RecursiveSplitter
	levelNames []string // header names, shallowest first
}

type BuilderOption func(*Builder)

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithClock replaces time.Now for analysis and processing timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBuilder(cfg Config, opts ...BuilderOption) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := chunker.ParseRegionPolicy(cfg.TablePolicy)

	b := &Builder{
		cfg:        cfg,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		normalizer: normalize.New(normalize.DefaultOptions()),
	}
	var err error
	if b.structural, err = chunker.NewStructuralSplitter(cfg.HeaderLevels); err != nil {
		return nil, err
	}

	var parentOpts, childOpts []chunker.Option
	if cfg.KeepTablesTogether {
		parentOpts = append(parentOpts, chunker.WithProtectedTables(chunker.KeepWhole))
		childOpts = append(childOpts, chunker.WithProtectedTables(policy))
	}
	if b.parents, err = chunker.NewRecursiveSplitter(cfg.ParentChunkSize, cfg.ParentChunkOverlap, parentOpts...); err != nil {
		return nil, err
	}
	if b.children, err = chunker.NewRecursiveSplitter(cfg.ChildChunkSize, cfg.ChildChunkOverlap, childOpts...); err != nil {
		return nil, err
	}
	if b.flat, err = chunker.NewRecursiveSplitter(cfg.FlatChunkSize, cfg.FlatChunkOverlap, parentOpts...); err != nil {
		return nil, err
	}
	for depth := 1; depth <= 6; depth++ {
		if name, ok := b.structural.LevelName(depth); ok {
			b.levelNames = append(b.levelNames, name)
		}
	}

	for _, o := range opts {
		o(b)
	}
	return b, nil
}

func (b *Builder) Config() Config { return b.cfg }

// run carries the per-call ID counters.
type run struct {
	id       string
	parents  int
	children int
}

func (r *run) nextParentID() string {
	r.parents++
	return fmt.Sprintf("parent_%08d", r.parents)
}

func (r *run) nextChildID() string {
	r.children++
	return fmt.Sprintf("child_%08d", r.children)
}

// Build resolves in and splits it. Only structural problems with the input
// are errors; an empty document gives an empty result.
func (b *Builder) Build(in document.Input) (*Result, error) {
	res, err := document.Resolve(in)
	if err != nil {
		return nil, err
	}
	out := b.BuildConversion(res)
	if _, ok := in.(document.ResultInput); !ok {
		out.Processing.InputType = inputType(in)
	}
	return out, nil
}

func inputType(in document.Input) string {
	switch in.(type) {
	case document.PathInput, *document.PathInput:
		return "path"
	case document.TextInput:
		return "text"
	}
	return "conversion_result"
}

// BuildText splits raw Markdown.
func (b *Builder) BuildText(text string) *Result {
	out := b.BuildConversion(document.FromText("", text))
	out.Processing.InputType = "text"
	return out
}

// BuildConversion splits a conversion result, page by page when it has
// pages and as a single unit otherwise.
func (b *Builder) BuildConversion(res *document.ConversionResult) *Result {
	start := b.now()
	r := &run{id: uuid.NewString()}
	base := baseMetadata(res)

	var parents []*ParentChunk
	var children []*ChildChunk
	pages := 0
	if res.HasPages() {
		for _, page := range res.Pages {
			meta := base.Clone()
			meta.PageNumber = page.PageNumber
			meta.PageTitle = page.Title
			ps, cs := b.splitUnit(r, page.Content, meta)
			parents = append(parents, ps...)
			children = append(children, cs...)
			pages++
		}
	} else {
		parents, children = b.splitUnit(r, res.Content, base)
	}

	if b.cfg.KeepTablesTogether {
		children = b.postprocessTables(children)
	}
	children = b.finishChildren(children)

	for _, p := range parents {
		p.SetContent(tableguard.CleanMarkers(p.Content))
	}

	out := &Result{
		Parents:  parents,
		Children: children,
		Analysis: Analyze(parents, children, b.now()),
		Processing: ProcessingInfo{
			RunID:          r.id,
			InputType:      "conversion_result",
			PagesProcessed: pages,
			Normalized:     b.cfg.NormalizeOutput,
			TablesHandled:  b.cfg.KeepTablesTogether,
			Timestamp:      start,
		},
	}
	b.log.Info("hierarchical split complete",
		"run_id", r.id,
		"file_name", base.FileName,
		"pages", pages,
		"parents", len(parents),
		"children", len(children),
		"grouping_efficiency", out.Analysis.GroupingEfficiency,
	)
	return out
}

func baseMetadata(res *document.ConversionResult) Metadata {
	m := res.Metadata
	return Metadata{
		FileName:            m.FileName,
		FileType:            m.FileType,
		Source:              m.FilePath,
		ConverterUsed:       m.ConverterUsed,
		TotalPages:          m.TotalPages,
		TotalTables:         m.TotalTables,
		FileSize:            m.FileSize,
		ConversionTimestamp: m.ConversionTimestamp,
		Extra:               maps.Clone(m.AdditionalInfo),
	}
}

// prepare runs the normalizer and table marking over one unit of text.
func (b *Builder) prepare(text string) string {
	if b.cfg.NormalizeOutput {
		text = b.normalizer.Normalize(text)
	}
	if b.cfg.KeepTablesTogether {
		text = tableguard.Mark(text)
	}
	return text
}

// splitUnit produces the parents of one page (or of the whole document) and
// their children. Parents whose cleaned content is too short are dropped.
func (b *Builder) splitUnit(r *run, text string, base Metadata) ([]*ParentChunk, []*ChildChunk) {
	text = b.prepare(text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var parents []*ParentChunk
	var children []*ChildChunk
	for _, sec := range b.structural.Split(text) {
		meta := base.Clone()
		if len(sec.Headers) > 0 {
			meta.Headers = sec.Headers
		}

		pieces := []string{sec.Content}
		if chunker.Length(sec.Content) > b.cfg.ParentChunkSize {
			pieces = b.parents.Split(sec.Content)
		}
		for _, piece := range pieces {
			cleaned := tableguard.CleanSeparators(piece)
			if chunker.Length(cleaned) < b.cfg.MinParentLength {
				b.log.Debug("dropping short parent", "run_id", r.id, "length", chunker.Length(cleaned))
				continue
			}
			p := b.newParent(r, piece, meta.Clone(), len(parents))
			parents = append(parents, p)
			children = append(children, b.childrenOf(r, p, cleaned)...)
		}
	}
	return parents, children
}

func (b *Builder) newParent(r *run, content string, meta Metadata, index int) *ParentChunk {
	p := &ParentChunk{
		Chunk:       Chunk{ID: r.nextParentID(), Metadata: meta},
		ParentIndex: index,
		PageNumber:  meta.PageNumber,
	}
	p.SetContent(content)
	p.TableCount = tableguard.CountTables(content)
	p.HasTables = p.TableCount > 0
	p.HeaderLevel, p.HeaderText = b.primaryHeader(meta.Headers)
	return p
}

// primaryHeader picks the shallowest configured heading present.
func (b *Builder) primaryHeader(headers map[string]string) (int, string) {
	for i, name := range b.levelNames {
		if t := headers[name]; t != "" {
			return i + 1, t
		}
	}
	return 0, ""
}

// childrenOf cuts the separator-cleaned parent content into children.
func (b *Builder) childrenOf(r *run, p *ParentChunk, cleaned string) []*ChildChunk {
	var out []*ChildChunk
	_, header := b.primaryHeader(p.Metadata.Headers)
	for i, piece := range b.children.Split(cleaned) {
		final := tableguard.CleanSeparators(piece)
		if chunker.Length(final) < b.cfg.MinChildLength {
			b.log.Debug("dropping short child", "run_id", r.id, "parent_id", p.ID, "index", i)
			continue
		}
		c := &ChildChunk{
			Chunk:         Chunk{ID: r.nextChildID(), Metadata: p.Metadata.Clone()},
			ParentChunkID: p.ID,
			ChildIndex:    i,
			ParentHeader:  header,
			PageNumber:    p.PageNumber,
		}
		c.SetContent(final)
		if tableguard.IsTableChunk(c) {
			c.IsTableChunk = true
			info := tableguard.Describe(piece)
			c.TableInfo = &info
			c.Metadata.IsTable = true
		}
		out = append(out, c)
	}
	return out
}

// finishChildren sorts, absorbs short fragments and numbers the children.
func (b *Builder) finishChildren(children []*ChildChunk) []*ChildChunk {
	sortChildren(children)
	children = mergeShortChildren(children, b.cfg.MergeMinLength, b.cfg.ChildChunkSize)

	next := make(map[string]int)
	for _, c := range children {
		c.ChildIndex = next[c.ParentChunkID]
		next[c.ParentChunkID]++
	}
	sortChildren(children)
	for i, c := range children {
		c.Metadata.GlobalChunkNumber = i + 1
	}
	return children
}

func sortChildren(children []*ChildChunk) {
	slices.SortStableFunc(children, func(a, c *ChildChunk) int {
		if n := strings.Compare(a.ParentChunkID, c.ParentChunkID); n != 0 {
			return n
		}
		return a.ChildIndex - c.ChildIndex
	})
}
