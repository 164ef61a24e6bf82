package hierarchy

import (
	"fmt"

	"github.com/dgallion1/hierchunk/internal/chunker"
)

// Config controls one builder. The zero value is not usable; start from
// DefaultConfig and override fields.
type Config struct {
	ParentChunkSize    int                   `yaml:"parent_chunk_size" json:"parent_chunk_size"`
	ParentChunkOverlap int                   `yaml:"parent_chunk_overlap" json:"parent_chunk_overlap"`
	ChildChunkSize     int                   `yaml:"child_chunk_size" json:"child_chunk_size"`
	ChildChunkOverlap  int                   `yaml:"child_chunk_overlap" json:"child_chunk_overlap"`
	HeaderLevels       []chunker.HeaderLevel `yaml:"header_levels" json:"header_levels"`
	KeepTablesTogether bool                  `yaml:"keep_tables_together" json:"keep_tables_together"`
	NormalizeOutput    bool                  `yaml:"normalize_output" json:"normalize_output"`

	// Thresholds in characters of trimmed content.
	MinParentLength     int `yaml:"min_parent_length" json:"min_parent_length"`
	MinChildLength      int `yaml:"min_child_length" json:"min_child_length"`
	SmallTableThreshold int `yaml:"small_table_threshold" json:"small_table_threshold"`
	MergeMinLength      int `yaml:"merge_min_length" json:"merge_min_length"`

	// TablePolicy is "whole" (default) or "rows" and applies to children
	// only. Parents always keep a marked table whole.
	TablePolicy string `yaml:"table_policy" json:"table_policy"`

	FlatChunkSize    int `yaml:"flat_chunk_size" json:"flat_chunk_size"`
	FlatChunkOverlap int `yaml:"flat_chunk_overlap" json:"flat_chunk_overlap"`
}

func DefaultConfig() Config {
	return Config{
		ParentChunkSize:     2000,
		ParentChunkOverlap:  200,
		ChildChunkSize:      350,
		ChildChunkOverlap:   50,
		HeaderLevels:        chunker.DefaultHeaderLevels(),
		KeepTablesTogether:  true,
		NormalizeOutput:     true,
		MinParentLength:     8,
		MinChildLength:      5,
		SmallTableThreshold: 100,
		MergeMinLength:      30,
		TablePolicy:         "whole",
		FlatChunkSize:       1000,
		FlatChunkOverlap:    200,
	}
}

// Validate reports the first impossible setting. Errors wrap
// chunker.ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := chunker.NewRecursiveSplitter(c.ParentChunkSize, c.ParentChunkOverlap); err != nil {
		return fmt.Errorf("parent splitter: %w", err)
	}
	if _, err := chunker.NewRecursiveSplitter(c.ChildChunkSize, c.ChildChunkOverlap); err != nil {
		return fmt.Errorf("child splitter: %w", err)
	}
	if _, err := chunker.NewRecursiveSplitter(c.FlatChunkSize, c.FlatChunkOverlap); err != nil {
		return fmt.Errorf("flat splitter: %w", err)
	}
	if _, err := chunker.NewStructuralSplitter(c.HeaderLevels); err != nil {
		return err
	}
	if _, err := chunker.ParseRegionPolicy(c.TablePolicy); err != nil {
		return err
	}
	for name, v := range map[string]int{
		"min_parent_length":     c.MinParentLength,
		"min_child_length":      c.MinChildLength,
		"small_table_threshold": c.SmallTableThreshold,
		"merge_min_length":      c.MergeMinLength,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", chunker.ErrInvalidConfig, name, v)
		}
	}
	return nil
}
