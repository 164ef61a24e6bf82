package document

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// Input is what the chunk builder accepts: a path to a Markdown or text
// file, or a conversion result produced elsewhere.
type Input interface {
	isInput()
}

// PathInput names a Markdown or text file on disk.
type PathInput struct {
	Path string
}

// ResultInput wraps an existing conversion result.
type ResultInput struct {
	Result *ConversionResult
}

// TextInput is raw Markdown with an optional display name.
type TextInput struct {
	Name string
	Text string
}

func (PathInput) isInput()   {}
func (ResultInput) isInput() {}
func (TextInput) isInput()   {}

// Resolve turns any Input into a conversion result. Files are read as
// Markdown and treated as a single unit without pages.
func Resolve(in Input) (*ConversionResult, error) {
	switch v := in.(type) {
	case ResultInput:
		if v.Result == nil {
			return nil, newError(InvalidInputKind, "resolve", "", errors.New("nil conversion result"))
		}
		return v.Result, nil
	case *ResultInput:
		if v == nil {
			return nil, newError(InvalidInputKind, "resolve", "", errors.New("nil input"))
		}
		return Resolve(*v)
	case PathInput:
		return readMarkdown(v.Path)
	case *PathInput:
		if v == nil {
			return nil, newError(InvalidInputKind, "resolve", "", errors.New("nil input"))
		}
		return readMarkdown(v.Path)
	case TextInput:
		return FromText(v.Name, v.Text), nil
	case nil:
		return nil, newError(InvalidInputKind, "resolve", "", errors.New("no input"))
	}
	return nil, newError(InvalidInputKind, "resolve", "", errors.New("unsupported input type"))
}

func readMarkdown(path string) (*ConversionResult, error) {
	if path == "" {
		return nil, newError(InvalidInputKind, "resolve", path, errors.New("empty path"))
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(NotFoundKind, "resolve", path, nil)
	}
	if err != nil {
		return nil, newError(InvalidInputKind, "resolve", path, err)
	}
	if info.IsDir() {
		return nil, newError(InvalidInputKind, "resolve", path, errors.New("is a directory"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(InvalidInputKind, "resolve", path, err)
	}
	res := FromText(filepath.Base(path), string(data))
	res.Metadata.FilePath = path
	res.Metadata.FileSize = info.Size()
	return res, nil
}

// FromText wraps raw Markdown as a single-unit conversion result.
func FromText(name, text string) *ConversionResult {
	if name == "" {
		name = "input.md"
	}
	res := &ConversionResult{
		Content: text,
		Metadata: ConversionMetadata{
			FileName:            name,
			FilePath:            name,
			FileType:            FileType(name),
			FileSize:            int64(len(text)),
			TotalTables:         tableguard.CountTables(text),
			ConversionTimestamp: UnixSeconds(time.Now()),
			ConverterUsed:       "passthrough",
		},
	}
	res.Finalize()
	return res
}
