package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

var requiredMetadata = []string{
	"file_name",
	"file_path",
	"file_type",
	"file_size",
	"total_pages",
	"total_tables",
	"conversion_timestamp",
	"converter_used",
}

// Encode writes res in the cache format.
func Encode(w io.Writer, res *ConversionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

// Decode reads a cached conversion result and checks that the required
// metadata keys are present. Any failure is MalformedCacheKind.
func Decode(r io.Reader) (*ConversionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(MalformedCacheKind, "decode", "", err)
	}
	return decodeBytes(data, "")
}

// DecodeFile is Decode for a file path. A missing file is NotFoundKind.
func DecodeFile(path string) (*ConversionResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newError(NotFoundKind, "decode", path, nil)
	}
	if err != nil {
		return nil, newError(MalformedCacheKind, "decode", path, err)
	}
	return decodeBytes(data, path)
}

func decodeBytes(data []byte, path string) (*ConversionResult, error) {
	var raw struct {
		Content  *string                    `json:"content"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newError(MalformedCacheKind, "decode", path, err)
	}
	if raw.Content == nil {
		return nil, newError(MalformedCacheKind, "decode", path, errors.New("missing content"))
	}
	if raw.Metadata == nil {
		return nil, newError(MalformedCacheKind, "decode", path, errors.New("missing metadata"))
	}
	var missing []string
	for _, k := range requiredMetadata {
		if _, ok := raw.Metadata[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, newError(MalformedCacheKind, "decode", path,
			fmt.Errorf("missing metadata fields: %s", strings.Join(missing, ", ")))
	}

	var res ConversionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, newError(MalformedCacheKind, "decode", path, err)
	}
	if res.Metadata.FileName == "" {
		return nil, newError(MalformedCacheKind, "decode", path, errors.New("empty file_name"))
	}
	return &res, nil
}
