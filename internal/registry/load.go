package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a registry file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension. Unknown extensions
// are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads a list of entries. The document must be a top-level list.
// Unknown keys are rejected so a typo cannot silently drop a route.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var entries []Entry
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&entries); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding yaml registry: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decoding json registry (expected a list of SME entries): %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}
	return entries, nil
}

// Source yields the raw registry entries. Implementations read a file, a
// database table or a fixture.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// FileSource reads a JSON or YAML registry file.
type FileSource struct {
	Path string
}

func (f FileSource) Entries(_ context.Context) ([]Entry, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening registry %s: %w", f.Path, err)
	}
	defer file.Close()
	return Decode(file, FormatFromPath(f.Path))
}

// StaticSource serves a fixed entry list.
type StaticSource []Entry

func (s StaticSource) Entries(_ context.Context) ([]Entry, error) {
	return append([]Entry(nil), s...), nil
}

// Load reads src and builds a snapshot stamped with now.
func Load(ctx context.Context, src Source, now time.Time) (*Snapshot, error) {
	entries, err := src.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(entries, now)
}

// LoadFile is Load for a registry file.
func LoadFile(path string, now time.Time) (*Snapshot, error) {
	return Load(context.Background(), FileSource{Path: path}, now)
}
