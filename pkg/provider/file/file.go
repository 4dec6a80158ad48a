// Package file reads location records from JSON or YAML files.
//
// # Format
//
// A layout file is either a bare array of records or an object with a
// records array and an optional fill rate:
//
//	{
//	  "fillRate": 0.42,
//	  "records": [
//	    {"id": "A-01", "x": 0, "z": 0, "stock": 120, "locWeight": 3.5},
//	    {"id": "A-02", "x": 1, "z": 0, "stock": 0, "locWeight": 0}
//	  ]
//	}
//
// The same structure is accepted in YAML. Every document is checked against
// an embedded JSON Schema before it is decoded; type errors fail the whole
// file with INVALID_FORMAT. Records with out-of-range values (negative
// stock, duplicate IDs) pass the schema and are skipped later by the scene
// builder.
//
// # Layout
//
// [New] accepts a single file or a directory. A directory serves one depot
// per file, named after the file without its extension (7.json serves
// depot "7"). A single file serves its records for every depot ID.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Format is the encoding of a layout file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var extensions = []string{".json", ".yaml", ".yml"}

// FormatOf derives the format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported layout file: %s", path)
}

type document struct {
	FillRate float64                `json:"fillRate" yaml:"fillRate"`
	Records  []scene.LocationRecord `json:"records" yaml:"records"`
}

// Decode reads a layout document in the given format.
func Decode(r io.Reader, format Format) (provider.Layout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return provider.Layout{}, errors.Wrap(errors.ErrCodeFetch, err, "read layout")
	}
	if format == YAML {
		if data, err = yamlToJSON(data); err != nil {
			return provider.Layout{}, err
		}
	}
	if err := validate(data); err != nil {
		return provider.Layout{}, err
	}

	var doc document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Records)
	} else {
		err = json.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return provider.Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	return provider.Layout{Records: doc.Records, FillRate: doc.FillRate}, nil
}

// ReadFile decodes the layout file at path.
func ReadFile(path string) (provider.Layout, error) {
	if err := errors.ValidateRecordPath(path); err != nil {
		return provider.Layout{}, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return provider.Layout{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.Layout{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "layout file %s", path)
		}
		return provider.Layout{}, errors.Wrap(errors.ErrCodeFetch, err, "open %s", path)
	}
	defer f.Close()

	l, err := Decode(f, format)
	if err != nil {
		return provider.Layout{}, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return l, nil
}

// WriteFile encodes records as a layout file. The format follows the
// file extension.
func WriteFile(path string, l provider.Layout) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	doc := document{FillRate: l.FillRate, Records: l.Records}
	var data []byte
	switch format {
	case YAML:
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode layout")
	}
	return os.WriteFile(path, data, 0o644)
}

// Provider serves layouts from the file system.
type Provider struct {
	path string
	dir  bool
}

// New returns a provider for a layout file or a directory of layout files.
func New(path string) (*Provider, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "layout path %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "layout path %s", path)
	}
	if !info.IsDir() {
		if err := errors.ValidateRecordPath(path); err != nil {
			return nil, err
		}
	}
	return &Provider{path: path, dir: info.IsDir()}, nil
}

// Path returns the file or directory the provider reads.
func (p *Provider) Path() string { return p.path }

// Layout implements provider.Provider. The file is read on every call.
func (p *Provider) Layout(_ context.Context, depot string) (provider.Layout, error) {
	path := p.path
	if p.dir {
		var err error
		if path, err = p.find(depot); err != nil {
			return provider.Layout{}, err
		}
	}
	l, err := ReadFile(path)
	if err != nil {
		return provider.Layout{}, err
	}
	l.Depot = depot
	l.FetchedAt = time.Now()
	return l, nil
}

// Stock implements provider.Provider by summing the file's records.
func (p *Provider) Stock(ctx context.Context, depot string) (provider.StockInfo, error) {
	l, err := p.Layout(ctx, depot)
	if err != nil {
		return provider.StockInfo{}, err
	}
	return provider.StockInfo{Depot: depot, Stock: provider.TotalStock(l.Records), FillRate: l.FillRate}, nil
}

// Depots implements provider.Provider.
func (p *Provider) Depots(context.Context) ([]provider.Depot, error) {
	if !p.dir {
		return []provider.Depot{{ID: stem(p.path), Name: filepath.Base(p.path)}}, nil
	}
	entries, err := os.ReadDir(p.path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "list %s", p.path)
	}
	var out []provider.Depot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatOf(e.Name()); err != nil {
			continue
		}
		out = append(out, provider.Depot{ID: stem(e.Name()), Name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Provider) find(depot string) (string, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return "", err
	}
	for _, ext := range extensions {
		path := filepath.Join(p.path, depot+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New(errors.ErrCodeNotFound, "no layout file for depot %s in %s", depot, p.path)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse yaml")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "convert yaml")
	}
	return out, nil
}

var _ provider.Provider = (*Provider)(nil)
