package preset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"goab/domain/core"
	"goab/domain/metric"
	"goab/ports"

	"gopkg.in/yaml.v3"
)

// Loader reads metric definitions from YAML files laid out as <dir>/<preset>/*.yaml.
type Loader struct {
	dir      string
	defaults metric.Defaults
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, defaults metric.Defaults) *Loader {
	return &Loader{dir: dir, defaults: defaults}
}

var _ ports.PresetLoader = (*Loader)(nil)

// Load parses every definition of the named preset, files in name order.
// A file may hold a single mapping or several YAML documents.
func (l *Loader) Load(name string) ([]*metric.Definition, error) {
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return nil, fmt.Errorf("%w: invalid preset name %q", core.ErrConfig, name)
	}
	presetDir := filepath.Join(l.dir, name)

	entries, err := os.ReadDir(presetDir)
	if err != nil {
		return nil, fmt.Errorf("%w: preset %q: %v", core.ErrConfig, name, err)
	}

	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(presetDir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: preset %q has no metric files in %s", core.ErrConfig, name, presetDir)
	}

	var defs []*metric.Definition
	seen := make(map[string]string)
	for _, file := range files {
		fileDefs, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		for _, def := range fileDefs {
			if prev, dup := seen[def.Name]; dup {
				return nil, fmt.Errorf("%w: metric %q defined in both %s and %s", core.ErrConfig, def.Name, prev, file)
			}
			seen[def.Name] = file
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// LoadFile parses one YAML file.
func (l *Loader) LoadFile(path string) ([]*metric.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	defs, err := Decode(bytes.NewReader(data), l.defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return defs, nil
}

// Decode parses every YAML document in r as one metric definition.
func Decode(r io.Reader, defaults metric.Defaults) ([]*metric.Definition, error) {
	dec := yaml.NewDecoder(r)

	var defs []*metric.Definition
	for {
		var raw map[string]any
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid YAML: %v", core.ErrConfig, err)
		}
		if raw == nil {
			continue
		}
		def, err := metric.Parse(raw, defaults)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
