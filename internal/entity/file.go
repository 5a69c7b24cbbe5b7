package entity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource loads a snapshot from one or more YAML files. Later files add
// to earlier ones.
//
// Example:
//
//	adventurers:
//	  - name: Euden
//	    title: The Prince
//	    rarity: 5
//	    element: flame
//	    weapon_type: sword
//	    skills:
//	      - name: Dragon Claw
//	        sp: 2500
type FileSource struct {
	Paths []string
}

var _ Source = (*FileSource)(nil)

// NewFileSource returns a [FileSource] reading paths in order.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{Paths: paths}
}

// Load reads, merges and seals every file.
func (f *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if len(f.Paths) == 0 {
		return nil, ErrNoSnapshot
	}
	parts := make([]*Snapshot, 0, len(f.Paths))
	for _, p := range f.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	snap := Merge(parts...)
	if err := snap.Seal(); err != nil {
		return nil, fmt.Errorf("entity: validate %v: %w", f.Paths, err)
	}
	return snap, nil
}

// LoadFile reads one unsealed snapshot from a YAML file.
func LoadFile(path string) (*Snapshot, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("entity: open data file %q: %w", path, err)
	}
	defer fh.Close()

	s, err := LoadFromReader(fh)
	if err != nil {
		return nil, fmt.Errorf("entity: parse data file %q: %w", path, err)
	}
	return s, nil
}

// LoadFromReader parses snapshot YAML from r. An empty document yields an
// empty snapshot.
func LoadFromReader(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("entity: decode yaml: %w", err)
	}
	return &s, nil
}
