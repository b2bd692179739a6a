package papers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads the paper graph from a JSON document of the form
//
//	{"papers": [{"id": 1, "num_cites": 3}, ...], "links": [{"from": 2, "to": 1}, ...]}
//
// and optionally appends extra links from a second document holding a bare
// array of links.
type FileSource struct {
	Path           string
	ExtraLinksPath string

	// ReductionDepth bounds the chain length searched by TransitiveReduce;
	// zero means unbounded.
	ReductionDepth int
}

type fileDocument struct {
	Papers []Paper `json:"papers"`
	Links  []Link  `json:"links"`
}

// Load implements Source.
func (f *FileSource) Load(ctx context.Context) (*Set, error) {
	var doc fileDocument
	if err := readJSON(f.Path, &doc); err != nil {
		return nil, err
	}
	set := &Set{Papers: doc.Papers, Links: doc.Links}

	if f.ExtraLinksPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var extra []Link
		if err := readJSON(f.ExtraLinksPath, &extra); err != nil {
			return nil, err
		}
		set.Links = append(set.Links, extra...)
	}

	set.Normalize()
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", f.Path, err)
	}
	TransitiveReduce(set, f.ReductionDepth)
	return set, nil
}

func readJSON(path string, v any) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	if err := json.NewDecoder(fh).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
