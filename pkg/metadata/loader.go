package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when a metadata payload is blank.
var ErrEmptyDocument = errors.New("metadata: document is empty")

// Parse decodes a JSON or YAML metadata document. source is only used to
// decorate error messages. Parse does not validate the document; compile it
// to surface structural problems.
func Parse(data []byte, source string) (FormMetadata, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		if source == "" {
			return FormMetadata{}, ErrEmptyDocument
		}
		return FormMetadata{}, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}

	var doc FormMetadata
	jsonErr := json.Unmarshal(data, &doc)
	if jsonErr == nil {
		return doc, nil
	}

	doc = FormMetadata{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	if source == "" {
		source = "document"
	}
	return FormMetadata{}, fmt.Errorf("metadata: parse %s: invalid JSON or YAML: %w", source, jsonErr)
}

// LoadFile reads and parses a metadata document from disk. When the document
// omits an id, the file name without extension is used.
func LoadFile(filename string) (FormMetadata, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return FormMetadata{}, fmt.Errorf("metadata: read %s: %w", filename, err)
	}
	doc, err := Parse(data, filename)
	if err != nil {
		return FormMetadata{}, err
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return doc, nil
}

// LoadFS walks fsys and parses every JSON/YAML document it finds, keyed by
// form id. A nil filesystem yields an empty map.
func LoadFS(fsys fs.FS) (map[string]FormMetadata, error) {
	forms := make(map[string]FormMetadata)
	if fsys == nil {
		return forms, nil
	}

	sources := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isMetadataFile(p) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("metadata: read %s: %w", p, err)
		}
		doc, err := Parse(data, p)
		if err != nil {
			return err
		}

		id := strings.TrimSpace(doc.ID)
		if id == "" {
			id = strings.TrimSuffix(path.Base(p), path.Ext(p))
			doc.ID = id
		}
		if prev, exists := sources[id]; exists {
			return fmt.Errorf("metadata: duplicate form %q (files %s, %s)", id, prev, p)
		}
		sources[id] = p
		forms[id] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forms, nil
}

// IDs returns the sorted keys of a form map produced by LoadFS.
func IDs(forms map[string]FormMetadata) []string {
	ids := make([]string, 0, len(forms))
	for id := range forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isMetadataFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
