package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"pihla/internal/fileutil"
)

// UpdateCMSConfig points the CMS media settings at the upload tree. Only the
// top-level media_folder and public_folder keys are edited; comments and the
// rest of the document are preserved. A missing file is not an error. It
// reports whether the file was rewritten.
func UpdateCMSConfig(path, mediaFolder, publicFolder string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read cms config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("parse cms config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return false, fmt.Errorf("parse cms config: %s is not a mapping", path)
	}
	root := doc.Content[0]

	changed := setScalar(root, "media_folder", mediaFolder)
	if setScalar(root, "public_folder", publicFolder) {
		changed = true
	}
	if !changed {
		return false, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return false, fmt.Errorf("encode cms config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, fmt.Errorf("encode cms config: %w", err)
	}
	if err := fileutil.WriteFileSync(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write cms config: %w", err)
	}
	return true, nil
}

// setScalar sets key to value in mapping, appending the pair when absent.
func setScalar(mapping *yaml.Node, key, value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		node := mapping.Content[i+1]
		if node.Kind == yaml.ScalarNode && node.Value == value {
			return false
		}
		node.Kind = yaml.ScalarNode
		node.Tag = "!!str"
		node.Value = value
		node.Content = nil
		return true
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
	return true
}
