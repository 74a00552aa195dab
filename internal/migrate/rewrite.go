package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/ohler55/ojg/oj"
)

// RewriteText applies replacements in order as global literal substitutions
// over the whole document. It reports whether any replacement fired.
func RewriteText(content string, replacements []Replacement) (string, bool) {
	fired := false
	for _, r := range replacements {
		if r.From == "" || !strings.Contains(content, r.From) {
			continue
		}
		content = strings.ReplaceAll(content, r.From, r.To)
		fired = true
	}
	return content, fired
}

// RewriteStrings applies the same replacements only to JSON string values.
// Object keys and non-string values are never touched. The document is
// re-serialized only when a value changed.
func RewriteStrings(data []byte, replacements []Replacement) ([]byte, bool, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse json: %w", err)
	}

	var ops []patchOp
	collectStringOps(doc, "", replacements, &ops)
	if len(ops) == 0 {
		return data, false, nil
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, false, fmt.Errorf("encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode patch: %w", err)
	}

	var out []byte
	if bytes.Contains(bytes.TrimSpace(data), []byte("\n")) {
		out, err = patch.ApplyIndent(data, detectIndent(data))
	} else {
		out, err = patch.Apply(data)
	}
	if err != nil {
		return nil, false, fmt.Errorf("apply patch: %w", err)
	}
	if bytes.HasSuffix(data, []byte("\n")) && !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	return out, true, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

func collectStringOps(node any, pointer string, replacements []Replacement, ops *[]patchOp) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			collectStringOps(v[key], pointer+"/"+escapePointer(key), replacements, ops)
		}
	case []any:
		for i, item := range v {
			collectStringOps(item, pointer+"/"+strconv.Itoa(i), replacements, ops)
		}
	case string:
		if updated, fired := RewriteText(v, replacements); fired {
			*ops = append(*ops, patchOp{Op: "replace", Path: pointer, Value: updated})
		}
	}
}

// escapePointer encodes a key as an RFC 6901 reference token.
func escapePointer(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
}

// detectIndent returns the leading whitespace of the first indented line.
func detectIndent(data []byte) string {
	for _, line := range bytes.Split(data, []byte("\n"))[1:] {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == len(line) || len(trimmed) == 0 {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	return "  "
}
