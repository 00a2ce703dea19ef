// Package ruleconfig loads declarative rules from YAML files and keeps a
// rule set in sync with them.
//
// A rule path is either one file or a directory. Directory files are read in
// name order (non-recursive, hidden files skipped) and rule ids must be
// unique across all of them.
package ruleconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/alertkeeper/internal/types"
)

// Extensions lists the file extensions treated as rule files.
var Extensions = []string{".yaml", ".yml"}

// document is the top-level shape of a rule file.
type document struct {
	Rules []types.RuleDefinition `yaml:"rules"`
}

// Load reads every rule definition under path.
func Load(path string) ([]types.RuleDefinition, error) {
	files, err := ruleFiles(path)
	if err != nil {
		return nil, err
	}

	var defs []types.RuleDefinition
	origin := make(map[types.RuleID]string)
	for _, file := range files {
		fileDefs, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		for _, def := range fileDefs {
			if prev, dup := origin[def.ID]; dup {
				return nil, fmt.Errorf("%w: %s (in %s and %s)", types.ErrDuplicateRuleID, def.ID, prev, file)
			}
			origin[def.ID] = file
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Parse decodes rule definitions from r. Unknown keys are rejected.
func Parse(r io.Reader) ([]types.RuleDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs []types.RuleDefinition
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		defs = append(defs, doc.Rules...)
	}
	return defs, nil
}

func loadFile(file string) ([]types.RuleDefinition, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	defs, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return defs, nil
}

func ruleFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rule path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isRuleFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isRuleFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range Extensions {
		if ext == want {
			return true
		}
	}
	return false
}
