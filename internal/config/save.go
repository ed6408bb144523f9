package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/gerritnav/internal/log"
)

// SaveStaticProjects replaces lookup.projects in the config file with
// projects. Comments and formatting elsewhere in the file are preserved by
// editing the yaml.Node tree.
func SaveStaticProjects(configPath string, projects map[int]string) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	if err := setPath(doc.Content[0], []string{"lookup", "projects"}, buildProjectsNode(projects)); err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := writeAtomic(configPath, buf.Bytes()); err != nil {
		return err
	}
	log.Info(log.CatConfig, "Saved pinned projects", "path", configPath, "count", len(projects))
	return nil
}

// PinProject adds or replaces one pinned entry and saves the result. The
// returned map is the new full table.
func PinProject(configPath string, existing map[int]string, changeNum int, project string) (map[int]string, error) {
	if changeNum <= 0 {
		return nil, fmt.Errorf("change number must be positive, got %d", changeNum)
	}
	if project == "" {
		return nil, fmt.Errorf("repository must not be empty")
	}
	next := make(map[int]string, len(existing)+1)
	for k, v := range existing {
		next[k] = v
	}
	next[changeNum] = project
	if err := SaveStaticProjects(configPath, next); err != nil {
		return nil, err
	}
	return next, nil
}

// setPath walks keys through nested mappings, creating missing ones, and
// sets the last key to value.
func setPath(node *yaml.Node, keys []string, value *yaml.Node) error {
	key := keys[0]
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value != key {
			continue
		}
		if len(keys) == 1 {
			node.Content[i+1] = value
			return nil
		}
		child := node.Content[i+1]
		if child.Kind == yaml.ScalarNode && (child.Tag == "!!null" || child.Value == "") {
			child.Kind = yaml.MappingNode
			child.Tag = ""
			child.Value = ""
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("config key %q is not a mapping", key)
		}
		return setPath(child, keys[1:], value)
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	if len(keys) == 1 {
		node.Content = append(node.Content, keyNode, value)
		return nil
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content, keyNode, child)
	return setPath(child, keys[1:], value)
}

// buildProjectsNode creates a mapping node with entries sorted by change
// number. Keys are quoted so every YAML reader sees string keys.
func buildProjectsNode(projects map[int]string) *yaml.Node {
	nums := make([]int, 0, len(projects))
	for n := range projects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	node := &yaml.Node{Kind: yaml.MappingNode, Content: make([]*yaml.Node, 0, 2*len(nums))}
	if len(nums) == 0 {
		node.Style = yaml.FlowStyle
	}
	for _, n := range nums {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: strconv.Itoa(n)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: projects[n]},
		)
	}
	return node
}

// writeAtomic writes data to a temp file next to path and renames it into
// place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".gerritnav.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
