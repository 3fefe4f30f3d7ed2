package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Meta is the YAML frontmatter carried by every artifact.
type Meta struct {
	Title   string    `yaml:"title"`
	Query   string    `yaml:"query"`
	Created time.Time `yaml:"created"`
	Tools   []string  `yaml:"tools,omitempty"`
}

// Artifact is a markdown document with YAML frontmatter.
type Artifact struct {
	Meta Meta
	Body string
}

// Write renders the artifact to path, creating parent directories as needed.
func Write(path string, a Artifact) error {
	meta, err := yaml.Marshal(a.Meta)
	if err != nil {
		return fmt.Errorf("marshal frontmatter: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(a.Body)
	if !strings.HasSuffix(a.Body, "\n") {
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Read parses an artifact from path. Files without frontmatter yield an
// empty Meta and the full content as Body.
func Read(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		yamlLines     []string
		bodyLines     []string
		inFrontmatter bool
		sawFirstLine  bool
		bodyStarted   bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if !sawFirstLine {
			sawFirstLine = true
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = true
				continue
			}
		}
		if inFrontmatter {
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = false
				bodyStarted = true
				continue
			}
			yamlLines = append(yamlLines, line)
			continue
		}
		if bodyStarted && len(bodyLines) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	if err := scanner.Err(); err != nil {
		return Artifact{}, err
	}

	var a Artifact
	if len(yamlLines) > 0 {
		if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &a.Meta); err != nil {
			return Artifact{}, fmt.Errorf("parse frontmatter: %w", err)
		}
	}
	a.Body = strings.Join(bodyLines, "\n")
	return a, nil
}
