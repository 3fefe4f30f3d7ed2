package toolserver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ToolManifest is a TOML tool descriptor. Manifests in the manifest
// directory override built-in descriptors with the same name.
type ToolManifest struct {
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	InputSchema map[string]any `toml:"input_schema"`
}

type manifestFile struct {
	Tools []ToolManifest `toml:"tools"`
}

// LoadManifests parses every .toml file in dir. A missing directory is not
// an error.
func LoadManifests(dir string, logger *slog.Logger) ([]ToolManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("manifest directory does not exist, skipping", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest dir: %w", err)
	}

	var manifests []ToolManifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		var mf manifestFile
		if _, err := toml.DecodeFile(path, &mf); err != nil {
			logger.Warn("failed to parse tool manifest", "path", path, "error", err)
			continue
		}
		for _, m := range mf.Tools {
			if m.Name == "" {
				logger.Warn("manifest tool missing name, skipping", "path", path)
				continue
			}
			manifests = append(manifests, m)
		}
		logger.Info("loaded tool manifest", "path", path, "tools", len(mf.Tools))
	}
	return manifests, nil
}

// ApplyManifests overrides the descriptions and schemas of registered tools
// from the given manifests. Manifests naming unknown tools are ignored.
func (s *Server) ApplyManifests(manifests []ToolManifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range manifests {
		t, ok := s.tools[m.Name]
		if !ok {
			continue
		}
		s.tools[m.Name] = &overriddenTool{
			Tool:        t,
			description: m.Description,
			schema:      m.InputSchema,
		}
	}
}

// overriddenTool wraps a registered tool with manifest-supplied metadata
// while keeping its Invoke behavior.
type overriddenTool struct {
	Tool
	description string
	schema      map[string]any
}

func (o *overriddenTool) Description() string {
	if o.description != "" {
		return o.description
	}
	return o.Tool.Description()
}

func (o *overriddenTool) InputSchema() map[string]any {
	if o.schema != nil {
		return o.schema
	}
	return o.Tool.InputSchema()
}
