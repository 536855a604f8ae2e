package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// ManifestName is the manifest file of a directory controller unit.
const ManifestName = "plugin.yaml"

// Discover scans dir for controller units and remembers their manifests:
// single files named <id>.yaml or <id>.yml, and directories <id>/ holding a
// plugin.yaml. Nothing is registered. A missing dir yields no ids.
func (r *Registry) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan controller directory").
			WithContext("path", dir).Build()
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		var id, path string
		switch {
		case entry.IsDir():
			path = filepath.Join(dir, name, ManifestName)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			id = name
		case strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml"):
			id = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
			path = filepath.Join(dir, name)
		default:
			continue
		}

		manifest, err := readManifest(path)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.manifests[id] = manifest
		r.mu.Unlock()
		ids = append(ids, id)
		r.logger.Debug("Discovered controller", logfields.Plugin(id), logfields.Path(path))
	}
	sort.Strings(ids)
	return ids, nil
}

func readManifest(path string) (Manifest, error) {
	// #nosec G304 -- manifests come from the site's own controller directory
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to read controller manifest").
			WithContext("path", path).Build()
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.WrapError(fmt.Errorf("decode %s: %w", filepath.Base(path), err),
			errors.CategoryConfig, "invalid controller manifest").
			Fatal().WithContext("path", path).Build()
	}
	if m.Config == nil {
		m.Config = map[string]any{}
	}
	m.path = path
	return m, nil
}
