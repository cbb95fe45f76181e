// Package settings persists the small amount of application state that
// survives restarts: the recently opened configurations and the last used
// directory. The file lives under the user XDG config directory.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// ConfigExtension is the suffix identifying a scannable MCQ configuration
// file. Target validation happens here, before any scan process is
// spawned; the scan core trusts its input.
const ConfigExtension = ".mcq.config"

const (
	settingsFile = "corrector/settings.yaml"
	maxRecent    = 12
)

var ErrNotScanConfig = errors.New("not an MCQ configuration file")

type Settings struct {
	Recent     []string `yaml:"recent,omitempty"`
	CurrentDir string   `yaml:"current_dir,omitempty"`
}

// ValidateTarget checks that path exists and looks like an MCQ
// configuration before a scan is launched on it.
func ValidateTarget(path string) error {
	if !strings.HasSuffix(path, ConfigExtension) {
		return fmt.Errorf("%q: %w", path, ErrNotScanConfig)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file: %w", path, ErrNotScanConfig)
	}
	return nil
}

// Path returns the settings file location, creating parent directories as
// needed.
func Path() (string, error) {
	return xdg.ConfigFile(settingsFile)
}

// Load reads the persisted settings. A missing file yields empty
// settings, not an error.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Remember puts path at the head of the recent list. The same file must
// not appear twice; the list is capped.
func (s *Settings) Remember(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	recent := make([]string, 0, len(s.Recent)+1)
	recent = append(recent, path)
	for _, p := range s.Recent {
		if p != path {
			recent = append(recent, p)
		}
	}
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}
	s.Recent = recent
	s.CurrentDir = filepath.Dir(path)
}

// RecentFiles returns the recent configurations, most recent first, with
// entries that no longer exist on disk pruned.
func (s *Settings) RecentFiles() []string {
	alive := make([]string, 0, len(s.Recent))
	for _, p := range s.Recent {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			alive = append(alive, p)
		}
	}
	s.Recent = alive
	return append([]string(nil), alive...)
}
