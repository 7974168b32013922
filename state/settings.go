package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/ragdeck/api"
)

// Settings defaults.
const (
	DefaultTab           = "documents"
	DefaultMaxGraphNodes = 1000
	DefaultTopK          = 40
)

// SettingsValues is the persisted part of Settings.
type SettingsValues struct {
	APIKey            string        `yaml:"api_key,omitempty"`
	EnableHealthCheck bool          `yaml:"enable_health_check"`
	GraphMaxNodes     int           `yaml:"graph_max_nodes"`
	QueryMode         api.QueryMode `yaml:"query_mode"`
	TopK              int           `yaml:"top_k"`
}

// Settings are user preferences. The backend's node cap and the current
// tab live only in memory.
type Settings struct {
	mu                   sync.RWMutex
	values               SettingsValues
	currentTab           string
	backendMaxGraphNodes int
	path                 string
}

// NewSettings returns settings with defaults and no backing file.
func NewSettings() *Settings {
	return &Settings{
		values: SettingsValues{
			EnableHealthCheck: true,
			GraphMaxNodes:     DefaultMaxGraphNodes,
			QueryMode:         api.QueryModeMix,
			TopK:              DefaultTopK,
		},
		currentTab:           DefaultTab,
		backendMaxGraphNodes: DefaultMaxGraphNodes,
	}
}

// LoadSettings reads settings from a YAML file. A missing file yields
// defaults; Save will create it.
func LoadSettings(path string) (*Settings, error) {
	s := NewSettings()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if !s.values.QueryMode.Valid() {
		s.values.QueryMode = api.QueryModeMix
	}
	if s.values.GraphMaxNodes <= 0 {
		s.values.GraphMaxNodes = DefaultMaxGraphNodes
	}
	if s.values.TopK <= 0 {
		s.values.TopK = DefaultTopK
	}
	return s, nil
}

// Save writes the persisted values to the file given to LoadSettings.
func (s *Settings) Save() error {
	s.mu.RLock()
	path := s.path
	data, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Values returns a copy of the persisted values.
func (s *Settings) Values() SettingsValues {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// APIKey returns the backend API key.
func (s *Settings) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.APIKey
}

// SetAPIKey sets the backend API key.
func (s *Settings) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.APIKey = key
}

// CurrentTab returns the active view.
func (s *Settings) CurrentTab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTab
}

// SetCurrentTab sets the active view.
func (s *Settings) SetCurrentTab(tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTab = tab
}

// HealthCheckEnabled reports whether periodic health checks run.
func (s *Settings) HealthCheckEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.EnableHealthCheck
}

// SetEnableHealthCheck toggles periodic health checks.
func (s *Settings) SetEnableHealthCheck(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.EnableHealthCheck = enable
}

// BackendMaxGraphNodes returns the backend's node cap.
func (s *Settings) BackendMaxGraphNodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backendMaxGraphNodes
}

// SetBackendMaxGraphNodes records the backend's node cap.
func (s *Settings) SetBackendMaxGraphNodes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.backendMaxGraphNodes = n
	}
}

// GraphMaxNodes returns the node limit used for graph queries.
func (s *Settings) GraphMaxNodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.GraphMaxNodes
}

// SetGraphMaxNodes sets the node limit, clamped to the backend cap unless
// force is set, and returns the stored value.
func (s *Settings) SetGraphMaxNodes(n int, force bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force {
		n = min(n, s.backendMaxGraphNodes)
	}
	s.values.GraphMaxNodes = n
	return n
}

// QueryMode returns the default retrieval mode.
func (s *Settings) QueryMode() api.QueryMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.QueryMode
}

// SetQueryMode sets the default retrieval mode.
func (s *Settings) SetQueryMode(m api.QueryMode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown query mode %q", m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.QueryMode = m
	return nil
}

// TopK returns the default number of retrieved items.
func (s *Settings) TopK() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.TopK
}

// SetTopK sets the default number of retrieved items.
func (s *Settings) SetTopK(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k > 0 {
		s.values.TopK = k
	}
}
