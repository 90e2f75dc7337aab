// Package config manages API credentials and service settings for arcnova.
//
// Keys are resolved in two layers: user-provided keys saved to a JSON config
// file take priority over environment variables. Missing keys do not fail
// startup; the dependent service is simply reported as unconfigured and the
// callers degrade to fallback responses.
package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/arcnova-labs/arcnova/internal/log"
)

// FallbackText is spoken/returned whenever a collaborator API fails.
const FallbackText = "I'm having trouble connecting right now. Please try again."

// DefaultUserConfigFile is where user-provided key overrides are persisted.
const DefaultUserConfigFile = "user_config.json"

// Recognized API key names and the services they unlock.
const (
	KeyGemini      = "GEMINI_API_KEY"
	KeyAssemblyAI  = "ASSEMBLYAI_API_KEY"
	KeyMurf        = "MURF_API_KEY"
	KeyNews        = "NEWS_API_KEY"
	KeyOpenWeather = "OPENWEATHER_API_KEY"
)

// ServiceNames maps key names to human-readable service names.
var ServiceNames = map[string]string{
	KeyGemini:      "Google Gemini AI",
	KeyAssemblyAI:  "AssemblyAI Speech-to-Text",
	KeyMurf:        "Murf Text-to-Speech",
	KeyNews:        "News API",
	KeyOpenWeather: "OpenWeatherMap",
}

// Settings holds non-credential service settings read from the environment.
type Settings struct {
	Port         string
	NewsCountry  string
	NewsLanguage string
}

// LoadSettings reads service settings from the environment with defaults.
func LoadSettings() Settings {
	return Settings{
		Port:         envOr("PORT", "8000"),
		NewsCountry:  envOr("NEWS_COUNTRY", "us"),
		NewsLanguage: envOr("NEWS_LANGUAGE", "en"),
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// KeyStatus describes the configuration state of one API key.
type KeyStatus struct {
	Name        string `json:"name"`
	Configured  bool   `json:"configured"`
	Source      string `json:"source,omitempty"` // "user" or "env"
	MaskedValue string `json:"masked_value,omitempty"`
}

// Store resolves API keys with user overrides layered over the environment.
// It is safe for concurrent use; Reload may be called at any time (e.g. from
// a file watcher) to pick up external edits to the config file.
type Store struct {
	mu       sync.RWMutex
	path     string
	envKeys  map[string]string
	userKeys map[string]string
}

type userConfigFile struct {
	APIKeys map[string]string `json:"api_keys"`
	Version string            `json:"version"`
}

// NewStore creates a Store backed by the given config file path.
// An empty path uses DefaultUserConfigFile.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultUserConfigFile
	}
	s := &Store{
		path:     path,
		envKeys:  make(map[string]string),
		userKeys: make(map[string]string),
	}
	for name := range ServiceNames {
		if v := os.Getenv(name); v != "" {
			s.envKeys[name] = v
			log.Debug("loaded API key from environment", "key", name)
		}
	}
	if err := s.Reload(); err != nil {
		log.Warn("failed to load user config", "path", path, "error", err)
	}
	return s
}

// Path returns the config file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads user overrides from the config file. A missing file is not
// an error; it just means no overrides.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.userKeys = make(map[string]string)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	var file userConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}

	s.mu.Lock()
	s.userKeys = make(map[string]string, len(file.APIKeys))
	for k, v := range file.APIKeys {
		if strings.TrimSpace(v) != "" {
			s.userKeys[k] = v
		}
	}
	n := len(s.userKeys)
	s.mu.Unlock()

	log.Info("loaded user API keys", "count", n, "path", s.path)
	return nil
}

// Save persists user-provided keys to the config file, replacing the current
// override set. Empty values are dropped.
func (s *Store) Save(keys map[string]string) error {
	filtered := make(map[string]string, len(keys))
	for k, v := range keys {
		if strings.TrimSpace(v) != "" {
			filtered[k] = strings.TrimSpace(v)
		}
	}

	data, err := json.MarshalIndent(userConfigFile{APIKeys: filtered, Version: "1.0"}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}

	s.mu.Lock()
	s.userKeys = filtered
	s.mu.Unlock()

	log.Info("saved user API keys", "count", len(filtered), "path", s.path)
	return nil
}

// Clear removes all user overrides and deletes the config file.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.userKeys = make(map[string]string)
	s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Key returns an API key, with user-provided values taking priority over the
// environment. Returns "" when the key is not configured anywhere.
func (s *Store) Key(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.userKeys[name]; ok && v != "" {
		return v
	}
	return s.envKeys[name]
}

// Status reports the configuration state of every recognized key.
func (s *Store) Status() map[string]KeyStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]KeyStatus, len(ServiceNames))
	for name, service := range ServiceNames {
		st := KeyStatus{Name: service}
		if v, ok := s.userKeys[name]; ok && v != "" {
			st.Configured = true
			st.Source = "user"
			st.MaskedValue = MaskKey(v)
		} else if v, ok := s.envKeys[name]; ok && v != "" {
			st.Configured = true
			st.Source = "env"
			st.MaskedValue = MaskKey(v)
		}
		out[name] = st
	}
	return out
}

// MaskKey obscures a key for display, keeping only the first and last four
// characters of sufficiently long keys.
func MaskKey(key string) string {
	if len(key) < 8 {
		return strings.Repeat("*", 8)
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
