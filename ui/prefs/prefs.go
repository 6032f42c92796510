// Package prefs provides YAML-based application preferences.
package prefs

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const prefsFile = "preferences.yaml"

// Keys used by the main window.
const (
	KeyLastDir    = "last_directory"
	KeyLastImage  = "last_image"
	KeyEditMode   = "edit_mode"
	KeyShowBounds = "show_bounds"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu      sync.RWMutex
	values  map[string]interface{}
	path    string
	changed bool
}

// Load reads preferences from ~/.config/cutout/preferences.yaml.
// Returns a Prefs with defaults if the file doesn't exist.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "cutout", prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file yields
// empty preferences that will be written to path on Save.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := yaml.Unmarshal(data, &p.values); err != nil || p.values == nil {
		p.values = make(map[string]interface{})
	}
	return p
}

// Path returns the file the preferences are saved to.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.Lock()
	data, err := yaml.Marshal(p.values)
	p.changed = false
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// SaveIfChanged writes preferences only when a value was set since the last
// save.
func (p *Prefs) SaveIfChanged() error {
	p.mu.RLock()
	changed := p.changed
	p.mu.RUnlock()
	if !changed {
		return nil
	}
	return p.Save()
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.changed = true
	p.mu.Unlock()
}

// Float returns a float64 preference, or fallback if not set.
func (p *Prefs) Float(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch n := p.values[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.values[key].(string)
	return s
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.set(key, val)
}

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.set(key, val)
}
