package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/memo-game/game/engine"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultPresetID is the preset used when a request names none
const DefaultPresetID = "classic"

// Preset describes a difficulty level
type Preset struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Pairs            int    `json:"pairs"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
}

// PresetInfo is a preset together with the identifier used to request it
type PresetInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Preset
}

// ValidatePreset checks a preset for usable values
func ValidatePreset(p *Preset) error {
	if p == nil {
		return errors.New("preset cannot be nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Pairs < engine.MinPairs || p.Pairs > engine.MaxPairs {
		return fmt.Errorf("pairs must be between %d and %d, got %d", engine.MinPairs, engine.MaxPairs, p.Pairs)
	}
	if p.TimeLimitSeconds <= 0 {
		return fmt.Errorf("time_limit_seconds must be positive, got %d", p.TimeLimitSeconds)
	}
	return nil
}

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		presets:   make(map[string]*Preset),
	}

	if err := m.loadDefaultPreset(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}

	return m, nil
}

// LoadPreset loads a preset by id (file name without extension)
func (m *Manager) LoadPreset(id string) (*Preset, error) {
	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if p, exists := m.presets[id]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.presets[id]; exists {
		return p, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse preset: %v", ErrInvalidConfig, err)
	}
	if err := ValidatePreset(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.presets[id] = &p
	return &p, nil
}

// ListPresets returns all valid presets, ordered by pair count
func (m *Manager) ListPresets() ([]*PresetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var presets []*PresetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		p, err := m.LoadPreset(id)
		if err != nil {
			// Skip invalid presets
			continue
		}

		presets = append(presets, &PresetInfo{
			ID:       id,
			Filename: entry.Name(),
			Preset:   *p,
		})
	}

	sort.SliceStable(presets, func(i, j int) bool {
		return presets[i].Pairs < presets[j].Pairs
	})

	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by id
func (m *Manager) SetDefault(id string) error {
	p, err := m.LoadPreset(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = p
	return nil
}

// RefreshCache drops cached presets and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.presets = make(map[string]*Preset)
	m.mu.Unlock()

	return m.loadDefaultPreset()
}

// Count returns the number of cached presets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.presets)
}

// SavePreset writes a preset to disk and caches it
func (m *Manager) SavePreset(id string, p *Preset) error {
	if err := ValidatePreset(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	id = strings.TrimSuffix(id, ".json")

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[id] = p
	m.mu.Unlock()

	return nil
}

// loadDefaultPreset picks classic, then the first valid preset, then a built-in one
func (m *Manager) loadDefaultPreset() error {
	p, err := m.LoadPreset(DefaultPresetID)
	if err != nil {
		presets, listErr := m.ListPresets()
		if listErr != nil || len(presets) == 0 {
			p = minimalPreset()
		} else {
			p = &presets[0].Preset
		}
	}

	m.mu.Lock()
	m.defaultPreset = p
	m.mu.Unlock()
	return nil
}

// minimalPreset is used when the directory holds no valid preset
func minimalPreset() *Preset {
	return &Preset{
		Name:             "default",
		Description:      "Default minimal preset",
		Pairs:            8,
		TimeLimitSeconds: 120,
	}
}
