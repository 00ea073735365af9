package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	themeSuffix = ".theme.json"
	skinSuffix  = ".skin.json"
)

// ErrUnknownTheme is returned when a selection names a theme that is not in
// the catalog.
var ErrUnknownTheme = errors.New("unknown theme")

// ErrUnknownSkin is returned when a selection names a skin that is not in the
// catalog.
var ErrUnknownSkin = errors.New("unknown skin")

// Config is the persisted selection: which theme and skin are active.
type Config struct {
	CurrentTheme string `json:"currentTheme"`
	CurrentSkin  string `json:"currentSkin"`
}

// Change is delivered to subscribers after every applied selection change.
type Change struct {
	Theme string
	Skin  string
}

// Manager owns the theme catalog and the active selection. Definitions are
// loaded from one directory where the file stem names the definition
// ("dark.theme.json" is the theme "dark"), inheritance is resolved once at
// load, and selection changes are persisted to a JSON config file.
type Manager struct {
	dir        string
	configFile string
	logger     *logrus.Logger

	mu      sync.RWMutex
	themes  map[string]*ThemeDefinition
	skins   map[string]*SkinDefinition
	current Config
	subs    []chan Change
}

// NewManager creates a Manager over dir. The selection is persisted to
// configFile, which lives alongside the catalog by convention.
func NewManager(dir, configFile string, logger *logrus.Logger) *Manager {
	return &Manager{
		dir:        dir,
		configFile: configFile,
		logger:     logger,
		themes:     make(map[string]*ThemeDefinition),
		skins:      make(map[string]*SkinDefinition),
	}
}

// Load reads the catalog and the persisted selection. A definition that
// fails to parse or resolve is skipped with a warning so one bad file never
// takes down the rest of the catalog.
func (m *Manager) Load() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("read theme directory: %w", err)
	}

	themes := make(map[string]*ThemeDefinition)
	skins := make(map[string]*SkinDefinition)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, themeSuffix):
			def := &ThemeDefinition{}
			if err := m.readDefinition(name, def); err != nil {
				m.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable theme file")
				continue
			}
			stem := strings.TrimSuffix(name, themeSuffix)
			def.Name = stem
			themes[stem] = def
		case strings.HasSuffix(name, skinSuffix):
			def := &SkinDefinition{}
			if err := m.readDefinition(name, def); err != nil {
				m.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable skin file")
				continue
			}
			stem := strings.TrimSuffix(name, skinSuffix)
			def.Name = stem
			skins[stem] = def
		}
	}

	resolvedThemes, failedThemes := ResolveAll(themes)
	for name, err := range failedThemes {
		m.logger.WithError(err).WithField("theme", name).Warn("Skipping unresolvable theme")
	}
	resolvedSkins, failedSkins := ResolveAll(skins)
	for name, err := range failedSkins {
		m.logger.WithError(err).WithField("skin", name).Warn("Skipping unresolvable skin")
	}

	current, err := m.readConfig()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.themes = resolvedThemes
	m.skins = resolvedSkins
	m.current = current
	m.mu.Unlock()

	if current.CurrentTheme != "" {
		if _, ok := resolvedThemes[current.CurrentTheme]; !ok {
			m.logger.WithField("theme", current.CurrentTheme).Warn("Configured theme is not in the catalog")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"themes": len(resolvedThemes),
		"skins":  len(resolvedSkins),
	}).Info("Theme catalog loaded")
	return nil
}

func (m *Manager) readDefinition(fileName string, def interface{}) error {
	data, err := os.ReadFile(filepath.Join(m.dir, fileName))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, def)
}

func (m *Manager) readConfig() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(m.configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read theme config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.logger.WithError(err).Warn("Theme config is corrupt, falling back to defaults")
		return Config{}, nil
	}
	return cfg, nil
}

// ApplyTheme activates a theme and an optional skin, persists the selection
// and notifies subscribers. The previous selection stays active on failure.
func (m *Manager) ApplyTheme(themeName, skinName string) error {
	m.mu.Lock()
	if _, ok := m.themes[themeName]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w %q", ErrUnknownTheme, themeName)
	}
	if skinName != "" {
		if _, ok := m.skins[skinName]; !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w %q", ErrUnknownSkin, skinName)
		}
	}

	prev := m.current
	m.current = Config{CurrentTheme: themeName, CurrentSkin: skinName}
	if err := m.saveLocked(); err != nil {
		m.current = prev
		m.mu.Unlock()
		return err
	}
	subs := make([]chan Change, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	change := Change{Theme: themeName, Skin: skinName}
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			// Slow subscriber: drop the notification rather than block
		}
	}

	m.logger.WithFields(logrus.Fields{
		"theme": themeName,
		"skin":  skinName,
	}).Info("Theme applied")
	return nil
}

// CurrentTheme returns the active theme name and its resolved definition.
// The definition is nil when nothing is active.
func (m *Manager) CurrentTheme() (string, *ThemeDefinition) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.CurrentTheme, m.themes[m.current.CurrentTheme]
}

// CurrentSkin returns the active skin name and its resolved definition.
func (m *Manager) CurrentSkin() (string, *SkinDefinition) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.CurrentSkin, m.skins[m.current.CurrentSkin]
}

// Theme returns one resolved theme from the catalog.
func (m *Manager) Theme(name string) (*ThemeDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.themes[name]
	return def, ok
}

// Skin returns one resolved skin from the catalog.
func (m *Manager) Skin(name string) (*SkinDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.skins[name]
	return def, ok
}

// Themes returns the resolved theme names in sorted order.
func (m *Manager) Themes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.themes))
	for name := range m.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Skins returns the resolved skin names in sorted order.
func (m *Manager) Skins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.skins))
	for name := range m.skins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe returns a channel receiving one notification per applied
// change. Notifications to a full channel are dropped, never blocked on.
func (m *Manager) Subscribe() <-chan Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Change, 4)
	m.subs = append(m.subs, ch)
	return ch
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(&m.current, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("save theme config: %w", err)
	}
	return nil
}
