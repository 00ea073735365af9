package theme

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// newTestManager builds a manager over a temporary catalog with two themes
// (light inherits dark) and one skin.
func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	dir := t.TempDir()

	writeCatalogFile(t, dir, "dark.theme.json", `{
		"palette": {"accent": "#1E88E5", "canvas": "#121212"},
		"controls": {
			"button": {"cornerRadius": 4, "backColors": {"normal": "#1F1F1F", "hover": "#2A2A2A"}},
			"window": {"backColors": {"normal": "#121212"}}
		}
	}`)
	writeCatalogFile(t, dir, "light.theme.json", `{
		"inheritsFrom": "dark",
		"palette": {"canvas": "#FAFAFA"},
		"controls": {
			"button": {"backColors": {"normal": "#FFFFFF"}}
		}
	}`)
	writeCatalogFile(t, dir, "ocean.skin.json", `{
		"controls": {
			"button": {"backColors": {"normal": "#006064"}}
		}
	}`)

	configFile := filepath.Join(dir, "appearance.json")
	return NewManager(dir, configFile, testLogger()), dir, configFile
}

func TestManager_LoadResolvesCatalog(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	require.NoError(t, mgr.Load())

	assert.Equal(t, []string{"dark", "light"}, mgr.Themes())
	assert.Equal(t, []string{"ocean"}, mgr.Skins())

	light, ok := mgr.Theme("light")
	require.True(t, ok)
	assert.Equal(t, "light", light.Name)
	assert.Empty(t, light.InheritsFrom)
	assert.Equal(t, "#FAFAFA", light.Palette["canvas"])
	assert.Equal(t, "#1E88E5", light.Palette["accent"])

	button := light.Controls["button"]
	require.NotNil(t, button.CornerRadius)
	assert.Equal(t, 4, *button.CornerRadius)
	assert.Equal(t, "#FFFFFF", button.BackColors["normal"])
	assert.Equal(t, "#2A2A2A", button.BackColors["hover"])

	// No selection persisted yet.
	name, def := mgr.CurrentTheme()
	assert.Empty(t, name)
	assert.Nil(t, def)
}

func TestManager_ApplyThemePersistsSelection(t *testing.T) {
	mgr, dir, configFile := newTestManager(t)
	require.NoError(t, mgr.Load())

	require.NoError(t, mgr.ApplyTheme("light", "ocean"))

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, "light", cfg.CurrentTheme)
	assert.Equal(t, "ocean", cfg.CurrentSkin)

	// A fresh manager over the same directory picks the selection back up.
	reloaded := NewManager(dir, configFile, testLogger())
	require.NoError(t, reloaded.Load())
	name, def := reloaded.CurrentTheme()
	assert.Equal(t, "light", name)
	require.NotNil(t, def)
	skinName, skinDef := reloaded.CurrentSkin()
	assert.Equal(t, "ocean", skinName)
	require.NotNil(t, skinDef)
}

func TestManager_ApplyThemeNotifiesSubscribers(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	require.NoError(t, mgr.Load())

	ch := mgr.Subscribe()
	require.NoError(t, mgr.ApplyTheme("dark", ""))

	select {
	case change := <-ch:
		assert.Equal(t, Change{Theme: "dark", Skin: ""}, change)
	case <-time.After(time.Second):
		t.Fatal("no change notification received")
	}
}

func TestManager_ApplyUnknownNamesLeaveSelectionUntouched(t *testing.T) {
	mgr, _, configFile := newTestManager(t)
	require.NoError(t, mgr.Load())

	err := mgr.ApplyTheme("neon", "")
	assert.ErrorIs(t, err, ErrUnknownTheme)

	err = mgr.ApplyTheme("dark", "plaid")
	assert.ErrorIs(t, err, ErrUnknownSkin)

	name, _ := mgr.CurrentTheme()
	assert.Empty(t, name)
	_, statErr := os.Stat(configFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_CorruptConfigFallsBackToDefaults(t *testing.T) {
	mgr, _, configFile := newTestManager(t)
	require.NoError(t, os.WriteFile(configFile, []byte("{not json"), 0644))

	require.NoError(t, mgr.Load())

	name, _ := mgr.CurrentTheme()
	assert.Empty(t, name)
}

func TestManager_SkipsMalformedDefinitionFile(t *testing.T) {
	mgr, dir, _ := newTestManager(t)
	writeCatalogFile(t, dir, "broken.theme.json", "{oops")

	require.NoError(t, mgr.Load())

	assert.Equal(t, []string{"dark", "light"}, mgr.Themes())
}

func TestManager_SkipsUnresolvableDefinition(t *testing.T) {
	mgr, dir, _ := newTestManager(t)
	writeCatalogFile(t, dir, "orphan.theme.json", `{"inheritsFrom": "ghost"}`)

	require.NoError(t, mgr.Load())

	assert.Equal(t, []string{"dark", "light"}, mgr.Themes())
	_, ok := mgr.Theme("orphan")
	assert.False(t, ok)
}

func TestManager_MissingDirectoryFailsLoad(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing"), "unused.json", testLogger())
	assert.Error(t, mgr.Load())
}
