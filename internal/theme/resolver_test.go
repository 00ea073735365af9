package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int {
	return &n
}

func TestResolveAll_ChildOverridesParent(t *testing.T) {
	base := &ThemeDefinition{
		Name:    "base",
		Palette: map[string]string{"accent": "#0000FF", "canvas": "#FFFFFF"},
		Controls: map[string]ControlStyle{
			"button": {
				CornerRadius: intPtr(4),
				BackColors:   StateColors{"normal": "#CCCCCC", "hover": "#DDDDDD"},
			},
			"window": {
				BackColors: StateColors{"normal": "#FFFFFF"},
			},
		},
	}
	child := &ThemeDefinition{
		Name:         "child",
		InheritsFrom: "base",
		Palette:      map[string]string{"accent": "#FF0000"},
		Controls: map[string]ControlStyle{
			"button": {BackColors: StateColors{"normal": "#000080"}},
		},
	}

	resolved, failed := ResolveAll(map[string]*ThemeDefinition{"base": base, "child": child})

	require.Empty(t, failed)
	require.Contains(t, resolved, "child")

	got := resolved["child"]
	assert.Empty(t, got.InheritsFrom)
	assert.Equal(t, "#FF0000", got.Palette["accent"])
	assert.Equal(t, "#FFFFFF", got.Palette["canvas"])

	button := got.Controls["button"]
	require.NotNil(t, button.CornerRadius)
	assert.Equal(t, 4, *button.CornerRadius)
	assert.Equal(t, "#000080", button.BackColors["normal"])
	assert.Equal(t, "#DDDDDD", button.BackColors["hover"])
	assert.Contains(t, got.Controls, "window")

	// The parent resolves to itself, untouched by the child's overrides.
	assert.Equal(t, "#0000FF", resolved["base"].Palette["accent"])
	assert.Equal(t, "#CCCCCC", resolved["base"].Controls["button"].BackColors["normal"])
}

func TestResolveAll_ChainOfThree(t *testing.T) {
	defs := map[string]*ThemeDefinition{
		"grandparent": {Name: "grandparent", Palette: map[string]string{"a": "1"}},
		"parent":      {Name: "parent", InheritsFrom: "grandparent", Palette: map[string]string{"b": "2"}},
		"child":       {Name: "child", InheritsFrom: "parent", Palette: map[string]string{"c": "3"}},
	}

	resolved, failed := ResolveAll(defs)

	require.Empty(t, failed)
	got := resolved["child"]
	assert.Equal(t, "1", got.Palette["a"])
	assert.Equal(t, "2", got.Palette["b"])
	assert.Equal(t, "3", got.Palette["c"])
}

func TestResolveAll_CycleFailsOnlyItsMembers(t *testing.T) {
	defs := map[string]*ThemeDefinition{
		"a": {Name: "a", InheritsFrom: "b"},
		"b": {Name: "b", InheritsFrom: "a"},
		"c": {Name: "c", Palette: map[string]string{"x": "1"}},
		"d": {Name: "d", InheritsFrom: "c"},
	}

	resolved, failed := ResolveAll(defs)

	assert.Len(t, resolved, 2)
	assert.Contains(t, resolved, "c")
	assert.Contains(t, resolved, "d")
	assert.Equal(t, "1", resolved["d"].Palette["x"])

	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed["a"], ErrInheritanceCycle)
	assert.ErrorIs(t, failed["b"], ErrInheritanceCycle)
}

func TestResolveAll_UnknownParent(t *testing.T) {
	defs := map[string]*ThemeDefinition{
		"orphan": {Name: "orphan", InheritsFrom: "ghost"},
		"plain":  {Name: "plain"},
	}

	resolved, failed := ResolveAll(defs)

	assert.Contains(t, resolved, "plain")
	assert.NotContains(t, resolved, "orphan")
	require.Contains(t, failed, "orphan")
	assert.ErrorIs(t, failed["orphan"], ErrUnknownParent)
}

func TestResolveAll_SkinOverridesMergeByState(t *testing.T) {
	defs := map[string]*SkinDefinition{
		"base": {
			Name: "base",
			Controls: map[string]ColorOverride{
				"button": {ForeColors: StateColors{"normal": "#FFFFFF", "hover": "#EEEEEE"}},
			},
		},
		"tinted": {
			Name:         "tinted",
			InheritsFrom: "base",
			Controls: map[string]ColorOverride{
				"button": {ForeColors: StateColors{"hover": "#00FF00"}},
			},
		},
	}

	resolved, failed := ResolveAll(defs)

	require.Empty(t, failed)
	button := resolved["tinted"].Controls["button"]
	assert.Equal(t, "#FFFFFF", button.ForeColors["normal"])
	assert.Equal(t, "#00FF00", button.ForeColors["hover"])
}
