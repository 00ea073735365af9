package theme

// StateColors maps a control state such as "normal", "hover", "pressed" or
// "disabled" to a hex color.
type StateColors map[string]string

// Clone returns an independent copy.
func (s StateColors) Clone() StateColors {
	if s == nil {
		return nil
	}
	out := make(StateColors, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// mergeOver overlays s onto parent state by state: states s sets win, the
// rest are inherited.
func (s StateColors) mergeOver(parent StateColors) StateColors {
	if parent == nil {
		return s.Clone()
	}
	out := parent.Clone()
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ControlStyle describes how one named control kind is drawn: structural
// attributes plus its per-state colors.
type ControlStyle struct {
	CornerRadius *int        `json:"cornerRadius,omitempty"`
	BorderWidth  *int        `json:"borderWidth,omitempty"`
	Padding      *int        `json:"padding,omitempty"`
	BackColors   StateColors `json:"backColors,omitempty"`
	ForeColors   StateColors `json:"foreColors,omitempty"`
	BorderColors StateColors `json:"borderColors,omitempty"`
}

// Clone returns an independent copy.
func (c ControlStyle) Clone() ControlStyle {
	return ControlStyle{
		CornerRadius: cloneIntPtr(c.CornerRadius),
		BorderWidth:  cloneIntPtr(c.BorderWidth),
		Padding:      cloneIntPtr(c.Padding),
		BackColors:   c.BackColors.Clone(),
		ForeColors:   c.ForeColors.Clone(),
		BorderColors: c.BorderColors.Clone(),
	}
}

func (c ControlStyle) mergeOver(parent ControlStyle) ControlStyle {
	out := parent.Clone()
	if c.CornerRadius != nil {
		out.CornerRadius = cloneIntPtr(c.CornerRadius)
	}
	if c.BorderWidth != nil {
		out.BorderWidth = cloneIntPtr(c.BorderWidth)
	}
	if c.Padding != nil {
		out.Padding = cloneIntPtr(c.Padding)
	}
	out.BackColors = c.BackColors.mergeOver(parent.BackColors)
	out.ForeColors = c.ForeColors.mergeOver(parent.ForeColors)
	out.BorderColors = c.BorderColors.mergeOver(parent.BorderColors)
	return out
}

// ColorOverride is a skin's per-control color adjustment. Skins never touch
// structural attributes.
type ColorOverride struct {
	BackColors   StateColors `json:"backColors,omitempty"`
	ForeColors   StateColors `json:"foreColors,omitempty"`
	BorderColors StateColors `json:"borderColors,omitempty"`
}

// Clone returns an independent copy.
func (c ColorOverride) Clone() ColorOverride {
	return ColorOverride{
		BackColors:   c.BackColors.Clone(),
		ForeColors:   c.ForeColors.Clone(),
		BorderColors: c.BorderColors.Clone(),
	}
}

func (c ColorOverride) mergeOver(parent ColorOverride) ColorOverride {
	return ColorOverride{
		BackColors:   c.BackColors.mergeOver(parent.BackColors),
		ForeColors:   c.ForeColors.mergeOver(parent.ForeColors),
		BorderColors: c.BorderColors.mergeOver(parent.BorderColors),
	}
}

// ThemeDefinition is one named theme: structural control styles, an optional
// palette, and an optional table expanding palette slots into per-state
// colors. A theme may inherit from a single parent by name.
type ThemeDefinition struct {
	Name          string                  `json:"name"`
	InheritsFrom  string                  `json:"inheritsFrom,omitempty"`
	Palette       map[string]string       `json:"palette,omitempty"`
	PaletteStates map[string]StateColors  `json:"paletteStates,omitempty"`
	Controls      map[string]ControlStyle `json:"controls,omitempty"`
}

// Clone returns an independent deep copy.
func (t *ThemeDefinition) Clone() *ThemeDefinition {
	out := &ThemeDefinition{
		Name:         t.Name,
		InheritsFrom: t.InheritsFrom,
	}
	if t.Palette != nil {
		out.Palette = make(map[string]string, len(t.Palette))
		for k, v := range t.Palette {
			out.Palette[k] = v
		}
	}
	if t.PaletteStates != nil {
		out.PaletteStates = make(map[string]StateColors, len(t.PaletteStates))
		for k, v := range t.PaletteStates {
			out.PaletteStates[k] = v.Clone()
		}
	}
	if t.Controls != nil {
		out.Controls = make(map[string]ControlStyle, len(t.Controls))
		for k, v := range t.Controls {
			out.Controls[k] = v.Clone()
		}
	}
	return out
}

// ParentName implements Resolvable.
func (t *ThemeDefinition) ParentName() string {
	return t.InheritsFrom
}

// MergeOver merges t over its resolved parent: every value t sets wins,
// everything else is inherited. The result carries no inheritance link.
func (t *ThemeDefinition) MergeOver(parent *ThemeDefinition) *ThemeDefinition {
	out := parent.Clone()
	out.Name = t.Name
	out.InheritsFrom = ""

	for k, v := range t.Palette {
		if out.Palette == nil {
			out.Palette = make(map[string]string, len(t.Palette))
		}
		out.Palette[k] = v
	}
	for slot, colors := range t.PaletteStates {
		if out.PaletteStates == nil {
			out.PaletteStates = make(map[string]StateColors, len(t.PaletteStates))
		}
		out.PaletteStates[slot] = colors.mergeOver(out.PaletteStates[slot])
	}
	for name, style := range t.Controls {
		if out.Controls == nil {
			out.Controls = make(map[string]ControlStyle, len(t.Controls))
		}
		out.Controls[name] = style.mergeOver(out.Controls[name])
	}
	return out
}

// SkinDefinition is one named skin: color and state overrides applied on top
// of whatever theme is active. A skin may inherit from a single parent skin.
type SkinDefinition struct {
	Name         string                   `json:"name"`
	InheritsFrom string                   `json:"inheritsFrom,omitempty"`
	Controls     map[string]ColorOverride `json:"controls,omitempty"`
}

// Clone returns an independent deep copy.
func (s *SkinDefinition) Clone() *SkinDefinition {
	out := &SkinDefinition{
		Name:         s.Name,
		InheritsFrom: s.InheritsFrom,
	}
	if s.Controls != nil {
		out.Controls = make(map[string]ColorOverride, len(s.Controls))
		for k, v := range s.Controls {
			out.Controls[k] = v.Clone()
		}
	}
	return out
}

// ParentName implements Resolvable.
func (s *SkinDefinition) ParentName() string {
	return s.InheritsFrom
}

// MergeOver merges s over its resolved parent skin.
func (s *SkinDefinition) MergeOver(parent *SkinDefinition) *SkinDefinition {
	out := parent.Clone()
	out.Name = s.Name
	out.InheritsFrom = ""

	for name, override := range s.Controls {
		if out.Controls == nil {
			out.Controls = make(map[string]ColorOverride, len(s.Controls))
		}
		out.Controls[name] = override.mergeOver(out.Controls[name])
	}
	return out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
