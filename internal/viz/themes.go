package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme of the viewer. Categories are assigned
// palette entries in order of first appearance.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Link       lipgloss.Color
	Selected   lipgloss.Color
	Muted      lipgloss.Color
	Categories []lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Primary:  lipgloss.Color("#ff00ff"),
		Link:     lipgloss.Color("#444466"),
		Selected: lipgloss.Color("#ffff00"),
		Muted:    lipgloss.Color("#666666"),
		Categories: []lipgloss.Color{
			"#00ffff", "#ff00ff", "#00ff88", "#ff8800", "#8888ff",
		},
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Link:     lipgloss.Color("#005500"),
		Selected: lipgloss.Color("#ffff00"),
		Muted:    lipgloss.Color("#005500"),
		Categories: []lipgloss.Color{
			"#00ff00", "#88ff88", "#00cc00", "#ccffcc",
		},
	}

	ThemeOcean = Theme{
		Name:     "ocean",
		Primary:  lipgloss.Color("#0077be"),
		Link:     lipgloss.Color("#4488aa"),
		Selected: lipgloss.Color("#ffd700"),
		Muted:    lipgloss.Color("#4488aa"),
		Categories: []lipgloss.Color{
			"#00a8cc", "#00ff88", "#e0f0ff", "#ffcc00", "#ff4444",
		},
	}

	ThemeSunset = Theme{
		Name:     "sunset",
		Primary:  lipgloss.Color("#ff6b6b"),
		Link:     lipgloss.Color("#8b6b8c"),
		Selected: lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#8b6b8c"),
		Categories: []lipgloss.Color{
			"#feca57", "#ff9ff3", "#5fd068", "#ff4757",
		},
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// palette is the canvas palette of t: one style per category followed by
// the selection highlight.
func (t Theme) palette() []lipgloss.Style {
	out := make([]lipgloss.Style, 0, len(t.Categories)+1)
	for _, c := range t.Categories {
		out = append(out, lipgloss.NewStyle().Foreground(c))
	}
	return append(out, lipgloss.NewStyle().Foreground(t.Selected).Bold(true))
}
