package reports

// Settings is the single global configuration object. It is created with
// defaults on first read and overwritten on save.
type Settings struct {
	APIKey           string  `json:"apiKey,omitempty"`
	Temperature      float64 `json:"temperature"`
	Model            string  `json:"model"`
	AccentColor      string  `json:"accentColor"`
	Theme            string  `json:"theme"`
	DefaultProjectID string  `json:"defaultProjectId,omitempty"`
}

const (
	DefaultTemperature = 0.3
	DefaultModel       = "gemini-2.5-flash"
	DefaultAccentColor = "#4ade80"
	DefaultTheme       = "dark"
)

// DefaultSettings returns the settings used before anything has been saved.
func DefaultSettings() Settings {
	return Settings{
		Temperature: DefaultTemperature,
		Model:       DefaultModel,
		AccentColor: DefaultAccentColor,
		Theme:       DefaultTheme,
	}
}
