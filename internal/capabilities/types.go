package capabilities

import "gopkg.in/yaml.v3"

// ModelCapabilities describes one model a provider offers
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// SupportsVision is informational; screenshots reach the model as
	// descriptions, never as image bytes
	SupportsVision bool `yaml:"supports_vision" json:"supports_vision"`

	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`
}

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Provider       string              `yaml:"provider" json:"provider"`
	DisplayName    string              `yaml:"display_name" json:"display_name"`
	RequiresAPIKey bool                `yaml:"requires_api_key" json:"requires_api_key"`
	Models         []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML keeps models in the order they appear in the file
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	type header struct {
		Provider       string                       `yaml:"provider"`
		DisplayName    string                       `yaml:"display_name"`
		RequiresAPIKey bool                         `yaml:"requires_api_key"`
		Models         map[string]ModelCapabilities `yaml:"models"`
	}
	var h header
	if err := node.Decode(&h); err != nil {
		return err
	}
	p.Provider = h.Provider
	p.DisplayName = h.DisplayName
	p.RequiresAPIKey = h.RequiresAPIKey

	// modelsNode.Content alternates key, value
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "models" {
			continue
		}
		modelsNode := node.Content[i+1]
		for j := 0; j < len(modelsNode.Content); j += 2 {
			modelID := modelsNode.Content[j].Value
			if model, ok := h.Models[modelID]; ok {
				model.ID = modelID
				p.Models = append(p.Models, model)
			}
		}
		break
	}

	return nil
}
