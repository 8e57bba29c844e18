package models

import "fmt"

// PreferenceKey names one field of the Preferences record. The values match
// the JSON field names of the persisted blob.
type PreferenceKey string

const (
	PrefDarkMode         PreferenceKey = "darkMode"
	PrefSidebarCollapsed PreferenceKey = "sidebarCollapsed"
	PrefModel            PreferenceKey = "model"
	PrefHasAPIKey        PreferenceKey = "hasApiKey"
	PrefAPIProvider      PreferenceKey = "apiProvider"
)

const (
	DefaultModel    = "gpt-3.5-turbo"
	DefaultProvider = "openai"
)

// Preferences is the singleton settings record persisted client-side.
type Preferences struct {
	DarkMode         bool   `json:"darkMode"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
	Model            string `json:"model"`
	HasAPIKey        bool   `json:"hasApiKey"`
	APIProvider      string `json:"apiProvider"`
}

// PreferencesPatch is a shallow partial update. Nil fields are left alone.
type PreferencesPatch struct {
	DarkMode         *bool   `json:"darkMode,omitempty"`
	SidebarCollapsed *bool   `json:"sidebarCollapsed,omitempty"`
	Model            *string `json:"model,omitempty"`
	HasAPIKey        *bool   `json:"hasApiKey,omitempty"`
	APIProvider      *string `json:"apiProvider,omitempty"`
}

// DefaultPreferences returns the record used when nothing valid is stored.
func DefaultPreferences() Preferences {
	return Preferences{
		DarkMode:         false,
		SidebarCollapsed: false,
		Model:            DefaultModel,
		HasAPIKey:        false,
		APIProvider:      DefaultProvider,
	}
}

// PreferenceKeys lists every key in record order.
func PreferenceKeys() []PreferenceKey {
	return []PreferenceKey{PrefDarkMode, PrefSidebarCollapsed, PrefModel, PrefHasAPIKey, PrefAPIProvider}
}

// Value returns the field stored under key.
func (p Preferences) Value(key PreferenceKey) (any, error) {
	switch key {
	case PrefDarkMode:
		return p.DarkMode, nil
	case PrefSidebarCollapsed:
		return p.SidebarCollapsed, nil
	case PrefModel:
		return p.Model, nil
	case PrefHasAPIKey:
		return p.HasAPIKey, nil
	case PrefAPIProvider:
		return p.APIProvider, nil
	}
	return nil, fmt.Errorf("unknown preference %q", key)
}

// With returns a copy of p with key set to value. The value must have the
// field's type.
func (p Preferences) With(key PreferenceKey, value any) (Preferences, error) {
	switch key {
	case PrefDarkMode, PrefSidebarCollapsed, PrefHasAPIKey:
		b, ok := value.(bool)
		if !ok {
			return p, fmt.Errorf("preference %q expects a bool, got %T", key, value)
		}
		switch key {
		case PrefDarkMode:
			p.DarkMode = b
		case PrefSidebarCollapsed:
			p.SidebarCollapsed = b
		default:
			p.HasAPIKey = b
		}
		return p, nil
	case PrefModel, PrefAPIProvider:
		s, ok := value.(string)
		if !ok {
			return p, fmt.Errorf("preference %q expects a string, got %T", key, value)
		}
		if key == PrefModel {
			p.Model = s
		} else {
			p.APIProvider = s
		}
		return p, nil
	}
	return p, fmt.Errorf("unknown preference %q", key)
}

// Merge applies the non-nil fields of patch.
func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	if patch.DarkMode != nil {
		p.DarkMode = *patch.DarkMode
	}
	if patch.SidebarCollapsed != nil {
		p.SidebarCollapsed = *patch.SidebarCollapsed
	}
	if patch.Model != nil {
		p.Model = *patch.Model
	}
	if patch.HasAPIKey != nil {
		p.HasAPIKey = *patch.HasAPIKey
	}
	if patch.APIProvider != nil {
		p.APIProvider = *patch.APIProvider
	}
	return p
}
