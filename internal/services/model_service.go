package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"megbot/internal/assets"
	"megbot/internal/models"
)

// ErrUnknownModel is returned when a model key is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// ModelCatalogService exposes the embedded model catalog.
type ModelCatalogService interface {
	ListModelGroups() []models.LLMModelGroup
	GetModel(modelKey string) (*models.LLMModel, error)
	DefaultModel() models.LLMModel
}

type modelCatalogService struct {
	mu            sync.RWMutex
	providerOrder []string
	providerNames map[string]string
	modelOrder    []string
	models        map[string]*models.LLMModel
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
}

// NewModelCatalogService parses the embedded catalog.
func NewModelCatalogService() (ModelCatalogService, error) {
	return ParseModelCatalog(assets.ModelCatalog)
}

// ParseModelCatalog builds a catalog from raw JSON. Entries without a
// provider id or api name are skipped. A model without a key uses its api name.
func ParseModelCatalog(data []byte) (ModelCatalogService, error) {
	var parsed rawModelFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}

	s := &modelCatalogService{
		providerNames: make(map[string]string),
		models:        make(map[string]*models.LLMModel),
	}
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(provider.DisplayName)
		if providerName == "" {
			providerName = providerID
		}
		s.providerNames[providerID] = providerName
		s.providerOrder = append(s.providerOrder, providerID)
		for _, mdl := range provider.Models {
			apiName := strings.TrimSpace(mdl.APIName)
			if apiName == "" {
				continue
			}
			key := strings.TrimSpace(mdl.Key)
			if key == "" {
				key = apiName
			}
			if _, dup := s.models[key]; dup {
				return nil, fmt.Errorf("duplicate model key %q", key)
			}
			s.modelOrder = append(s.modelOrder, key)
			s.models[key] = &models.LLMModel{
				Key:          key,
				DisplayName:  strings.TrimSpace(mdl.DisplayName),
				APIName:      apiName,
				ProviderID:   providerID,
				ProviderName: providerName,
			}
		}
	}
	if len(s.models) == 0 {
		return nil, errors.New("model catalog is empty")
	}
	return s, nil
}

func (s *modelCatalogService) ListModelGroups() []models.LLMModelGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		group := models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerNames[providerID],
			Models:       []models.LLMModel{},
		}
		for _, key := range s.modelOrder {
			if mdl := s.models[key]; mdl.ProviderID == providerID {
				group.Models = append(group.Models, *mdl)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func (s *modelCatalogService) GetModel(modelKey string) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mdl, ok := s.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelKey)
	}
	out := *mdl
	return &out, nil
}

// DefaultModel returns the preference default when it is in the catalog,
// otherwise the first catalog entry.
func (s *modelCatalogService) DefaultModel() models.LLMModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if mdl, ok := s.models[models.DefaultModel]; ok {
		return *mdl
	}
	return *s.models[s.modelOrder[0]]
}
