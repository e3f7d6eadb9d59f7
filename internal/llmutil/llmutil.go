// Package llmutil assembles the model registry from viper configuration:
// the two built-in proxy-backed models plus an optional YAML catalog for
// extra entries.
package llmutil

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ildar2244/advent4/llm"
	anthropicProvider "github.com/ildar2244/advent4/providers/anthropic"
	openaiProvider "github.com/ildar2244/advent4/providers/openai"
)

// CatalogEntry is one model definition in the llm.models_file YAML catalog.
type CatalogEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
}

type catalogFile struct {
	Models []CatalogEntry `yaml:"models"`
}

func APIKeyFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.api_key"))
}

func RequestTimeoutFromViper() time.Duration {
	return viper.GetDuration("llm.request_timeout")
}

// RegistryFromViper builds the model registry. The built-in gpt and claude
// entries come first so that gpt is the default for new users; entries from
// llm.models_file are appended after them.
func RegistryFromViper() (*llm.Registry, error) {
	apiKey := APIKeyFromViper()
	if apiKey == "" {
		return nil, fmt.Errorf("llm.api_key is not set")
	}
	timeout := RequestTimeoutFromViper()

	reg := llm.NewRegistry()

	builtins := []CatalogEntry{
		{
			ID:          "gpt",
			DisplayName: strings.TrimSpace(viper.GetString("llm.openai.display_name")),
			Provider:    "openai",
			Model:       strings.TrimSpace(viper.GetString("llm.openai.model")),
			Endpoint:    strings.TrimSpace(viper.GetString("llm.openai.endpoint")),
		},
		{
			ID:          "claude",
			DisplayName: strings.TrimSpace(viper.GetString("llm.anthropic.display_name")),
			Provider:    "anthropic",
			Model:       strings.TrimSpace(viper.GetString("llm.anthropic.model")),
			Endpoint:    strings.TrimSpace(viper.GetString("llm.anthropic.endpoint")),
		},
	}
	for _, entry := range builtins {
		if err := registerEntry(reg, entry, apiKey, timeout); err != nil {
			return nil, err
		}
	}

	catalogPath := strings.TrimSpace(viper.GetString("llm.models_file"))
	if catalogPath != "" {
		entries, err := LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if err := registerEntry(reg, entry, apiKey, timeout); err != nil {
				return nil, err
			}
		}
	}

	return reg, nil
}

// LoadCatalog reads extra model definitions from a YAML file.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse models catalog: %w", err)
	}
	for i, entry := range file.Models {
		if strings.TrimSpace(entry.ID) == "" {
			return nil, fmt.Errorf("models catalog: entry %d has no id", i)
		}
		if strings.TrimSpace(entry.Model) == "" {
			return nil, fmt.Errorf("models catalog: entry %q has no model", entry.ID)
		}
	}
	return file.Models, nil
}

func registerEntry(reg *llm.Registry, entry CatalogEntry, sharedKey string, timeout time.Duration) error {
	apiKey := strings.TrimSpace(entry.APIKey)
	if apiKey == "" {
		apiKey = sharedKey
	}

	var client llm.Client
	switch strings.ToLower(strings.TrimSpace(entry.Provider)) {
	case "", "openai":
		client = openaiProvider.New(openaiProvider.Config{
			Endpoint:       entry.Endpoint,
			APIKey:         apiKey,
			RequestTimeout: timeout,
		})
	case "anthropic":
		client = anthropicProvider.New(anthropicProvider.Config{
			Endpoint:       entry.Endpoint,
			APIKey:         apiKey,
			RequestTimeout: timeout,
		})
	default:
		return fmt.Errorf("unknown provider %q for model %q", entry.Provider, entry.ID)
	}

	return reg.Register(llm.ModelOption{
		ID:          entry.ID,
		DisplayName: entry.DisplayName,
		Model:       entry.Model,
		Client:      client,
	})
}
