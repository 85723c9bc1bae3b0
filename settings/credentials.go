// Package settings stores modloc user data outside any project:
//
//	$XDG_DATA_HOME/modloc/  (default: ~/.local/share/modloc/)
//
// Files stored:
//   - auth.json: API keys and custom endpoints per translation provider
//   - cache.db: translation memory (see package tmcache)
//
// auth.json is a JSON object keyed by provider ID and is written with 0600
// permissions.
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. MODLOC_API_KEY environment variable
//  3. The provider's own variable (OPENAI_API_KEY, GROQ_API_KEY, ...)
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "modloc"
	fileName    = "auth.json"
)

// EnvAPIKey overrides stored keys for every provider.
const EnvAPIKey = "MODLOC_API_KEY"

// Info is the stored entry of one provider.
type Info struct {
	// Key is the API key.
	Key string `json:"key,omitempty"`
	// BaseURL is the endpoint of custom-openai and self-hosted providers.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for modloc.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the modloc data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// Get returns the entry for a provider, or nil if not found.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// Set stores an entry for a provider (upsert).
func Set(providerID string, info *Info) error {
	store := Load()
	store[providerID] = info
	return Save(store)
}

// Remove deletes credentials for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// API key helpers
// ---------------------------------------------------------------------------

// SetAPIKey stores an API key for a provider, keeping a stored base URL.
func SetAPIKey(providerID, key string) error {
	info := &Info{Key: key}
	if old := Get(providerID); old != nil {
		info.BaseURL = old.BaseURL
	}
	return Set(providerID, info)
}

// SetAPIKeyWithBaseURL stores an API key and base URL for custom-openai.
func SetAPIKeyWithBaseURL(providerID, key, baseURL string) error {
	return Set(providerID, &Info{Key: key, BaseURL: baseURL})
}

// GetAPIKey retrieves the stored API key for a provider.
func GetAPIKey(providerID string) string {
	if info := Get(providerID); info != nil {
		return info.Key
	}
	return ""
}

// GetBaseURL retrieves the stored base URL for a provider.
func GetBaseURL(providerID string) string {
	if info := Get(providerID); info != nil {
		return info.BaseURL
	}
	return ""
}

// EnvVarForProvider returns the conventional environment variable holding
// the provider's key, or "" for providers without keys.
func EnvVarForProvider(providerID string) string {
	switch providerID {
	case "openai", "custom-openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey returns the key for providerID following the lookup order
// in the package documentation.
func ResolveAPIKey(providerID, flagKey string) string {
	if flagKey != "" {
		return flagKey
	}
	if k := os.Getenv(EnvAPIKey); k != "" {
		return k
	}
	if env := EnvVarForProvider(providerID); env != "" {
		if k := os.Getenv(env); k != "" {
			return k
		}
	}
	return GetAPIKey(providerID)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
