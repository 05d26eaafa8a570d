package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unii2mqtt/unii2mqtt/internal/panel"
	"github.com/unii2mqtt/unii2mqtt/internal/util"
)

// Data is the persisted input arrangement of one panel. Caching it
// skips the slow block-by-block discovery scan on later startups.
type Data struct {
	Host       string        `json:"host"`
	Inputs     []panel.Input `json:"inputs"`
	LastUpdate time.Time     `json:"last_update"`
}

// cacheDir resolves the cache directory. Overridable in tests.
var cacheDir = defaultCacheDir

func defaultCacheDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".cache", "unii2mqtt"), nil
}

// cacheFile keys the cache by panel host, so multiple panels do not
// clobber each other's arrangement.
func cacheFile(host string) (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("arrangement_%s.json", util.Slugify(host))), nil
}

// Save writes the arrangement for the given panel host.
func Save(host string, inputs []panel.Input) error {
	data, err := json.Marshal(Data{
		Host:       host,
		Inputs:     inputs,
		LastUpdate: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	path, err := cacheFile(host)
	if err != nil {
		return fmt.Errorf("failed to get cache directory: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %v", err)
	}
	return nil
}

// Load reads the cached arrangement for the given panel host. A
// missing cache file is not an error; it returns nil data.
func Load(host string) (*Data, error) {
	path, err := cacheFile(host)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %v", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %v", err)
	}
	return &data, nil
}

// Delete removes the cached arrangement for the given panel host.
func Delete(host string) error {
	path, err := cacheFile(host)
	if err != nil {
		return fmt.Errorf("failed to get cache directory: %v", err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %v", err)
	}
	return nil
}
