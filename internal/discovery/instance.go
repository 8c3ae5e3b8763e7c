package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Instance describes a running tabbridge process so local MCP clients
// can find its HTTP port without a hardcoded address.
type Instance struct {
	ID        string    `json:"id"`
	Port      int       `json:"port"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
	Dir       string    `json:"dir"`
}

// InstancesDir returns the shared directory instance files live in,
// creating it if needed.
func InstancesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".tabbridge", "instances")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create instances dir: %w", err)
	}
	return dir, nil
}

// Register writes this instance's file. The write happens under a file
// lock to a temp file followed by a rename, so watchers never observe a
// partial record.
func Register(inst Instance) (string, error) {
	dir, err := InstancesDir()
	if err != nil {
		return "", err
	}

	lock := flock.New(filepath.Join(dir, ".registry.lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock instance registry: %w", err)
	}
	defer lock.Unlock()

	raw, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, inst.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write instance file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to publish instance file: %w", err)
	}
	return path, nil
}

// Unregister removes this instance's file. Missing files are ignored so
// shutdown stays idempotent.
func Unregister(id string) error {
	dir, err := InstancesDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all registered instances, skipping unreadable files.
func List() ([]Instance, error) {
	dir, err := InstancesDir()
	if err != nil {
		return nil, err
	}
	return listDir(dir)
}

func listDir(dir string) ([]Instance, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	instances := make([]Instance, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var inst Instance
		if err := json.Unmarshal(raw, &inst); err != nil {
			continue
		}
		if inst.ID == "" {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}
