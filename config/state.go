package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"qbitsmart/qsw/domain"
)

// StateStore persists the Deployment record as YAML.
type StateStore struct {
	Path string
}

func NewStateStore(path string) *StateStore {
	return &StateStore{Path: path}
}

// Load returns the stored deployment. ok is false when no record exists.
func (s *StateStore) Load() (dep domain.Deployment, ok bool, err error) {
	content, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return domain.Deployment{}, false, nil
	}
	if err != nil {
		return domain.Deployment{}, false, fmt.Errorf("read state %s: %w", s.Path, err)
	}
	if err := yaml.Unmarshal(content, &dep); err != nil {
		return domain.Deployment{}, false, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	return dep, true, nil
}

func (s *StateStore) Save(dep domain.Deployment) error {
	out, err := yaml.Marshal(dep)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *StateStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
