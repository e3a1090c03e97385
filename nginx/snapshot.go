package nginx

import (
	"os"
)

// snapshot remembers what a path held before Configure touched it.
type snapshot struct {
	path   string
	exists bool
	link   string
	data   []byte
	mode   os.FileMode
}

func take(path string) (snapshot, error) {
	s := snapshot{path: path}
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	s.exists = true
	s.mode = info.Mode()
	if info.Mode()&os.ModeSymlink != 0 {
		s.link, err = os.Readlink(path)
		return s, err
	}
	s.data, err = os.ReadFile(path)
	return s, err
}

func (s snapshot) restore() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if !s.exists {
		return nil
	}
	if s.link != "" {
		return os.Symlink(s.link, s.path)
	}
	return os.WriteFile(s.path, s.data, s.mode.Perm())
}
