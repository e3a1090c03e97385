package utils

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RenameFunc maps an archive entry name to its destination path relative to
// the extraction root. Returning false skips the entry.
type RenameFunc func(name string) (string, bool)

// ExtractTarGz extracts the gzip-compressed tarball src under dest and
// returns the number of regular files written. Entries that would land
// outside dest are rejected.
func ExtractTarGz(src, dest string, rename RenameFunc) (int, error) {
	file, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return 0, err
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	count := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		name := header.Name
		if rename != nil {
			var ok bool
			if name, ok = rename(name); !ok {
				continue
			}
		}
		target, err := within(dest, name)
		if err != nil {
			return count, err
		}
		if err := noSymlinkParents(dest, name); err != nil {
			return count, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, err
			}
		case tar.TypeReg:
			if err := removeSymlink(target); err != nil {
				return count, err
			}
			mode := os.FileMode(header.Mode).Perm() | 0o600
			if err := WriteFrom(target, tarReader, mode); err != nil {
				return count, err
			}
			count++
		case tar.TypeSymlink:
			if err := checkLinkname(dest, name, header.Linkname); err != nil {
				return count, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return count, err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

func within(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	return filepath.Join(root, clean), nil
}

// noSymlinkParents rejects entries whose parent directories, as they exist
// on disk under root, go through a symlink. Such a link may have been
// created by an earlier entry of the same archive.
func noSymlinkParents(root, name string) error {
	cur := root
	for _, part := range strings.Split(filepath.Dir(filepath.Clean(filepath.FromSlash(name))), string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("illegal path in archive: %s goes through a symlink", name)
		}
	}
	return nil
}

// checkLinkname accepts relative link targets that stay under root. ".."
// is only allowed as leading components, where it walks up real
// directories, never after a component that may itself be a symlink.
func checkLinkname(root, name, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal link in archive: %s -> %s", name, linkname)
	}
	leading := true
	for _, part := range strings.Split(filepath.FromSlash(linkname), string(filepath.Separator)) {
		switch part {
		case "", ".":
		case "..":
			if !leading {
				return fmt.Errorf("illegal link in archive: %s -> %s", name, linkname)
			}
		default:
			leading = false
		}
	}
	if _, err := within(root, filepath.Join(filepath.Dir(name), linkname)); err != nil {
		return fmt.Errorf("illegal link in archive: %s -> %s", name, linkname)
	}
	return nil
}

func removeSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	return os.Remove(path)
}
