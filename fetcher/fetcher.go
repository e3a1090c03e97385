// Package fetcher downloads the application source and installs it with a
// stage-then-swap replacement of the live tree.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"qbitsmart/qsw/config"
	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

const stagePrefix = ".qsw-stage-"

// Fetcher implements domain.ArtifactFetcher.
type Fetcher struct {
	InstallDir string
	Preserve   []string
	Upstream   config.UpstreamSpec
	Client     *http.Client
	Console    *helpers.Console
	Log        zerolog.Logger
}

func New(settings config.Settings, console *helpers.Console, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		InstallDir: settings.InstallDir,
		Preserve:   settings.Preserve,
		Upstream:   settings.Upstream,
		Client:     &http.Client{Timeout: time.Duration(settings.Upstream.Timeout) * time.Second},
		Console:    console,
		Log:        log,
	}
}

// Fetch builds the new tree in a scratch directory next to the install
// directory and swaps it in with two renames. The live tree is untouched
// until the new one is complete; the scratch directory is always removed.
func (f *Fetcher) Fetch(ctx context.Context) (domain.Artifact, error) {
	parent := filepath.Dir(f.InstallDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return domain.Artifact{}, err
	}
	f.removeStaleStages(parent)

	scratch, err := os.MkdirTemp(parent, stagePrefix)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	archive := filepath.Join(scratch, "source.tar.gz")
	artifact, err := f.download(ctx, archive)
	if err != nil {
		return domain.Artifact{}, err
	}

	tree := filepath.Join(scratch, "tree")
	if err := os.Mkdir(tree, 0o755); err != nil {
		return domain.Artifact{}, err
	}
	count, err := utils.ExtractTarGz(archive, tree, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if count == 0 {
		return domain.Artifact{}, fmt.Errorf("%w: archive contains no files", domain.ErrExtraction)
	}
	f.Log.Info().Int("files", count).Msg("archive extracted")

	root, err := sourceRoot(tree)
	if err != nil {
		return domain.Artifact{}, err
	}

	artifact.Preserved, err = f.carryOver(root)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("preserve local files: %w", err)
	}

	if err := swap(root, f.InstallDir, filepath.Join(scratch, "previous")); err != nil {
		return domain.Artifact{}, fmt.Errorf("replace %s: %w", f.InstallDir, err)
	}
	if err := os.Chmod(f.InstallDir, 0o755); err != nil {
		return domain.Artifact{}, err
	}

	f.Log.Info().
		Str("source", artifact.Source).
		Str("version", artifact.Version).
		Strs("preserved", artifact.Preserved).
		Msg("application tree replaced")
	return artifact, nil
}

// carryOver copies preserved files from the live install into the staged
// tree, replacing any same-named file shipped upstream.
func (f *Fetcher) carryOver(root string) ([]string, error) {
	var kept []string
	for _, name := range f.Preserve {
		src := filepath.Join(f.InstallDir, name)
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return kept, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := utils.CopyFile(src, filepath.Join(root, name)); err != nil {
			return kept, err
		}
		kept = append(kept, name)
	}
	return kept, nil
}

func (f *Fetcher) removeStaleStages(parent string) {
	matches, _ := filepath.Glob(filepath.Join(parent, stagePrefix+"*"))
	for _, m := range matches {
		f.Log.Warn().Str("path", m).Msg("removing leftover scratch dir")
		_ = os.RemoveAll(m)
	}
}

// sourceRoot returns the single top-level directory of an extracted
// archive, or dir itself when the archive has no such wrapper.
func sourceRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

func swap(staged, live, previous string) error {
	hadLive := utils.DirExists(live)
	if hadLive {
		if err := os.Rename(live, previous); err != nil {
			return err
		}
	}
	if err := os.Rename(staged, live); err != nil {
		if hadLive {
			if rerr := os.Rename(previous, live); rerr != nil {
				return fmt.Errorf("%v (restoring previous tree also failed: %v)", err, rerr)
			}
		}
		return err
	}
	return nil
}

func copyTo(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
