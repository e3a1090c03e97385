package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoonb/archivex"

	"qbitsmart/qsw/utils"
)

const (
	backupFilesDir = "files"
	backupStateDir = "state"
	sealedSuffix   = ".enc"
)

// backupPassphrase returns the passphrase sealing backup archives, or nil
// when archives are written in clear.
func (o *Orchestrator) backupPassphrase() []byte {
	if o.Settings.BackupPassphraseEnv == "" {
		return nil
	}
	if v := os.Getenv(o.Settings.BackupPassphraseEnv); v != "" {
		return []byte(v)
	}
	return nil
}

// Backup archives the preserved files and the deployment record into the
// backup directory and returns the archive path.
func (o *Orchestrator) Backup(ctx context.Context) (string, error) {
	archive, err := o.backup(ctx)
	if err != nil {
		return "", err
	}
	if archive == "" {
		o.Console.Warn("Nothing to back up in %s.", o.Settings.InstallDir)
		return "", nil
	}
	o.Console.Success("Backup written to %s", archive)
	return archive, nil
}

// backup returns an empty path when there is nothing to archive.
func (o *Orchestrator) backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(o.Settings.BackupDir, 0o700); err != nil {
		return "", fmt.Errorf("unable to create the backup directory: %w", err)
	}

	// prepare the directory to store the backup
	staging, err := os.MkdirTemp(o.Settings.BackupDir, ".staging-")
	if err != nil {
		return "", fmt.Errorf("unable to create a staging directory: %w", err)
	}
	defer os.RemoveAll(staging)
	root := filepath.Join(staging, "backup")

	count := 0
	for _, name := range o.Settings.Preserve {
		src := filepath.Join(o.Settings.InstallDir, name)
		if !utils.FileExists(src) {
			continue
		}
		if err := utils.CopyFile(src, filepath.Join(root, backupFilesDir, name)); err != nil {
			return "", fmt.Errorf("unable to backup %s: %w", name, err)
		}
		count++
	}
	if count == 0 {
		return "", nil
	}
	if utils.FileExists(o.Store.Path) {
		if err := utils.CopyFile(o.Store.Path, filepath.Join(root, backupStateDir, filepath.Base(o.Store.Path))); err != nil {
			return "", fmt.Errorf("unable to backup the deployment record: %w", err)
		}
	}

	tmp := filepath.Join(staging, "backup_archive.tar.gz")
	tar := new(archivex.TarFile)
	if err := tar.Create(tmp); err != nil {
		return "", err
	}
	if err := tar.AddAll(root, false); err != nil {
		tar.Close()
		return "", err
	}
	if err := tar.Close(); err != nil {
		return "", err
	}

	ext := ".tar.gz"
	passphrase := o.backupPassphrase()
	if passphrase != nil {
		sealed := tmp + sealedSuffix
		if err := utils.SealFile(tmp, sealed, passphrase); err != nil {
			return "", fmt.Errorf("unable to encrypt the backup: %w", err)
		}
		tmp, ext = sealed, ext+sealedSuffix
	}

	// save the archive with the right name
	now := o.now()
	year, month, day := now.Date()
	hour, minutes, seconds := now.Clock()
	archive := filepath.Join(o.Settings.BackupDir, fmt.Sprintf("backup-%d%02d%02d_%02d%02d%02d%s", year, month, day, hour, minutes, seconds, ext))
	if err := os.Rename(tmp, archive); err != nil {
		return "", fmt.Errorf("unable to create the backup file: %w", err)
	}

	o.Log.Info().Str("archive", archive).Int("files", count).Bool("sealed", passphrase != nil).Msg("backup written")
	return archive, nil
}
