package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qbitsmart/qsw/domain"
	"qbitsmart/qsw/helpers"
	"qbitsmart/qsw/utils"
)

// Restore puts the files of a backup archive back into the install
// directory and restarts the service.
func (o *Orchestrator) Restore(ctx context.Context, archive string) (*domain.Outcome, error) {
	outcome := domain.NewOutcome("restore", o.State())
	log := helpers.WithRun(o.Log, outcome.Workflow)

	err := o.runRestore(ctx, outcome, archive)
	o.report(log, outcome)
	return outcome, err
}

func (o *Orchestrator) runRestore(ctx context.Context, outcome *domain.Outcome, archive string) error {
	if err := o.requireInstalled(outcome); err != nil {
		return err
	}
	if !utils.FileExists(archive) {
		return outcome.Fail(fmt.Errorf("%w: no such archive %s", domain.ErrInvalidInput, archive))
	}

	o.Console.Warn("Files in %s will be replaced by the ones from %s.", o.Settings.InstallDir, filepath.Base(archive))
	if !o.Prompt.YN("Continue with the restore?", false) {
		return outcome.Fail(domain.ErrAborted)
	}

	source := archive
	if strings.HasSuffix(archive, sealedSuffix) {
		passphrase := o.backupPassphrase()
		if passphrase == nil {
			return outcome.Fail(fmt.Errorf("%w: %s is encrypted, set %s", domain.ErrInvalidInput, filepath.Base(archive), o.Settings.BackupPassphraseEnv))
		}
		scratch, err := os.MkdirTemp("", "qsw-restore-")
		if err != nil {
			return outcome.Fail(err)
		}
		defer os.RemoveAll(scratch)

		source = filepath.Join(scratch, "backup.tar.gz")
		if err := outcome.Do("decrypt", func() error {
			err := utils.OpenSealedFile(archive, source, passphrase)
			if errors.Is(err, utils.ErrSealAuth) {
				return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			return err
		}); err != nil {
			return err
		}
	}

	if err := outcome.Do("stop", func() error { return o.Service.Stop(ctx) }); err != nil {
		return err
	}

	prefix := backupFilesDir + "/"
	if err := outcome.Do("extract", func() error {
		count, err := utils.ExtractTarGz(source, o.Settings.InstallDir, func(name string) (string, bool) {
			name = strings.TrimPrefix(name, "./")
			if !strings.HasPrefix(name, prefix) || name == prefix {
				return "", false
			}
			o.Console.Info("→ Restoring %s", strings.TrimPrefix(name, prefix))
			return strings.TrimPrefix(name, prefix), true
		})
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s holds no application files", domain.ErrExtraction, archive)
		}
		return nil
	}); err != nil {
		return err
	}

	for _, name := range o.Settings.Preserve {
		path := filepath.Join(o.Settings.InstallDir, name)
		if !strings.HasSuffix(name, ".db") || !utils.FileExists(path) {
			continue
		}
		info, err := utils.InspectDatabase(ctx, path)
		if err != nil {
			o.Console.Warn("%s cannot be opened: %v", name, err)
			continue
		}
		if !info.Healthy() {
			o.Console.Warn("%s failed its integrity check: %s", name, info.Integrity)
			continue
		}
		o.Console.Info("%s: %d tables, integrity ok", name, info.Tables)
	}

	if err := o.start(ctx, outcome); err != nil {
		return err
	}
	outcome.Finish(domain.Installed)
	o.Console.Success("Restore done")
	return nil
}
