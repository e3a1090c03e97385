package domain

import "errors"

var (
	ErrNotRoot          = errors.New("this command must be run as root")
	ErrUnsupportedOS    = errors.New("unsupported operating system")
	ErrNotInstalled     = errors.New("qBit Smart Web Manager is not installed")
	ErrAborted          = errors.New("cancelled by user")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoArchive        = errors.New("no release or branch archive available")
	ErrExtraction       = errors.New("archive extraction failed")
	ErrServiceInactive  = errors.New("service is not active")
	ErrProxyInvalid     = errors.New("nginx configuration test failed")
	ErrInstallerMissing = errors.New("installer command not available")
)
