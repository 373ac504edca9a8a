package installer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/guiyumin/vkit/internal/core/downloader"
)

var (
	// ErrDownloadMissing is returned when the archive is absent after download
	ErrDownloadMissing = errors.New("downloaded file not found")
	// ErrTooSmall is returned when the archive is below Options.MinSize
	ErrTooSmall = errors.New("downloaded file seems too small")
	// ErrBadZip is returned for archives archive/zip cannot read
	ErrBadZip = errors.New("downloaded file is not a valid zip file")
	// ErrUnsafePath is returned for zip entries that would land outside the destination
	ErrUnsafePath = errors.New("zip entry escapes destination directory")
	// ErrNoExtractedDir is returned when no directory with the expected prefix exists
	ErrNoExtractedDir = errors.New("could not find extracted folder")
	// ErrNoBinDir is returned when the extracted tree has no bin directory
	ErrNoBinDir = errors.New("bin directory not found")
	// ErrBinaryMissing is returned when an expected executable is absent
	ErrBinaryMissing = errors.New("binary not found")
)

// Step names a stage of Install
type Step string

const (
	StepDownload   Step = "download"
	StepCheckSize  Step = "check size"
	StepExtract    Step = "extract"
	StepLocate     Step = "locate"
	StepVerify     Step = "verify binaries"
	StepInstall    Step = "install"
	StepCleanup    Step = "cleanup"
	StepFinalCheck Step = "final check"
)

// StepError records which stage of Install failed
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

// IsNetworkError reports whether err came from the transport, an HTTP
// error status or a body read that failed or stalled, as opposed to local
// filesystem or archive problems. User cancellation is not a network error.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *downloader.StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var transferErr *downloader.TransferError
	if errors.As(err, &transferErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
