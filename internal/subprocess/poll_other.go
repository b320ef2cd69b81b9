//go:build !unix

package subprocess

import (
	"os"
	"syscall"

	"github.com/wagiedev/cqp-go/internal/errors"
)

const platformSupported = false

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func killProcessGroup(int) error {
	return errors.ErrUnsupportedPlatform
}

func pollReadable(*os.File) (bool, error) {
	return false, errors.ErrUnsupportedPlatform
}
