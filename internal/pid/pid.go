package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	pidFile = "weldctl.pid"
)

// Path returns the location of the PID file.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to the PID file. A stale file left by
// a dead process is overwritten; a live one yields ErrAlreadyRunning.
func Write() error {
	return writeAt(Path())
}

// Remove removes the PID file.
func Remove() error {
	return removeAt(Path())
}

func writeAt(path string) error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(path); err == nil {
		running, err := isRunning(strings.TrimSpace(string(bytes)))
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err)
		}
		if running {
			return errFactory.WithData(errors.ErrAlreadyRunning, path)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func removeAt(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(contents string) (bool, error) {
	pid, err := strconv.Atoi(contents)
	if err != nil {
		// Garbage in the file is treated as stale.
		return false, nil //nolint:nilerr
	}
	if pid == os.Getpid() {
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}
