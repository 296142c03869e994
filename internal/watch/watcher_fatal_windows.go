// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 error codes that mean the watcher cannot continue.
const (
	// ERROR_TOO_MANY_OPEN_FILES (4): per-process handle limit, the EMFILE
	// analogue.
	errnoTooManyOpenFiles = syscall.Errno(4)
	// ERROR_INVALID_HANDLE (6): the watched directory was deleted or the
	// handle invalidated.
	errnoInvalidHandle = syscall.Errno(6)
	// ERROR_NOT_ENOUGH_MEMORY (8): no memory for the ReadDirectoryChangesW
	// notification buffer.
	errnoNotEnoughMemory = syscall.Errno(8)
)

// isFatalFsnotifyError reports whether the watcher cannot recover. Windows
// has no inotify-style watch limits, but handle exhaustion, invalidated
// handles, and buffer allocation failures are still unrecoverable.
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, errnoTooManyOpenFiles) ||
		errors.Is(err, errnoInvalidHandle) ||
		errors.Is(err, errnoNotEnoughMemory)
}
