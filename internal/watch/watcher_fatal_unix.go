// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports whether the watcher cannot recover. On Linux
// that means inotify resource exhaustion: ENOSPC (watch limit,
// fs.inotify.max_user_watches), EMFILE (process fd limit), or ENFILE
// (system fd limit).
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
