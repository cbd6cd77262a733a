// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"strings"

	sqlite3 "modernc.org/sqlite/lib"
)

// codeError matches modernc.org/sqlite error types exposed by the driver.
type codeError interface {
	Code() int
}

// IsFull reports whether the supplied error indicates that the history
// store hit its size budget (the max_page_count boundary) or the
// filesystem ran out of space. Callers treat a full store as a
// degraded-recording condition, never as a fingerprinting failure.
func IsFull(err error) bool {
	if err == nil {
		return false
	}
	var coder codeError
	if errors.As(err, &coder) {
		if coder.Code() == int(sqlite3.SQLITE_FULL) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database or disk is full")
}
