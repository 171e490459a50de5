// Package synctime provides the monotonic clock used for SyncStatus
// timestamps and for ordering "which status update is newer" — never
// wall-clock time, since only relative ordering within one process
// lifetime matters (see SyncStatus.UpdateFromChild).
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package synctime

import "time"

var start = time.Now()

// Now returns elapsed monotonic time since package init.
func Now() time.Duration {
	return time.Since(start)
}
