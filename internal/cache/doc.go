// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package cache provides a thread-safe in-memory cache with TTL expiration.

File Vault uses it for backup listings and stats, which walk the backup
directory on every call. Entries expire lazily on Get; callers invalidate
explicitly after operations that change the underlying data.

	c := cache.New[*backup.Stats](30 * time.Second)
	if stats, ok := c.Get("stats"); ok {
	    return stats
	}
*/
package cache
