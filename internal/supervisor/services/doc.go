// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package services provides suture.Service wrappers for File Vault components.

Each wrapper translates a component lifecycle into suture's Serve pattern:

	HTTPServerService        ListenAndServe / Shutdown
	BackupSchedulerService   Start / Stop / Wait
	VerifierService          ResumePending / Shutdown
	SignatureUpdateService   ticker around UpdateSignatures

Return values drive the supervisor:

	error       service crashed, restarted with backoff
	ctx.Err()   shutdown requested, normal termination
	nil         service finished, not restarted
*/
package services
