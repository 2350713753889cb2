// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package antivirus scans uploaded files with ClamAV.
//
// The ClamAV engine is an explicitly constructed service: it probes for
// clamscan lazily, bounds each scan with a timeout, and guards invocations
// with a circuit breaker and a rate limiter. Commands are executed through
// a CommandRunner so tests can script clamscan and freshclam output.
//
// Verdict mapping:
//
//	clean            -> Safe=true
//	infected         -> Infected=true, Virus=<name>
//	timeout / error  -> Safe=false, Infected=false, Error=<reason>
//	engine missing   -> Safe=true, Error=EngineUnavailableWarning
package antivirus
