// Package watcher provides drop-directory watching for document intake.
//
// The hybrid watcher prefers fsnotify for low-latency change detection and
// falls back to periodic polling when the platform cannot provide native
// notifications (network mounts, some containers). Rapid event sequences for
// the same file are coalesced by a debouncer so a file written in several
// bursts is indexed once, after it settles.
//
// Only files whose extension passes the configured allowlist are reported;
// hidden files and partial-download suffixes are skipped entirely.
package watcher
