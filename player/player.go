// Package player drives the external media engine. The primary backend is
// mpv via its JSON-IPC interface; it satisfies the playback.Engine contract
// so the reconciliation machinery never talks to the process directly.
package player
