// Package filesystem routes every disk access through one swappable
// afero backend, so tests can run against memory instead of the host.
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the backend every package should go through for file access.
func API() afero.Afero {
	return backend
}

// SetOsFs points the backend at the real operating system filesystem.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs swaps the backend for an in-memory filesystem. Tests call
// this from init so nothing they write survives the process.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}
