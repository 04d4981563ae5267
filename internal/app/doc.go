// Package app wires the command entry points to the application services.
// It assembles the metadata resolver, the library index, the source router,
// and the download coordinator, and orchestrates the acquisition run.
package app
