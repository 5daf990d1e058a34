/*
Package pregen contains values which are generated ahead of the build process, such as
the version and the manual page, for inclusion in the authzoned executable.
*/
package pregen

const (
	// Version is generated from ChangeLog.md
	Version = "v0.3.0"
	// ReleaseDate is also generated from ChangeLog.md
	ReleaseDate = "2026-10-17"
)
