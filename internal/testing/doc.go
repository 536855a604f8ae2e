// Package testing contains fixtures and assertions for tests that build whole
// sites: a fluent source tree builder and helpers that check the published tree.
package testing

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600

	// DefaultSiteURL is the site.url of sites created by NewSiteBuilder.
	DefaultSiteURL = "http://www.example.com"
)
