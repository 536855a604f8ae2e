// Package site builds a site: it runs the enabled controllers, renders and
// copies the source tree into a private staging directory, then reconciles
// the staging directory into the published tree. Watcher rebuilds on change.
package site
