// Package workspace manages the private staging directory of a build.
//
// Every build writes into a fresh directory created next to the published
// tree's parent (or the system temp dir) and removes it when the build ends,
// whether it succeeded or not.
package workspace
