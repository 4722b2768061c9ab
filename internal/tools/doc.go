// Package tools runs external programs for the installer.
//
// Ownership boundary:
// - one-shot command execution with captured output
// - line-streamed execution for long-running tools such as DepotDownloader
package tools
