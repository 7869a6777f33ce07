// Command localekit resolves, lists and checks localized strings from the
// command line.
//
// Resources are read from a directory (--dir), from a bucket on S3, GCS or
// Azure Blob Storage, or from both. Settings come from localekit.yaml, then
// LOCALEKIT_* environment variables, then flags.
//
// Usage:
//
//	localekit [flags] <command>
//
// Commands:
//
//	get           Resolve a single localized string
//	list          List every localized string of a culture
//	lint          Check resources for parse errors and dangling aliases
//	find-missing  Find keys that some cultures do not translate
//	watch         Print a string again every time resources change
//
// Examples:
//
//	# Resolve a string with parent culture fallback
//	localekit --dir ./locales get en-GB Welcome
//
//	# Format a string with arguments and show where it was searched
//	localekit --dir ./locales get --trace de Greeting Ada
//
//	# Check resources kept in S3
//	localekit --s3-bucket my-locales --s3-region eu-west-1 lint
//
// Installation:
//
//	go install github.com/kdsmith18542/localekit/cmd/localekit@latest
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
