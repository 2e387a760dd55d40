// healthimport is the command-line front end of the import pipeline. It runs
// the same detection, parsing, and normalization path as the service against
// local files, with an in-memory store for dry runs.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
