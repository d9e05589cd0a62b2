package main

import (
	"fmt"
	"os"

	"routeops/internal/cmd"
)

// Process entrypoint. The subcommands are:
// serve: HTTP API for the route lease service.
// worker: outbox relay and reassignment reconciler loop.
// migrate: schema creation for the configured database.
func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
