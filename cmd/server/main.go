/*
main.go - Application entry point

PURPOSE:
  Starts the leave engine: HTTP API plus the outbox relay that mirrors
  approved leave into calendars. Also carries the schema migration commands.

COMMANDS:
  leave-engine serve              Run the API and the relay
  leave-engine migrate up         Apply pending migrations
  leave-engine migrate down       Roll back the last migration
  leave-engine migrate status     List migrations and their state

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, .env.local, then the environment)
  2. Build logger and tracer provider
  3. Open the store (migrations are applied on open)
  4. Build cache, leave service and calendar dispatcher
  5. Start the outbox relay
  6. Start the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the relay after its in-flight batch
  4. Flush traces and close the database

ENVIRONMENT:
  See config/config.go. The most used keys:
    HTTP_ADDR, DB_DRIVER, DB_DSN, REDIS_ADDR, CALENDAR_ENABLED,
    CALENDAR_SHARED_ID, LOG_LEVEL, OTEL_EXPORTER_OTLP_ENDPOINT

SEE ALSO:
  - api/server.go: Router configuration
  - outbox/relay.go: Relay loop
*/
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "leave-engine",
		Short:        "Leave request lifecycle and balance engine",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
