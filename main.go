// Toot Warehouse is the medallion loader service for enriched Mastodon statuses.
//
// The service accepts already-cleaned, sentiment-scored status batches and
// materializes them across Bronze (raw + lineage), Silver (star schema with
// SCD2 account history) and Gold (materialized analytics views) layers in
// PostgreSQL.
package main

import (
	"fmt"
	"os"

	"github.com/jonesrussell/toot-warehouse/internal/bootstrap"
)

func main() {
	if err := bootstrap.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start warehouse service: %v\n", err)
		os.Exit(1)
	}
}
