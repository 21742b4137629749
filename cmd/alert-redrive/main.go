// alert-redrive requeues DEAD stock alert outbox rows so the dispatcher picks
// them up again. Use it after fixing whatever kept Pub/Sub publishing failing.
//
// Usage:
//   go run ./cmd/alert-redrive                # requeue all DEAD rows
//   ALERT_IDS=12,15 go run ./cmd/alert-redrive  # requeue specific rows
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	query := db.WithContext(ctx).Model(&models.StockAlertRecord{}).
		Where("publish_status = ?", models.OutboxPublishStatusDead)

	if raw := os.Getenv("ALERT_IDS"); raw != "" {
		var ids []int
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid ALERT_IDS entry %q: %v\n", part, err)
				os.Exit(1)
			}
			ids = append(ids, id)
		}
		query = query.Where("id IN ?", utils.UniqueSlice(ids))
	}

	result := query.Updates(map[string]any{
		"publish_status":     models.OutboxPublishStatusPending,
		"publish_attempts":   0,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	})
	if result.Error != nil {
		fmt.Fprintf(os.Stderr, "failed to requeue dead alerts: %v\n", result.Error)
		os.Exit(1)
	}
	fmt.Printf("Requeued %d dead alert(s)\n", result.RowsAffected)
}
