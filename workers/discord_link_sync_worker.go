// workers/discord_link_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"league-event-system/models"
	"league-event-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkedAccountFromProfile matches the JSON response from the profile service.
type LinkedAccountFromProfile struct {
	UserID        string    `json:"user_id"`
	DiscordHandle string    `json:"discord_handle"`
	DiscordUserID string    `json:"discord_user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetLinkChangesResponse is the top-level structure of the profile service response.
type GetLinkChangesResponse struct {
	Links []LinkedAccountFromProfile `json:"links"`
}

// DiscordLinkSyncWorker mirrors profile-service Discord links into the local
// discord_links table — the check-in engine's fallback handle source.
type DiscordLinkSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewDiscordLinkSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *DiscordLinkSyncWorker {
	return &DiscordLinkSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *DiscordLinkSyncWorker) Start(ctx context.Context) {
	log.Println("[SYNC] Starting Discord Link Sync Worker (profile service → discord_links)")
	go w.run(ctx)
}

func (w *DiscordLinkSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("[SYNC] Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("[SYNC] Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("[SYNC] Discord Link Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local table.
func (w *DiscordLinkSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM discord_links WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches link changes since the cursor and upserts them locally.
func (w *DiscordLinkSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL %q: %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetLinkChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(response.Links) == 0 {
		return nil
	}

	log.Printf("[SYNC] Processing %d Discord link(s) from profile service", len(response.Links))

	var upsertCount, errorCount int
	for _, remote := range response.Links {
		local := models.DiscordLink{
			UserID:        remote.UserID,
			DiscordHandle: remote.DiscordHandle,
			DiscordUserID: remote.DiscordUserID,
		}
		local.CreatedAt = remote.CreatedAt
		local.UpdatedAt = remote.UpdatedAt

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"discord_handle", "discord_user_id", "updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] Failed to upsert discord_link (user_id=%q, handle=%q): %v",
				remote.UserID, remote.DiscordHandle, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] Synced %d link(s) (%d upserted, %d errors)", len(response.Links), upsertCount, errorCount)
	return nil
}
