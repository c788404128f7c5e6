package dto

import "github.com/rentbooks/property_management_app/internal/core/domain"

// ManualSyncResponse acknowledges an accepted manual sync.
type ManualSyncResponse struct {
	SyncLogID string `json:"syncLogId"`
}

// SyncLogListResponse is a page of sync attempt records.
type SyncLogListResponse struct {
	SyncLogs  []domain.SyncLog `json:"syncLogs"`
	NextToken *string          `json:"nextToken,omitempty"`
}
