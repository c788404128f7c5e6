package dto

import "github.com/rentbooks/property_management_app/internal/adapters/bankprovider"

// WebhookEventTypeTransactionCreated is the only event type this receiver
// handles.
const WebhookEventTypeTransactionCreated = "transaction.created"

// WebhookEvent is the provider's webhook payload.
type WebhookEvent struct {
	Type string                   `json:"type"`
	Data bankprovider.Transaction `json:"data"`
}

// IsValid checks the payload carries the fields processing depends on.
func (e WebhookEvent) IsValid() bool {
	return e.Type == WebhookEventTypeTransactionCreated &&
		e.Data.ID != "" && e.Data.AccountID != "" && e.Data.Amount != ""
}
