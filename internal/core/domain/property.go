package domain

// Property is the owning entity a transaction is booked against. Property CRUD
// lives outside this subsystem; the ingestion pipeline only needs existence
// checks when validating candidate assignments.
type Property struct {
	PropertyID string `json:"propertyID"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	IsActive   bool   `json:"isActive"`
	AuditFields
}
