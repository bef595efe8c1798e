package models

// Connection is a user-managed database connection definition persisted in the application datastore.
type Connection struct {
	BaseModel

	Name                             string `gorm:"not null;index" json:"name"`
	Description                      string `json:"description"`
	Driver                           string `gorm:"not null;index;size:64" json:"driver"`
	MultiStatementTransactionEnabled bool   `gorm:"not null;default:false" json:"multiStatementTransactionEnabled"`
	IdleTimeoutSeconds               int    `gorm:"not null;default:0" json:"idleTimeoutSeconds"`
	// Data holds the serialized driver payload: plain JSON, or ciphertext when payload encryption is on.
	// Legacy rows may carry plain JSON regardless of the current mode.
	Data string `gorm:"type:text" json:"-"`
}

// ConnectionListColumns is the fixed projection used when listing connections.
var ConnectionListColumns = []string{
	"id",
	"name",
	"description",
	"driver",
	"multi_statement_transaction_enabled",
	"idle_timeout_seconds",
	"data",
	"created_at",
	"updated_at",
}
