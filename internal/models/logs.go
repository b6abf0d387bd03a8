package models

// AuditEntry records one field edit performed through the super-admin
// panel. Stored pipe-delimited: id(last8)|field|old|new|timestamp|ip.
type AuditEntry struct {
	OrderID   string `json:"paymentIntentId"`
	Field     string `json:"field"`
	OldValue  string `json:"oldValue"`
	NewValue  string `json:"newValue"`
	Timestamp string `json:"timestamp"`
	EditorIP  string `json:"editorIp"`
}

// LoginLogEntry records one admin login attempt. Stored pipe-delimited:
// ip|userAgent|timestamp|country.
type LoginLogEntry struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	Timestamp string `json:"timestamp"`
	Country   string `json:"country"`
}
