package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Audit actions recorded by the engine
const (
	ActionView           = "view"
	ActionDownload       = "download"
	ActionExport         = "export"
	ActionGrant          = "grant"
	ActionRequestAccess  = "request_access"
	ActionCheckAccess    = "check_access"
	ActionRevoke         = "revoke"
	ActionAccessDenied   = "access_denied"
	ActionAccountDeleted = "account_deleted"
	ActionAuditViewed    = "audit_viewed"
)

// Resource types referenced by audit entries
const (
	ResourceTypePatient      = "patient"
	ResourceTypeDocument     = "document"
	ResourceTypeConsultation = "consultation"
	ResourceTypeGrant        = "grant"
	ResourceTypeAuditLog     = "audit_log"
	ResourceTypeAccount      = "account"
)

// PHIAccessActions are the actions counted as PHI access in compliance stats
var PHIAccessActions = []string{ActionView, ActionDownload, ActionExport}

// PHIResourceTypes are the resource types counted as PHI in compliance stats
var PHIResourceTypes = []string{ResourceTypePatient, ResourceTypeDocument, ResourceTypeConsultation}

// AuditLog represents the PHI_AUDIT_LOG table. Rows are append-only: nothing
// in this codebase updates or deletes them.
type AuditLog struct {
	LogID        string  `db:"LOG_ID" json:"logId"`
	Timestamp    int64   `db:"LOG_TIME" json:"timestamp"`
	ActorID      *string `db:"ACTOR_ID" json:"actorId,omitempty"`
	OrgID        *string `db:"ORG_ID" json:"orgId,omitempty"`
	Action       string  `db:"ACTION" json:"action"`
	ResourceType string  `db:"RESOURCE_TYPE" json:"resourceType"`
	ResourceID   *string `db:"RESOURCE_ID" json:"resourceId,omitempty"`
	IPAddress    string  `db:"IP_ADDRESS" json:"ipAddress"`
	UserAgent    string  `db:"USER_AGENT" json:"userAgent"`
	Metadata     JSON    `db:"METADATA" json:"metadata,omitempty"`
}

// JSON type for handling JSON fields in MySQL
type JSON json.RawMessage

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}

	var temp interface{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("invalid JSON data: %w", err)
	}

	cleanBytes, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	*j = JSON(cleanBytes)
	return nil
}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = JSON(data)
	return nil
}

// AuditLogFilters narrows audit log queries
type AuditLogFilters struct {
	ActorID  string
	Action   string
	FromTime int64
	ToTime   int64
}

// AuditLogSearchResponse is the paginated list returned by GET /audit/logs
type AuditLogSearchResponse struct {
	Data     []AuditLog          `json:"data"`
	Metadata AuditSearchMetadata `json:"metadata"`
}

// AuditSearchMetadata carries pagination info
type AuditSearchMetadata struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// AuditExportRow is one flat row of GET /audit/export
type AuditExportRow struct {
	Timestamp    int64  `json:"timestamp"`
	Action       string `json:"action"`
	ActorID      string `json:"actorId"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	IPAddress    string `json:"ipAddress"`
	UserAgent    string `json:"userAgent"`
	Metadata     string `json:"metadata"`
}

// ToExportRow flattens an audit entry for tabular export
func (l *AuditLog) ToExportRow() AuditExportRow {
	row := AuditExportRow{
		Timestamp:    l.Timestamp,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
	}
	if l.ActorID != nil {
		row.ActorID = *l.ActorID
	}
	if l.ResourceID != nil {
		row.ResourceID = *l.ResourceID
	}
	if l.Metadata != nil {
		row.Metadata = string(l.Metadata)
	}
	return row
}

// ComplianceStats is returned by GET /audit/stats
type ComplianceStats struct {
	TotalEvents     int `json:"totalEvents"`
	PHIAccessEvents int `json:"phiAccessEvents"`
	ActiveActors    int `json:"activeActors"`
	WindowDays      int `json:"windowDays"`
}
