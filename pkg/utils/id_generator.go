package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new UUID for generic identifiers
func GenerateID() string {
	return uuid.New().String()
}

// GenerateGrantID generates a unique data access grant ID
func GenerateGrantID() string {
	return "GRANT-" + uuid.New().String()
}

// GenerateAuditID generates a unique audit log entry ID
func GenerateAuditID() string {
	return "AUDIT-" + uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
