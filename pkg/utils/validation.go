package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateActorID validates a doctor/patient/admin identifier
func ValidateActorID(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("actor ID cannot be empty")
	}
	if len(actorID) > 255 {
		return fmt.Errorf("actor ID too long (max 255 characters)")
	}
	return nil
}

// ValidateOrgID validates organization ID
func ValidateOrgID(orgID string) error {
	if orgID == "" {
		return fmt.Errorf("organization ID cannot be empty")
	}
	if len(orgID) > 255 {
		return fmt.Errorf("organization ID too long (max 255 characters)")
	}
	return nil
}

// ValidateGrantID validates grant ID format
func ValidateGrantID(grantID string) error {
	if grantID == "" {
		return fmt.Errorf("grant ID cannot be empty")
	}
	if len(grantID) > 255 {
		return fmt.Errorf("grant ID too long (max 255 characters)")
	}
	return nil
}

// ValidateAccessLevel validates a grant access level
func ValidateAccessLevel(level string) error {
	if level == "" {
		return fmt.Errorf("access level cannot be empty")
	}

	validLevels := map[string]bool{
		"read_only":    true,
		"read_analyze": true,
	}

	if !validLevels[level] {
		return fmt.Errorf("invalid access level: %s", level)
	}

	return nil
}

// ValidateExpiryDays validates a grant expiry window in days.
// Zero means no expiry.
func ValidateExpiryDays(days int) error {
	if days < 0 {
		return fmt.Errorf("expiry days cannot be negative")
	}
	if days > 3650 {
		return fmt.Errorf("expiry days too large (max 3650)")
	}
	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// SanitizeString removes dangerous characters from user input
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")
	// Trim whitespace
	input = strings.TrimSpace(input)
	return input
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // Default limit
	}
	if limit > 100 {
		return 100 // Max limit
	}
	return limit
}

// ValidateOffset validates pagination offset
func ValidateOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// ValidateRequired validates that a field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength validates maximum string length
func ValidateMaxLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%s exceeds maximum length of %d characters", fieldName, maxLength)
	}
	return nil
}
