package models

// User represents the ACTOR table: doctors, patients and administrators.
// PII columns hold ciphertext produced by the PII cipher; EMAIL_HASH is the
// deterministic blind index used for equality lookups, since the encrypted
// column is non-deterministic and cannot be indexed.
type User struct {
	UserID           string  `db:"USER_ID" json:"userId"`
	Role             Role    `db:"ROLE" json:"role"`
	NameEncrypted    string  `db:"NAME_ENC" json:"-"`
	EmailEncrypted   string  `db:"EMAIL_ENC" json:"-"`
	EmailHash        string  `db:"EMAIL_HASH" json:"-"`
	PhoneEncrypted   string  `db:"PHONE_ENC" json:"-"`
	HistoryEncrypted *string `db:"MEDICAL_HISTORY_ENC" json:"-"`
	PasswordHash     *string `db:"PASSWORD_HASH" json:"-"`
	CreatedTime      int64   `db:"CREATED_TIME" json:"createdTime"`
	DeletedTime      *int64  `db:"DELETED_TIME" json:"deletedTime,omitempty"`
	OrgID            string  `db:"ORG_ID" json:"orgId"`
}

// IsDeactivated reports whether the account has been anonymized and disabled
func (u *User) IsDeactivated() bool {
	return u.DeletedTime != nil
}

// PatientRecordResponse is the decrypted view of a patient record returned to
// an authorized doctor. Fields whose ciphertext cannot be decrypted carry the
// placeholder value instead of failing the whole response.
type PatientRecordResponse struct {
	PatientID      string `json:"patientId"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	MedicalHistory string `json:"medicalHistory,omitempty"`
}

// ActorLookupResponse resolves an email to an actor ID, for administrators
// filtering the audit trail. Carries no PII beyond the queried email itself.
type ActorLookupResponse struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	Deactivated bool   `json:"deactivated"`
}

// MyDataResponse is the self-service export returned by GET /compliance/my-data
type MyDataResponse struct {
	UserID      string     `json:"userId"`
	Role        string     `json:"role"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	CreatedTime int64      `json:"createdTime"`
	Activity    []AuditLog `json:"activity"`
}
