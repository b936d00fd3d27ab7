package models

// GrantStatus lists the lifecycle states of a data access grant.
// The status column is the single source of truth; whether a grant currently
// authorizes access is derived from it and the expiry timestamp, never stored
// as a separate boolean.
type GrantStatus string

const (
	GrantStatusPending GrantStatus = "pending"
	GrantStatusActive  GrantStatus = "active"
	GrantStatusRevoked GrantStatus = "revoked"
	GrantStatusExpired GrantStatus = "expired"
)

// IsTerminal reports whether the status can never transition again
func (s GrantStatus) IsTerminal() bool {
	return s == GrantStatusRevoked || s == GrantStatusExpired
}

// AccessLevel is the scope of a grant
type AccessLevel string

const (
	AccessLevelReadOnly    AccessLevel = "read_only"
	AccessLevelReadAnalyze AccessLevel = "read_analyze"
)

// DataAccessGrant represents the PHI_ACCESS_GRANT table: a patient's consent
// for a specific doctor to read their records.
type DataAccessGrant struct {
	GrantID            string      `db:"GRANT_ID" json:"grantId"`
	DoctorID           string      `db:"DOCTOR_ID" json:"doctorId"`
	PatientID          string      `db:"PATIENT_ID" json:"patientId"`
	Status             GrantStatus `db:"CURRENT_STATUS" json:"status"`
	AccessLevel        AccessLevel `db:"ACCESS_LEVEL" json:"accessLevel"`
	AIAccessPermission bool        `db:"AI_ACCESS_PERMISSION" json:"aiAccessPermission"`
	GrantedTime        int64       `db:"GRANTED_TIME" json:"grantedTime"`
	ExpiryTime         *int64      `db:"EXPIRY_TIME" json:"expiryTime,omitempty"`
	RevokedTime        *int64      `db:"REVOKED_TIME" json:"revokedTime,omitempty"`
	AppointmentID      *string     `db:"APPOINTMENT_ID" json:"appointmentId,omitempty"`
	GrantReason        *string     `db:"GRANT_REASON" json:"grantReason,omitempty"`
	OrgID              string      `db:"ORG_ID" json:"orgId"`
}

// IsAuthorizing reports whether the grant authorizes access at the given
// time. Lazy expiry: an active grant whose expiry has passed does not
// authorize even if no background job has flipped its status yet.
func (g *DataAccessGrant) IsAuthorizing(nowMillis int64) bool {
	if g.Status != GrantStatusActive {
		return false
	}
	if g.ExpiryTime != nil && *g.ExpiryTime <= nowMillis {
		return false
	}
	return true
}

// GrantAPIRequest is the payload for POST /access/grants (patient-initiated)
type GrantAPIRequest struct {
	DoctorID           string `json:"doctorId" binding:"required"`
	AccessLevel        string `json:"accessLevel" binding:"required"`
	AIAccessPermission bool   `json:"aiAccessPermission"`
	ExpiryDays         int    `json:"expiryDays"`
	Reason             string `json:"reason,omitempty"`
}

// AccessRequestAPIRequest is the payload for POST /access/requests (doctor-initiated)
type AccessRequestAPIRequest struct {
	PatientID string `json:"patientId" binding:"required"`
	Reason    string `json:"reason,omitempty"`
}

// GrantResponse is the API representation of a grant
type GrantResponse struct {
	GrantID            string  `json:"grantId"`
	DoctorID           string  `json:"doctorId"`
	PatientID          string  `json:"patientId"`
	Status             string  `json:"status"`
	AccessLevel        string  `json:"accessLevel"`
	AIAccessPermission bool    `json:"aiAccessPermission"`
	GrantedTime        int64   `json:"grantedTime"`
	ExpiryTime         *int64  `json:"expiryTime,omitempty"`
	RevokedTime        *int64  `json:"revokedTime,omitempty"`
	AppointmentID      *string `json:"appointmentId,omitempty"`
	GrantReason        *string `json:"grantReason,omitempty"`
}

// ToResponse converts the grant to its API representation
func (g *DataAccessGrant) ToResponse() *GrantResponse {
	return &GrantResponse{
		GrantID:            g.GrantID,
		DoctorID:           g.DoctorID,
		PatientID:          g.PatientID,
		Status:             string(g.Status),
		AccessLevel:        string(g.AccessLevel),
		AIAccessPermission: g.AIAccessPermission,
		GrantedTime:        g.GrantedTime,
		ExpiryTime:         g.ExpiryTime,
		RevokedTime:        g.RevokedTime,
		AppointmentID:      g.AppointmentID,
		GrantReason:        g.GrantReason,
	}
}

// RevokeResponse is returned by DELETE /access/grants/{doctorId}
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// CheckAccessResponse is returned by GET /access/check/{patientId}.
// AIAccessPermission reflects the grant's actual column; an implicit
// appointment grant never carries AI permission.
type CheckAccessResponse struct {
	HasPermission      bool `json:"has_permission"`
	AIAccessPermission bool `json:"ai_access_permission"`
}
