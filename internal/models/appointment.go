package models

// AppointmentStatus lists scheduling states. The scheduling subsystem owns
// this entity; the engine only reads it.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusAccepted  AppointmentStatus = "accepted"
	AppointmentStatusDeclined  AppointmentStatus = "declined"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether the appointment can no longer authorize anything
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusDeclined || s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment represents the APPOINTMENT table (read-only here).
// An appointment in pending or accepted status with a future requested time
// constitutes an implicit, appointment-scoped access grant.
type Appointment struct {
	AppointmentID        string            `db:"APPOINTMENT_ID" json:"appointmentId"`
	DoctorID             string            `db:"DOCTOR_ID" json:"doctorId"`
	PatientID            string            `db:"PATIENT_ID" json:"patientId"`
	Status               AppointmentStatus `db:"CURRENT_STATUS" json:"status"`
	RequestedTime        int64             `db:"REQUESTED_TIME" json:"requestedTime"`
	GrantAccessToHistory bool              `db:"GRANT_ACCESS_TO_HISTORY" json:"grantAccessToHistory"`
	OrgID                string            `db:"ORG_ID" json:"orgId"`
}

// AuthorizesAt reports whether the appointment implicitly authorizes access
// at the given time. The implicit grant disappears the instant the requested
// date passes or the status leaves pending/accepted.
func (a *Appointment) AuthorizesAt(nowMillis int64) bool {
	if a.Status != AppointmentStatusPending && a.Status != AppointmentStatusAccepted {
		return false
	}
	return a.RequestedTime > nowMillis
}
