package service

import "errors"

// Business-rule errors returned to the handler layer for translation into
// HTTP responses. Infrastructure failures are wrapped with %w instead.
var (
	// ErrAccessDenied means the permission evaluator denied a PHI read.
	// Handlers must translate it into a generic "access not granted"
	// response that does not reveal whether the resource exists.
	ErrAccessDenied = errors.New("access not granted")

	// ErrForbidden means the authenticated caller lacks the role the
	// operation requires.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrNotFound means a referenced grant, appointment or actor does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrNoActiveGrant means a revoke found no pending/active row to act on
	ErrNoActiveGrant = errors.New("no active grant for this doctor and patient")

	// ErrInvalidState means the resource is not in a state the operation
	// accepts, e.g. approving a grant that is not pending
	ErrInvalidState = errors.New("operation not valid for current state")

	// ErrAuditWriteFailed escalates an audit persistence failure. An
	// un-logged PHI access is itself a compliance failure, so this is
	// fatal to the surrounding request, never swallowed.
	ErrAuditWriteFailed = errors.New("failed to write audit log entry")
)
