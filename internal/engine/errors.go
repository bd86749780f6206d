package engine

import (
	"errors"
	"fmt"

	"github.com/grovelang/grove/internal/perm"
)

// MsgLeaseCancelled is the verbatim runtime message for an access through
// an already-cancelled permission. The conformance corpus matches this
// string exactly; never reword it.
const MsgLeaseCancelled = "your lease to this object was cancelled"

// ViolationCode categorizes runtime permission violations.
type ViolationCode string

const (
	// CodeUseAfterCancel indicates an operation on a cancelled permission.
	CodeUseAfterCancel ViolationCode = "USE_AFTER_CANCEL"

	// CodeSharedWrite indicates a write to a non-atomic field through a
	// Joint permission. Joint access is read-only outside atomic fields.
	CodeSharedWrite ViolationCode = "SHARED_WRITE"
)

// PermissionViolation is a fatal runtime violation. It aborts evaluation
// of the current statement immediately and is never retried.
//
// Two spans travel with every violation: Span points at the access that
// failed ("violation here") and Grant points at where the permission was
// established ("lease established here"). Diagnostics render both.
type PermissionViolation struct {
	Code    ViolationCode
	Message string
	Perm    perm.ID
	Span    perm.Span // the failing access
	Grant   perm.Span // where the lease/grant was established
}

// Error implements the error interface.
func (e *PermissionViolation) Error() string {
	if !e.Span.IsZero() {
		return fmt.Sprintf("%s: %s (%s at %s)", e.Code, e.Message, e.Perm, e.Span)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Perm)
}

// AtomicFieldViolation is raised by a write to an atomic-declared field
// outside a recorded atomic section.
type AtomicFieldViolation struct {
	Field string
	Perm  perm.ID
	Span  perm.Span
}

// Error implements the error interface.
func (e *AtomicFieldViolation) Error() string {
	return fmt.Sprintf("ATOMIC_OUTSIDE_SECTION: %s (%s)", e.Message(), e.Perm)
}

// Message returns the user-facing violation text.
func (e *AtomicFieldViolation) Message() string {
	return fmt.Sprintf("cannot write atomic field %q outside an atomic section", e.Field)
}

// IsPermissionViolation reports whether err is (or wraps) a
// PermissionViolation.
func IsPermissionViolation(err error) bool {
	var pv *PermissionViolation
	return errors.As(err, &pv)
}

// IsUseAfterCancel reports whether err is a use-after-cancel violation.
func IsUseAfterCancel(err error) bool {
	var pv *PermissionViolation
	if errors.As(err, &pv) {
		return pv.Code == CodeUseAfterCancel
	}
	return false
}

// IsAtomicFieldViolation reports whether err is (or wraps) an
// AtomicFieldViolation.
func IsAtomicFieldViolation(err error) bool {
	var av *AtomicFieldViolation
	return errors.As(err, &av)
}

// ViolationMessage extracts the user-facing message from a violation
// error, or the plain Error() text for anything else. The scenario
// harness compares this against expected runtime error text.
func ViolationMessage(err error) string {
	var pv *PermissionViolation
	if errors.As(err, &pv) {
		return pv.Message
	}
	var av *AtomicFieldViolation
	if errors.As(err, &av) {
		return av.Message()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// useAfterCancel builds the canonical violation for an access through a
// cancelled permission.
func useAfterCancel(n perm.Node, span perm.Span) *PermissionViolation {
	return &PermissionViolation{
		Code:    CodeUseAfterCancel,
		Message: MsgLeaseCancelled,
		Perm:    n.ID,
		Span:    span,
		Grant:   n.Grant,
	}
}
