// Package service implements the admin console workflows: validation of
// moderator input, persistence through the repositories, and dispatch of
// outbound commands to the live bot process.
package service

import (
	"context"
	"fmt"

	"onepiece-admin/internal/tgrest"
)

// ValidationError is a precondition violation on moderator-supplied input.
// The message is shown to the moderator as-is. No state is mutated when a
// ValidationError is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StaleStateError means an action was attempted against an entity whose
// status changed since the moderator last saw it, e.g. a double submit.
type StaleStateError struct {
	Entity   string
	ID       int64
	Expected string
	Actual   string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %d is %s, expected %s", e.Entity, e.ID, e.Actual, e.Expected)
}

// Notifier dispatches a command to the live bot process. Delivery failures
// are surfaced to the moderator but never roll back a committed write.
type Notifier interface {
	Send(ctx context.Context, cmd tgrest.Command) error
}
