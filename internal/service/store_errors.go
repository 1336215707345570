package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

// isTransient reports store failures that say nothing about the data itself.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// readFailure maps a failed read. Transient failures are retryable.
func readFailure(err error, message string) error {
	if isTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// writeFailure maps a failed write. Transient failures leave the outcome unknown,
// so callers must re-read state before retrying.
func writeFailure(err error, message string) error {
	if isTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrWriteUncertain.Code, appErrors.ErrWriteUncertain.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// requireCapability is the single role gate each operation passes through.
func requireCapability(actor models.Actor, capability models.Capability, message string) error {
	if !actor.Can(capability) {
		return appErrors.Clone(appErrors.ErrRoleNotPermitted, message)
	}
	return nil
}
