// Package grpcerr translates domain errors into gRPC status errors.
package grpcerr

import (
	"context"
	"errors"

	"github.com/fekuna/pantry-service/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code returns the gRPC code a domain error is reported with.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, model.ErrSyncNotFound):
		return codes.NotFound
	}

	switch model.ErrorCode(err) {
	case model.CodeInvalidQuantity, model.CodeUnsupportedUnit, model.CodeIncompatibleUnits,
		model.CodeInvalidPayload, model.CodeUnsupportedOperationType:
		return codes.InvalidArgument
	case model.CodeItemNotFound:
		return codes.NotFound
	case model.CodeItemExists:
		return codes.AlreadyExists
	case model.CodeInsufficientStock, model.CodeNoAdjustmentNeeded:
		return codes.FailedPrecondition
	case model.CodeOutdatedVersion, model.CodeOperationInProgress:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// ToStatus wraps err in a status carrying its mapped code.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}
