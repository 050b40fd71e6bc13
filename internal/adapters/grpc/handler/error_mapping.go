package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/business-license-api/internal/core/license"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, license.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, license.ErrLicenseNumberAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, license.ErrLicenseNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	default:
		if _, ok := status.FromError(err); ok {
			return err
		}
		return status.Error(codes.Internal, "internal error")
	}
}
