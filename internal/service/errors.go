package service

import (
	"errors"

	"feedback-hub/internal/repository"
	"feedback-hub/internal/utils"
)

// storeErr maps repository sentinels onto API errors. what names the
// missing resource in the 404 message.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInvalidID):
		return utils.ValidationError("Invalid ID format")
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFoundError(what + " not found")
	default:
		return utils.InternalError(err)
	}
}
