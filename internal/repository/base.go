// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// lookupErr maps a single-row lookup failure to an AppError.
func lookupErr(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
