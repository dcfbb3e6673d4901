package jobs

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
)

// RestoreExpiry sweeps photos whose temporary restored copy has lapsed
// back into the ARCHIVED state. The backend removes the copy on its own;
// this keeps the stored state from advertising downloads that would fail.
type RestoreExpiry struct {
	photos repository.PhotoRepository
	now    func() time.Time
}

// NewRestoreExpiry wires the expiry sweep.
func NewRestoreExpiry(photos repository.PhotoRepository) *RestoreExpiry {
	return &RestoreExpiry{
		photos: photos,
		now:    time.Now,
	}
}

// Run flips every lapsed restore back to ARCHIVED. Per-photo failures
// are collected; the next run picks up whatever was missed.
func (e *RestoreExpiry) Run() []error {
	expired, err := e.photos.ListExpiredRestores(e.now())
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, photo := range expired {
		if err := e.photos.UpdateArchiveState(photo.ID, models.ArchiveStateArchived, nil); err != nil {
			errs = append(errs, fmt.Errorf("photo %d: %w", photo.ID, err))
		}
	}

	log.Infof("[Expiry] Re-archived %d lapsed restores, %d failures", len(expired)-len(errs), len(errs))
	return errs
}
