package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
)

var (
	// ErrNotOwner is returned when a caller touches a photo they do not own.
	ErrNotOwner = errors.New("photo does not belong to caller")
	// ErrNotRestored is returned when a download is attempted before the
	// object has been restored from cold storage.
	ErrNotRestored = errors.New("object is not restored yet, request a restore first")
)

// ObjectStore is the slice of the storage backend the lifecycle needs.
type ObjectStore interface {
	PutArchival(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error
	RequestRestore(ctx context.Context, objectKey, tier string) error
	HeadStatus(ctx context.Context, objectKey string) (*ObjectStatus, error)
	PresignDownload(ctx context.Context, objectKey string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// UsageLogger records metered actions triggered by lifecycle operations.
type UsageLogger interface {
	LogUpload(userID uint, bytes int64, fileCount int) error
	LogRestore(userID uint, bytes int64, tier string) error
	LogDownload(userID uint, bytes int64) error
}

// Service owns the archival-state machine of stored photos.
type Service struct {
	photos repository.PhotoRepository
	store  ObjectStore
	usage  UsageLogger
	cfg    *Config
	now    func() time.Time
}

// NewService wires the lifecycle service.
func NewService(photos repository.PhotoRepository, store ObjectStore, usage UsageLogger, cfg *Config) *Service {
	return &Service{
		photos: photos,
		store:  store,
		usage:  usage,
		cfg:    cfg,
		now:    time.Now,
	}
}

// UploadInput carries everything needed to archive a new file.
type UploadInput struct {
	FileName    string
	MimeType    string
	Size        int64
	Body        io.Reader
	Title       string
	Description string
	Tags        []string
}

// RecordUpload stores the bytes in the archival tier and creates the
// photo record in state ARCHIVED. The record only exists once the bytes
// are durably stored.
func (s *Service) RecordUpload(ctx context.Context, userID uint, in UploadInput) (*models.Photo, error) {
	photo := &models.Photo{
		UUID:         uuid.New().String(),
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		FileName:     in.FileName,
		FileSize:     in.Size,
		MimeType:     in.MimeType,
		ArchiveState: models.ArchiveStateArchived,
	}
	photo.StorageKey = s.cfg.GetObjectKey(userID, photo.UUID, in.FileName)

	if err := s.store.PutArchival(ctx, photo.StorageKey, in.Body, in.Size, in.MimeType); err != nil {
		return nil, err
	}

	if err := s.photos.Create(photo); err != nil {
		// best effort: don't leave an orphaned object behind
		if delErr := s.store.DeleteObject(ctx, photo.StorageKey); delErr != nil {
			log.Errorf("[Archive] Orphaned object %s after failed record create: %v", photo.StorageKey, delErr)
		}
		return nil, err
	}

	if len(in.Tags) > 0 {
		if err := s.photos.ReplaceTags(photo, in.Tags); err != nil {
			return nil, err
		}
	}

	if err := s.usage.LogUpload(userID, in.Size, 1); err != nil {
		log.Warnf("[Archive] Failed to log upload usage for user %d: %v", userID, err)
	}
	return photo, nil
}

// RestoreResult describes the outcome of a restore request.
type RestoreResult struct {
	State          string    `json:"state"`
	Tier           string    `json:"tier"`
	EstimatedHours int       `json:"estimated_hours"`
	EstimatedReady time.Time `json:"estimated_ready"`
}

// RequestRestore asks the backend to bring a photo back from cold
// storage. Calling it on an already-restored photo is a no-op, and a
// provider-side "already in progress" answer is absorbed into the
// RESTORING state instead of surfacing as an error.
func (s *Service) RequestRestore(ctx context.Context, userID uint, photoUUID, tier string) (*RestoreResult, error) {
	normalized, err := NormalizeTier(tier)
	if err != nil {
		return nil, err
	}

	photo, err := s.ownedPhoto(userID, photoUUID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &RestoreResult{
		Tier:           normalized,
		EstimatedHours: int(estimatedDuration(normalized).Hours()),
		EstimatedReady: EstimatedReady(normalized, now),
	}

	// Already restored and not yet expired: nothing to do.
	if photo.IsRestored() && (photo.RestoredUntil == nil || photo.RestoredUntil.After(now)) {
		result.State = photo.ArchiveState
		return result, nil
	}

	err = s.store.RequestRestore(ctx, photo.StorageKey, normalized)
	switch {
	case err == nil:
		result.State = models.ArchiveStateRestoreRequested
	case errors.Is(err, ErrRestoreAlreadyInProgress):
		result.State = models.ArchiveStateRestoring
	default:
		// state unchanged on provider failure
		return nil, fmt.Errorf("restore request failed: %w", err)
	}

	if result.State != photo.ArchiveState {
		if err := s.photos.UpdateArchiveState(photo.ID, result.State, nil); err != nil {
			return nil, err
		}
	}

	if err := s.usage.LogRestore(userID, photo.FileSize, normalized); err != nil {
		log.Warnf("[Archive] Failed to log restore usage for user %d: %v", userID, err)
	}
	return result, nil
}

// CheckRestoreStatus polls the backend and resolves the photo's current
// archive state, persisting it only when it changed.
func (s *Service) CheckRestoreStatus(ctx context.Context, userID uint, photoUUID string) (*models.Photo, error) {
	photo, err := s.ownedPhoto(userID, photoUUID)
	if err != nil {
		return nil, err
	}
	return s.resolveStatus(ctx, photo)
}

// GetDownloadURL returns a time-limited signed URL for a restored
// photo. It always re-checks the backend first so a stale stored state
// can never produce a URL for unreadable bytes.
func (s *Service) GetDownloadURL(ctx context.Context, userID uint, photoUUID string) (string, error) {
	photo, err := s.ownedPhoto(userID, photoUUID)
	if err != nil {
		return "", err
	}

	photo, err = s.resolveStatus(ctx, photo)
	if err != nil {
		return "", err
	}
	if photo.ArchiveState != models.ArchiveStateRestored {
		return "", ErrNotRestored
	}

	url, err := s.store.PresignDownload(ctx, photo.StorageKey)
	if err != nil {
		return "", err
	}

	if err := s.usage.LogDownload(userID, photo.FileSize); err != nil {
		log.Warnf("[Archive] Failed to log download usage for user %d: %v", userID, err)
	}
	return url, nil
}

// GetPhoto returns a single photo owned by the caller.
func (s *Service) GetPhoto(userID uint, photoUUID string) (*models.Photo, error) {
	return s.ownedPhoto(userID, photoUUID)
}

// ListPhotos returns a page of the caller's photos.
func (s *Service) ListPhotos(userID uint, offset, limit int) ([]models.Photo, error) {
	return s.photos.GetByUserID(userID, offset, limit)
}

// UpdateMetadata replaces a photo's title, description and tag set.
func (s *Service) UpdateMetadata(userID uint, photoUUID, title, description string, tags []string) (*models.Photo, error) {
	photo, err := s.ownedPhoto(userID, photoUUID)
	if err != nil {
		return nil, err
	}

	photo.Title = title
	photo.Description = description
	if err := s.photos.Update(photo); err != nil {
		return nil, err
	}
	if tags != nil {
		if err := s.photos.ReplaceTags(photo, tags); err != nil {
			return nil, err
		}
	}
	return s.photos.GetByID(photo.ID)
}

// Delete removes the archived object and its record.
func (s *Service) Delete(ctx context.Context, userID uint, photoUUID string) error {
	photo, err := s.ownedPhoto(userID, photoUUID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteObject(ctx, photo.StorageKey); err != nil {
		return err
	}
	return s.photos.Delete(photo.ID)
}

// UserStats returns the caller's aggregate archive statistics.
func (s *Service) UserStats(userID uint) (*repository.PhotoStats, error) {
	return s.photos.GetStatsByUserID(userID)
}

// UserTags returns the caller's tags with usage counts.
func (s *Service) UserTags(userID uint) ([]repository.TagCount, error) {
	return s.photos.GetTagsByUserID(userID)
}

func (s *Service) ownedPhoto(userID uint, photoUUID string) (*models.Photo, error) {
	photo, err := s.photos.GetByUUID(photoUUID)
	if err != nil {
		return nil, err
	}
	if photo.UserID != userID {
		return nil, ErrNotOwner
	}
	return photo, nil
}

// resolveStatus maps the backend's object status onto the archive state
// machine and persists the result only if it differs from what is stored.
func (s *Service) resolveStatus(ctx context.Context, photo *models.Photo) (*models.Photo, error) {
	status, err := s.store.HeadStatus(ctx, photo.StorageKey)
	if err != nil {
		return nil, err
	}

	newState := photo.ArchiveState
	newUntil := photo.RestoredUntil

	switch {
	case status.RestoreOngoing != nil && *status.RestoreOngoing:
		newState = models.ArchiveStateRestoring
		newUntil = nil
	case status.RestoreOngoing != nil:
		newState = models.ArchiveStateRestored
		newUntil = status.RestoreExpiry
	case isArchivalClass(status.StorageClass):
		newState = models.ArchiveStateArchived
		newUntil = nil
	}

	if newState != photo.ArchiveState || !equalTimes(newUntil, photo.RestoredUntil) {
		if err := s.photos.UpdateArchiveState(photo.ID, newState, newUntil); err != nil {
			return nil, err
		}
		photo.ArchiveState = newState
		photo.RestoredUntil = newUntil
	}
	return photo, nil
}

func isArchivalClass(class string) bool {
	switch class {
	case "GLACIER", "DEEP_ARCHIVE", "GLACIER_IR":
		return true
	}
	return false
}

func estimatedDuration(tier string) time.Duration {
	if tier == TierBulk {
		return BulkRetrievalTime
	}
	return StandardRetrievalTime
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
