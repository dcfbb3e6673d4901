package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/archive"
	"github.com/glaciervault/glaciervault/internal/pkg/metrics/counter"
	"github.com/glaciervault/glaciervault/internal/pkg/upload"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

type restoreRequest struct {
	Tier string `json:"tier"`
}

type updatePhotoRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// HandleUploadPhoto archives an uploaded file and creates its record.
// The record only appears once the bytes are durably stored.
func HandleUploadPhoto(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "could not read uploaded file")
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := file.Read(head)
	contentType, err := upload.ValidateFileBySniff(fileHeader.Filename, head[:n])
	if err != nil {
		return badRequest(c, err.Error())
	}
	if _, err := file.Seek(0, 0); err != nil {
		return badRequest(c, "could not read uploaded file")
	}

	photo, err := archiveService.RecordUpload(c.Context(), user.UserID, archive.UploadInput{
		FileName:    fileHeader.Filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		Body:        file,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        splitTags(c.FormValue("tags")),
	})
	if err != nil {
		return photoError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(photo)
}

// HandleListPhotos returns a page of the caller's photos.
func HandleListPhotos(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	offset, limit := pagination(c)

	photos, err := archiveService.ListPhotos(user.UserID, offset, limit)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(fiber.Map{
		"photos": photos,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleGetPhoto returns a single photo.
func HandleGetPhoto(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	photo, err := archiveService.GetPhoto(user.UserID, c.Params("uuid"))
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(photo)
}

// HandleUpdatePhoto updates title, description and tags.
func HandleUpdatePhoto(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var req updatePhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	current, err := archiveService.GetPhoto(user.UserID, c.Params("uuid"))
	if err != nil {
		return photoError(c, err)
	}

	title := current.Title
	if req.Title != nil {
		title = *req.Title
	}
	description := current.Description
	if req.Description != nil {
		description = *req.Description
	}

	photo, err := archiveService.UpdateMetadata(user.UserID, current.UUID, title, description, req.Tags)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(photo)
}

// HandleDeletePhoto removes the archived object and its record.
func HandleDeletePhoto(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if err := archiveService.Delete(c.Context(), user.UserID, c.Params("uuid")); err != nil {
		return photoError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRequestRestore starts retrieval of a photo from cold storage.
func HandleRequestRestore(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var req restoreRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	result, err := archiveService.RequestRestore(c.Context(), user.UserID, c.Params("uuid"), req.Tier)
	if err != nil {
		if strings.Contains(err.Error(), "unsupported retrieval tier") {
			return badRequest(c, err.Error())
		}
		return photoError(c, err)
	}

	if photo, perr := archiveService.GetPhoto(user.UserID, c.Params("uuid")); perr == nil {
		_ = counter.AddPhotoRestore(photo.ID)
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// HandleRestoreStatus polls the backend and returns the resolved state.
func HandleRestoreStatus(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	photo, err := archiveService.CheckRestoreStatus(c.Context(), user.UserID, c.Params("uuid"))
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(fiber.Map{
		"uuid":           photo.UUID,
		"archive_state":  photo.ArchiveState,
		"restored_until": photo.RestoredUntil,
	})
}

// HandleDownloadPhoto returns a time-limited signed URL for a restored photo.
func HandleDownloadPhoto(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	url, err := archiveService.GetDownloadURL(c.Context(), user.UserID, c.Params("uuid"))
	if err != nil {
		return photoError(c, err)
	}

	if photo, perr := archiveService.GetPhoto(user.UserID, c.Params("uuid")); perr == nil {
		_ = counter.AddPhotoDownload(photo.ID)
	}
	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": 3600,
	})
}

// HandleUserTags returns the caller's tags with photo counts.
func HandleUserTags(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	tags, err := archiveService.UserTags(user.UserID)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// HandleUserStats returns aggregate archive statistics.
func HandleUserStats(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	stats, err := archiveService.UserStats(user.UserID)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(stats)
}

// HandleMonthlyStats returns the last twelve calendar months of usage.
func HandleMonthlyStats(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	months, err := usageTracker.MonthlyStatsSeries(user.UserID)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(fiber.Map{"months": months})
}

// HandleUsageEstimate projects the current month's cost.
func HandleUsageEstimate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	estimate, err := usageTracker.EstimateCurrentMonth(user.UserID)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(estimate)
}

// HandleUsageHistory lists the caller's metered actions, defaulting to
// the current calendar month.
func HandleUsageHistory(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "invalid from date")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return badRequest(c, "invalid to date")
		}
		to = parsed.AddDate(0, 0, 1)
	}

	logs, err := usageTracker.UsageHistory(user.UserID, from, to)
	if err != nil {
		return photoError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs})
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
