package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
)

// HandleOAuthBegin redirects to the provider's consent screen.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, finds or creates the
// matching account and returns a session token.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "oauth_failed", "message": err.Error(),
		})
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()

	user, err := userRepo.GetByProvider(u.Provider, u.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// fall back to email linking before creating a fresh account
		if u.Email != "" {
			if existing, emailErr := userRepo.GetByEmail(u.Email); emailErr == nil {
				user = existing
				user.Provider = u.Provider
				user.ProviderUserID = u.UserID
				err = userRepo.Update(user)
			}
		}
		if user == nil || user.ID == 0 {
			user, err = createOAuthUser(userRepo, u.Provider, u.UserID, u.Email, firstNonEmpty(u.Name, u.NickName, "User"), u.AvatarURL)
		}
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": "could not resolve account",
		})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden", "message": "account is not active",
		})
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = userRepo.Update(user)

	return issueToken(c, user, fiber.StatusOK)
}

// HandleOAuthLogout clears the provider session.
func HandleOAuthLogout(c *fiber.Ctx) error {
	_ = gothfiber.Logout(c)
	return c.JSON(fiber.Map{"status": "logged_out"})
}

func createOAuthUser(userRepo repository.UserRepository, provider, providerUserID, email, name, avatarURL string) (*models.User, error) {
	// placeholder password, never usable for login
	placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
	hash, err := models.HashPassword(placeholder)
	if err != nil {
		return nil, err
	}
	if email == "" {
		// unique non-empty email to satisfy the unique index
		email = fmt.Sprintf("%s_%s@%s.oauth.local", provider, providerUserID, provider)
	}

	user := &models.User{
		Name:              name,
		Email:             email,
		Password:          hash,
		Role:              models.ROLE_USER,
		Status:            models.STATUS_ACTIVE,
		AvatarURL:         avatarURL,
		Provider:          provider,
		ProviderUserID:    providerUserID,
		StorageLimitBytes: models.StorageLimitFree,
	}
	if err := userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
