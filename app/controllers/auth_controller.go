package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/glaciervault/glaciervault/app/models"
	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/token"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a local account and returns a session token.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := userRepo.GetByEmail(req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "conflict", "message": "email is already registered",
		})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := userRepo.Create(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": "could not create account",
		})
	}

	return issueToken(c, user, fiber.StatusCreated)
}

// HandleLogin verifies credentials and returns a session token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.CheckPassword(req.Password)) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized", "message": "invalid email or password",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": "login failed",
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

func issueToken(c *fiber.Ctx, user *models.User, status int) error {
	jwt, err := token.Issue(user.ID, user.Name, user.Email, user.Role == models.ROLE_ADMIN)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error", "message": "could not issue token",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"token": jwt,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}
