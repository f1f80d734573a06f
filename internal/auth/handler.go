package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     *store.Store
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *store.Store, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: s, jwtSecret: jwtSecret}
}

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 8

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	body.Email = strings.TrimSpace(body.Email)

	var details []engine.ErrorDetail
	if _, err := mail.ParseAddress(body.Email); err != nil {
		details = append(details, engine.ErrorDetail{Field: "email", Rule: "email", Message: "A valid email is required"})
	}
	if len(body.Password) < MinPasswordLength {
		details = append(details, engine.ErrorDetail{Field: "password", Rule: "min_length", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)})
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	userID, err := h.store.CreateUser(ctx, body.Email, hash, []string{"user"})
	if errors.Is(err, store.ErrUniqueViolation) {
		return engine.ConflictError("Email is already registered")
	}
	if err != nil {
		return err
	}

	pair, err := h.generateTokenPair(ctx, userID, []string{"user"})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": pair})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	ctx := c.UserContext()
	user, err := h.store.GetUserByEmail(ctx, strings.TrimSpace(body.Email))
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}
	if !user.Active {
		return engine.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, user.PasswordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	pair, err := h.generateTokenPair(ctx, user.ID, user.Roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	ctx := c.UserContext()
	rt, err := h.store.GetRefreshToken(ctx, body.RefreshToken)
	if err != nil {
		return engine.UnauthorizedError("Invalid refresh token")
	}

	// Refresh tokens are single use.
	if err := h.store.DeleteRefreshToken(ctx, body.RefreshToken); err != nil {
		log.Printf("WARN: delete refresh token: %v", err)
	}
	if time.Now().After(rt.ExpiresAt) {
		return engine.UnauthorizedError("Refresh token expired")
	}
	if !rt.Active {
		return engine.UnauthorizedError("Account is disabled")
	}

	pair, err := h.generateTokenPair(ctx, rt.UserID, rt.Roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	if err := h.store.DeleteRefreshToken(c.UserContext(), body.RefreshToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
}

func (h *AuthHandler) generateTokenPair(ctx context.Context, userID int64, roles []string) (*TokenPair, error) {
	accessToken, err := GenerateAccessToken(userID, roles, h.jwtSecret)
	if err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := GenerateRefreshToken()
	if err := h.store.CreateRefreshToken(ctx, userID, refreshToken, time.Now().Add(RefreshTokenTTL)); err != nil {
		log.Printf("ERROR: store refresh token: %v", err)
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
