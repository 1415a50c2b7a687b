package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nishiisharma/Assignment1.kombee/internal/middleware"
	"github.com/nishiisharma/Assignment1.kombee/internal/repositories"
	"github.com/nishiisharma/Assignment1.kombee/internal/services"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	service  *services.AccountService
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.AccountService) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the user routes with the Fiber app. authRequired
// guards update, delete and the protected diagnostic route; registration,
// login and listing stay public.
func (h *UserHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/register", h.HandleRegister)
	userRoutes.Post("/login", h.HandleLogin)
	userRoutes.Get("/list", h.HandleList)
	userRoutes.Put("/update/:id", authRequired, h.HandleUpdate)
	userRoutes.Delete("/delete/:id", authRequired, h.HandleDelete)
	userRoutes.Get("/protected-route", authRequired, h.HandleProtectedRoute)
}

// validationErrorResponse renders validator failures as a field-level map.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// HandleRegister handles new user registration from a multipart form.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(in); err != nil {
		return validationErrorResponse(c, err)
	}

	// Attach the uploaded files, if any.
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fileHeader := range form.File["files"] {
			f, err := fileHeader.Open()
			if err != nil {
				log.Printf("Error opening uploaded file %s: %v", fileHeader.Filename, err)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"message": "Could not read uploaded file",
					"error":   err.Error(),
				})
			}
			defer f.Close()
			in.Files = append(in.Files, services.UploadedFile{
				Name:    fileHeader.Filename,
				Content: f,
			})
		}
	}

	if err := h.service.Register(&in); err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   services.ErrEmailTaken.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		// Unknown email and wrong password answer identically.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   services.ErrInvalidCredentials.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleUpdate overwrites a user's scalar fields and replaces its hobby set.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")

	var in services.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		log.Printf("Error parsing update request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(in); err != nil {
		return validationErrorResponse(c, err)
	}

	user, err := h.service.Update(id, &in)
	if err != nil {
		log.Printf("Error updating user %s: %v", id, err)
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

// HandleDelete removes a user and its hobby and file records.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.service.Delete(id); err != nil {
		log.Printf("Error deleting user %s: %v", id, err)
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}

// HandleList returns one page of users with hobby and file names projected.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", services.DefaultPageSize)

	result, err := h.service.List(page, pageSize)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not list users",
		})
	}

	return c.JSON(result)
}

// HandleProtectedRoute echoes the claims of the presented token. The auth
// middleware guarantees claims are present; an empty set here signals an
// internal inconsistency and is answered as unauthorized.
func (h *UserHandler) HandleProtectedRoute(c *fiber.Ctx) error {
	claims, ok := c.Locals(middleware.ClaimsKey).(jwt.MapClaims)
	if !ok || len(claims) == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "No valid claims found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "This route is protected and requires a valid token.",
		"claims":  claims,
	})
}
