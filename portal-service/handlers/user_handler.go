package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/portal-service/middleware"
	"portal-backend/portal-service/services"
	"portal-backend/shared/apperrors"
	"portal-backend/shared/utils/payload"
)

type UserHandler struct {
	accounts *services.AccountService
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// UserRequest documents the fields accepted by register, login and update.
type UserRequest struct {
	Email           string `json:"email" example:"anna@example.com"`
	Password        string `json:"password" example:"Secret123"`
	FirstName       string `json:"first_name" example:"Anna"`
	LastName        string `json:"last_name" example:"Muster"`
	Phone           string `json:"phone" example:"+41 79 123 45 67"`
	Address1        string `json:"address1"`
	Address2        string `json:"address2"`
	Zipcode         string `json:"zipcode" example:"8000"`
	CurrentPassword string `json:"current_password"`
	Advisor         string `json:"advisor" example:"2b1e9c3a-7f7e-4a52-9d3b-7b0c1d6c1a11"`
	Utype           int    `json:"utype" example:"1"`
}

// GET /api/users/
// @Summary List users
// @Description Staff receive [self, staff, customers]; everybody else their own profile
// @Tags users
// @Produce json
// @Security TokenAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /users/ [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	out, err := h.accounts.ListUsers(c.Request.Context(), middleware.GetViewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/users/
// @Summary Register or log in
// @Description A valid registration creates a customer (201); otherwise email and password log in (200)
// @Tags users
// @Accept json
// @Produce json
// @Param user body UserRequest true "Registration or credentials"
// @Success 201 {object} map[string]interface{}
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /users/ [post]
func (h *UserHandler) CreateOrLogin(c *gin.Context) {
	var p payload.UserPayload
	if !bindJSON(c, &p) {
		return
	}

	res, err := h.accounts.CreateOrLogin(c.Request.Context(), middleware.GetViewer(c), &p, clientInfo(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, withToken(res.Profile, res.Token))
}

// GET /api/users/{id}/
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security TokenAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id}/ [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	out, err := h.accounts.GetUser(c.Request.Context(), middleware.GetViewer(c), userIDParam(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PUT /api/users/{id}/
// @Summary Update user
// @Description Partial update. Owners must send current_password; a password change returns a new token
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body UserRequest true "Fields to change"
// @Security TokenAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id}/ [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var p payload.UserPayload
	if !bindJSON(c, &p) {
		return
	}

	res, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetViewer(c), userIDParam(c), &p, clientInfo(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, withToken(res.Profile, res.Token))
}
