package handlers

import (
	"MediCare/middlewares"
	"MediCare/services"
	"MediCare/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users  *services.UserService
	links  *services.LinkService
	tokens *utils.TokenMaker
}

func NewAuthHandler(users *services.UserService, links *services.LinkService, tokens *utils.TokenMaker) *AuthHandler {
	return &AuthHandler{users: users, links: links, tokens: tokens}
}

// Register handles new user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates the user and returns tokens along with user info
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}

	accessToken, refreshToken, err := h.tokens.GenerateTokens(user.ID, user.Role.Name)
	if err != nil {
		middlewares.HttpError(c, "Failed to generate tokens", http.StatusInternalServerError, err)
		return
	}
	utils.SetAuthCookies(c, accessToken, refreshToken)

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshToken exchanges a refresh token for a new access token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&body)
	token := body.RefreshToken
	if token == "" {
		token, _ = c.Cookie(utils.RefreshTokenCookie)
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	accessToken, err := h.tokens.GenerateAccessToken(claims.UserID, claims.Role)
	if err != nil {
		middlewares.HttpError(c, "Failed to generate access token", http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Logout clears the auth cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.ClearAuthCookies(c)
	c.Status(http.StatusOK)
}

// GetUserProfile retrieves the current user's profile
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RegisterPushToken stores the caller's device push token
func (h *AuthHandler) RegisterPushToken(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var body struct {
		PushToken string `json:"push_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.users.RegisterPushToken(c.Request.Context(), actor.UserID, body.PushToken); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push token registered"})
}

// SendResetCode sends a password reset code to the user's email
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.users.SendResetCode(c.Request.Context(), body.Email); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// ResetPassword sets a new password using an emailed reset code
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), body.Email, body.Code, body.NewPassword); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// LinkPatient links the calling caregiver to a patient by email
func (h *AuthHandler) LinkPatient(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var body struct {
		PatientEmail string `json:"patient_email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	patient, err := h.links.CreateLink(c.Request.Context(), body.PatientEmail, actor.UserID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Patient linked", "patient": patient})
}

// LinkedPatients lists the patients linked to the calling caregiver
func (h *AuthHandler) LinkedPatients(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	patients, err := h.links.ListLinkedPatients(c.Request.Context(), actor.UserID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// LinkedCaregivers lists the caregivers linked to the calling patient
func (h *AuthHandler) LinkedCaregivers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	caregivers, err := h.links.ListLinkedCaregivers(c.Request.Context(), actor.UserID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"caregivers": caregivers})
}
