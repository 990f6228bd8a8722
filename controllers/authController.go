package controllers

import (
	"MediCare/handlers"
	"MediCare/middlewares"
	"MediCare/models"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
	Auth    gin.HandlerFunc
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler, auth gin.HandlerFunc) *AuthController {
	return &AuthController{
		Handler: authHandler,
		Auth:    auth,
	}
}

// RegisterRoutes initializes all authentication routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/refresh-token", ac.Handler.RefreshToken)
	router.POST("/auth/send-reset-code", ac.Handler.SendResetCode)
	router.POST("/auth/reset-password", ac.Handler.ResetPassword)

	// Protected routes: Requires a valid token
	authGroup := router.Group("/auth", ac.Auth)
	{
		authGroup.POST("/logout", ac.Handler.Logout)
		authGroup.GET("/profile", ac.Handler.GetUserProfile)
		authGroup.POST("/push-token", ac.Handler.RegisterPushToken)
		authGroup.GET("/linked-caregivers", ac.Handler.LinkedCaregivers)
	}

	caregiverGroup := router.Group("/auth", ac.Auth, middlewares.RoleAuthMiddleware(models.RoleCaregiver))
	{
		caregiverGroup.POST("/link-patient", ac.Handler.LinkPatient)
		caregiverGroup.GET("/linked-patients", ac.Handler.LinkedPatients)
	}
}
