package controllers

import (
	"MediCare/handlers"

	"github.com/gin-gonic/gin"
)

// SetupCareRoutes registers medication, dose and notification routes behind auth.
func SetupCareRoutes(
	router *gin.Engine,
	auth gin.HandlerFunc,
	medicationHandler *handlers.MedicationHandler,
	doseHandler *handlers.DoseHandler,
	notificationHandler *handlers.NotificationHandler,
) {
	medications := router.Group("/medications", auth)
	{
		medications.POST("", medicationHandler.CreateMedication)
		medications.GET("/:id", medicationHandler.GetMedication)
		medications.PATCH("/:id", medicationHandler.UpdateMedication)
		medications.DELETE("/:id", medicationHandler.DeleteMedication)
		medications.POST("/:id/schedule", medicationHandler.AddSchedule)
		medications.GET("/patient/:patientId", medicationHandler.ListPatientMedications)
		medications.GET("/patient/:patientId/schedule/today", medicationHandler.TodaySchedule)
	}

	doses := router.Group("/doses", auth)
	{
		doses.POST("", doseHandler.LogDose)
		doses.GET("/patient/:patientId/recent", doseHandler.RecentDoses)
	}

	notifications := router.Group("/notifications", auth)
	{
		notifications.POST("/sos", notificationHandler.SendSOS)
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}
}
