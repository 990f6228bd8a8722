package handlers

import (
	"MediCare/middlewares"
	"MediCare/services"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type DoseHandler struct {
	doses       *services.DoseService
	medications *services.MedicationService
	access      AccessChecker
}

func NewDoseHandler(doses *services.DoseService, medications *services.MedicationService, access AccessChecker) *DoseHandler {
	return &DoseHandler{doses: doses, medications: medications, access: access}
}

func (h *DoseHandler) LogDose(c *gin.Context) {
	var in services.LogDoseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.MedicationID == 0 {
		middlewares.RespondError(c, services.ErrInvalidArgument)
		return
	}

	med, err := h.medications.GetByID(c.Request.Context(), in.MedicationID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if _, ok := authorizePatient(c, h.access, med.PatientID); !ok {
		return
	}

	entry, err := h.doses.LogDose(c.Request.Context(), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *DoseHandler) RecentDoses(c *gin.Context) {
	patientID, ok := parseID(c, "patientId")
	if !ok {
		return
	}
	if _, ok := authorizePatient(c, h.access, patientID); !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.doses.GetRecentDoseLogs(c.Request.Context(), patientID, limit)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
