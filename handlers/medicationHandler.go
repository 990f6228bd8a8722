package handlers

import (
	"MediCare/middlewares"
	"MediCare/models"
	"MediCare/services"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type MedicationHandler struct {
	medications *services.MedicationService
	schedules   *services.ScheduleService
	access      AccessChecker
}

func NewMedicationHandler(medications *services.MedicationService, schedules *services.ScheduleService, access AccessChecker) *MedicationHandler {
	return &MedicationHandler{medications: medications, schedules: schedules, access: access}
}

// loadOwned fetches the medication at :id and checks the caller may access its patient.
func (h *MedicationHandler) loadOwned(c *gin.Context) (uint, uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, 0, false
	}
	med, err := h.medications.GetByID(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return 0, 0, false
	}
	if _, ok := authorizePatient(c, h.access, med.PatientID); !ok {
		return 0, 0, false
	}
	return med.ID, med.PatientID, true
}

func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var in services.CreateMedicationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.PatientID == 0 {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		in.PatientID = actor.UserID
	}
	if _, ok := authorizePatient(c, h.access, in.PatientID); !ok {
		return
	}

	med, err := h.medications.Create(c.Request.Context(), in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, med)
}

func (h *MedicationHandler) GetMedication(c *gin.Context) {
	id, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	med, err := h.medications.GetByID(c.Request.Context(), id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, med)
}

func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	id, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var in services.UpdateMedicationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	med, err := h.medications.Update(c.Request.Context(), id, in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, med)
}

func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	id, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if err := h.medications.Delete(c.Request.Context(), id); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MedicationHandler) AddSchedule(c *gin.Context) {
	id, _, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var in services.SlotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	slot, err := h.medications.AddSlot(c.Request.Context(), id, in)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *MedicationHandler) ListPatientMedications(c *gin.Context) {
	patientID, ok := parseID(c, "patientId")
	if !ok {
		return
	}
	if _, ok := authorizePatient(c, h.access, patientID); !ok {
		return
	}
	meds, err := h.medications.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meds)
}

// TodaySchedule returns the patient's dose occurrences for today, or for
// the day given in ?date=YYYY-MM-DD.
func (h *MedicationHandler) TodaySchedule(c *gin.Context) {
	patientID, ok := parseID(c, "patientId")
	if !ok {
		return
	}
	if _, ok := authorizePatient(c, h.access, patientID); !ok {
		return
	}

	var (
		occurrences []models.DoseOccurrence
		ref         time.Time
		err         error
	)
	if date := c.Query("date"); date != "" {
		occurrences, ref, err = h.schedules.ForDate(c.Request.Context(), patientID, date)
	} else {
		occurrences, ref, err = h.schedules.TodayFor(c.Request.Context(), patientID)
	}
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": ref.Format("2006-01-02"), "doses": occurrences})
}
