package handlers

import (
	"MediCare/middlewares"
	"MediCare/services"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AccessChecker answers whether an actor may touch a patient's data.
type AccessChecker interface {
	CanAccessPatientData(ctx context.Context, actor services.Actor, patientID uint) (bool, error)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, err := middlewares.ActorFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing access token"})
		return services.Actor{}, false
	}
	return actor, true
}

// authorizePatient writes a 403 and returns false unless the caller may
// access patientID.
func authorizePatient(c *gin.Context, access AccessChecker, patientID uint) (services.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return actor, false
	}
	allowed, err := access.CanAccessPatientData(c.Request.Context(), actor, patientID)
	if err != nil {
		middlewares.RespondError(c, err)
		return actor, false
	}
	if !allowed {
		middlewares.RespondError(c, services.ErrForbidden)
		return actor, false
	}
	return actor, true
}
