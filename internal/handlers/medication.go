package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/services"
	"github.com/poppacare/poppa-backend/internal/types"
)

type MedicationHandler struct {
	medicationService services.MedicationService
}

func NewMedicationHandler(medicationService services.MedicationService) *MedicationHandler {
	return &MedicationHandler{medicationService: medicationService}
}

type addMedicationRequest struct {
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	BrandName   string         `json:"brandName"`
	GenericName string         `json:"genericName"`
	Schedule    types.Schedule `json:"schedule"`
}

func (mh *MedicationHandler) Add(c *gin.Context) {
	var req addMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	med, err := mh.medicationService.Add(c.Request.Context(), req.UserID, req.Name, req.BrandName, req.GenericName, req.Schedule)
	if err != nil {
		RespondError(c, statusForMedicationErr(err), "ADD_MEDICATION_FAILED", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"medication": med})
}

func (mh *MedicationHandler) List(c *gin.Context) {
	meds, err := mh.medicationService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "LIST_MEDICATIONS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"medications": meds})
}

func (mh *MedicationHandler) ListForElder(c *gin.Context) {
	meds, err := mh.medicationService.ListForElder(c.Request.Context(), c.Param("id"), c.Param("elderId"))
	if err != nil {
		RespondError(c, http.StatusForbidden, "LIST_ELDER_MEDICATIONS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"medications": meds})
}

func (mh *MedicationHandler) UpdateSchedule(c *gin.Context) {
	var sched types.Schedule
	if err := c.ShouldBindJSON(&sched); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	err := mh.medicationService.UpdateSchedule(c.Request.Context(), c.Param("id"), c.Param("medId"), sched)
	if err != nil {
		RespondError(c, statusForMedicationErr(err), "UPDATE_SCHEDULE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (mh *MedicationHandler) Remove(c *gin.Context) {
	if err := mh.medicationService.Remove(c.Request.Context(), c.Param("id"), c.Param("medId")); err != nil {
		RespondError(c, http.StatusInternalServerError, "REMOVE_MEDICATION_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (mh *MedicationHandler) Search(c *gin.Context) {
	results, err := mh.medicationService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "SEARCH_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}

type recordIntakeRequest struct {
	ScheduledTime string `json:"scheduledTime"`
	Status        string `json:"status"`
}

func (mh *MedicationHandler) RecordIntake(c *gin.Context) {
	var req recordIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	err := mh.medicationService.RecordIntake(c.Request.Context(), c.Param("id"), c.Param("medId"), req.ScheduledTime, req.Status)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "RECORD_INTAKE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func statusForMedicationErr(err error) int {
	if errors.Is(err, types.ErrInvalidSchedule) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
