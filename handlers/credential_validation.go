package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"fleet-ops-api/services"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
)

type ValidationQueue interface {
	EnqueueCredentialValidation(ctx context.Context, driverID int64) (*services.CredentialValidationJob, error)
}

type CredentialValidationHandler struct {
	queue ValidationQueue
}

func NewCredentialValidationHandler(queue ValidationQueue) *CredentialValidationHandler {
	return &CredentialValidationHandler{queue: queue}
}

// Enqueue schedules an asynchronous credential check for a driver.
func (h *CredentialValidationHandler) Enqueue(c *gin.Context) {
	driverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || driverID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid driver id"})
		return
	}

	job, err := h.queue.EnqueueCredentialValidation(c.Request.Context(), driverID)
	if err != nil {
		if errors.Is(err, services.ErrQueueUnavailable) {
			logrus.WithError(err).WithField("driver_id", driverID).Warn("credential validation not queued")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue unavailable"})
			return
		}
		logrus.WithError(err).WithField("driver_id", driverID).Error("credential validation not queued")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true, "job_id": job.JobID})
}
