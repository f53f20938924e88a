package handlers

import (
	"context"
	"errors"
	"net/http"

	"fleet-ops-api/services"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
)

type Predictor interface {
	Predict(ctx context.Context, req services.PredictionRequest) (*services.PredictionResult, error)
}

type PredictionHandler struct {
	predictor Predictor
}

func NewPredictionHandler(predictor Predictor) *PredictionHandler {
	return &PredictionHandler{predictor: predictor}
}

type PredictionResponse struct {
	ETAMinutes float64 `json:"eta_minutes"`
}

func (h *PredictionHandler) Predict(c *gin.Context) {
	var req services.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: distance_km and fuel_used must be numbers, driver_id an integer"})
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrModelUnavailable):
			logrus.WithError(err).Error("prediction failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction model unavailable"})
		default:
			logrus.WithError(err).Error("prediction failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, PredictionResponse{ETAMinutes: result.ETAMinutes})
}
