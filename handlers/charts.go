package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-ops-api/models"
	"fleet-ops-api/services"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	drugTestTrendsQuery = `
		SELECT test_date::date AS test_date,
		       SUM(CASE WHEN result = 'pass' THEN 1 ELSE 0 END) AS pass_count,
		       SUM(CASE WHEN result = 'fail' THEN 1 ELSE 0 END) AS fail_count
		FROM drug_tests
		GROUP BY test_date
		ORDER BY test_date`

	driversOverThreeViolationsQuery = `
		SELECT driver_id, COUNT(*) AS violation_count
		FROM violations
		GROUP BY driver_id
		HAVING COUNT(*) > 3
		ORDER BY violation_count DESC`

	credentialValidityQuery = `
		SELECT credential_type,
		       SUM(CASE WHEN valid = true THEN 1 ELSE 0 END) AS valid_count,
		       SUM(CASE WHEN valid = false THEN 1 ELSE 0 END) AS invalid_count
		FROM credentials
		GROUP BY credential_type
		ORDER BY credential_type`

	monthlyInfractionsQuery = `
		SELECT DATE_TRUNC('month', date) AS month,
		       type,
		       COUNT(*) AS infraction_count
		FROM violations
		GROUP BY month, type
		ORDER BY month, type`
)

// ChartsHandler serves the dashboard aggregations over the compliance tables.
type ChartsHandler struct {
	db    *gorm.DB
	cache *services.CacheService
	ttl   time.Duration
}

func NewChartsHandler(db *gorm.DB, cache *services.CacheService, ttl time.Duration) *ChartsHandler {
	return &ChartsHandler{db: db, cache: cache, ttl: ttl}
}

func (h *ChartsHandler) DrugTestTrends(c *gin.Context) {
	var rows []models.DrugTestTrend
	serveChart(c, h, services.DrugTestTrendsKey, drugTestTrendsQuery, &rows)
}

func (h *ChartsHandler) DriversOverThreeViolations(c *gin.Context) {
	var rows []models.DriverViolationCount
	serveChart(c, h, services.DriversOverThreeViolationsKey, driversOverThreeViolationsQuery, &rows)
}

func (h *ChartsHandler) CredentialValidity(c *gin.Context) {
	var rows []models.CredentialValidity
	serveChart(c, h, services.CredentialValidityKey, credentialValidityQuery, &rows)
}

func (h *ChartsHandler) MonthlyInfractions(c *gin.Context) {
	var rows []models.MonthlyInfraction
	serveChart(c, h, services.MonthlyInfractionsKey, monthlyInfractionsQuery, &rows)
}

// serveChart answers from cache when possible, otherwise runs query into
// rows and caches the result. Charts are always JSON arrays, never null.
func serveChart[T any](c *gin.Context, h *ChartsHandler, cacheKey, query string, rows *[]T) {
	if found, err := h.cache.Get(c.Request.Context(), cacheKey, rows); err == nil && found {
		c.JSON(http.StatusOK, *rows)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Raw(query).Scan(rows).Error; err != nil {
		logrus.WithError(err).WithField("chart", cacheKey).Error("chart query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	if *rows == nil {
		*rows = []T{}
	}

	if h.cache.Available() {
		data := *rows
		go func() {
			if err := h.cache.Set(context.Background(), cacheKey, data, h.ttl); err != nil {
				logrus.WithError(err).WithField("chart", cacheKey).Warn("chart cache write failed")
			}
		}()
	}

	c.JSON(http.StatusOK, *rows)
}
