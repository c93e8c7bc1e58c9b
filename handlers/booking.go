package handlers

import (
	"net/http"
	"strconv"

	"salonbook/models"
	"salonbook/services/booking"
	"salonbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the public availability and booking endpoints.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// GetAvailabilityHandler returns the bookable start times of one date.
// Query: date, serviceId or duration, optional workerId.
func (h *BookingHandler) GetAvailabilityHandler(c *gin.Context) {
	siteID := c.Param("siteId")
	q := booking.SlotQuery{
		Date:      c.Query("date"),
		ServiceID: c.Query("serviceId"),
		WorkerID:  c.Query("workerId"),
	}
	if raw := c.Query("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid duration", err.Error())
			return
		}
		q.DurationMinutes = minutes
	}

	slots, err := h.Service.GetSlots(c.Request.Context(), siteID, q)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	c.JSON(http.StatusOK, gin.H{"date": q.Date, "slots": slots})
}

// CreateBookingHandler commits an appointment and its follow-up steps.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	logger := getLogger(c)
	siteID := c.Param("siteId")

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	chain, err := h.Service.Book(c.Request.Context(), siteID, req)
	if err != nil {
		logger.Info("Booking rejected", zap.String("siteID", siteID), zap.Error(err))
		utils.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"booking":   chain[0],
		"followUps": chain[1:],
	})
}
