package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/service"
)

type alarmService interface {
	AddAlarm(ctx context.Context, in domain.AlarmInput) (domain.Alarm, error)
	RemoveAlarm(ctx context.Context, id int64) (bool, error)
	GetAlarm(id int64) (domain.Alarm, bool)
	ListAlarms() []domain.Alarm
	CountAlarms() int
	StartTracking(ctx context.Context) error
	TrackingState() service.TrackingState
}

// createAlarmRequest uses pointers for the center so a missing coordinate is
// told apart from 0.
type createAlarmRequest struct {
	Name         string   `json:"name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RadiusMeters float64  `json:"radius_meters"`
}

func (r *createAlarmRequest) toInput() (domain.AlarmInput, error) {
	if r.Latitude == nil {
		return domain.AlarmInput{}, &domain.ValidationError{Field: "latitude", Reason: "required"}
	}
	if r.Longitude == nil {
		return domain.AlarmInput{}, &domain.ValidationError{Field: "longitude", Reason: "required"}
	}
	return domain.AlarmInput{
		Name:         r.Name,
		Center:       domain.Coordinate{Lat: *r.Latitude, Lon: *r.Longitude},
		RadiusMeters: r.RadiusMeters,
	}, nil
}

type alarmResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	CreatedAt    int64   `json:"created_at"`
}

type createAlarmResponse struct {
	alarmResponse

	Tracking      string `json:"tracking"`
	TrackingError string `json:"tracking_error,omitempty"`
}

type AlarmHandler struct {
	alarmSvc alarmService
}

func NewAlarmHandler(alarmSvc alarmService) *AlarmHandler {
	return &AlarmHandler{alarmSvc: alarmSvc}
}

func (h *AlarmHandler) Register(r *gin.RouterGroup) {
	r.GET("/alarms", h.ListAlarms)
	r.GET("/alarms/count", h.CountAlarms)
	r.GET("/alarms/:alarm_id", h.GetAlarm)
	r.POST("/alarms", h.CreateAlarm)
	r.DELETE("/alarms/:alarm_id", h.DeleteAlarm)
	r.GET("/tracking", h.GetTracking)
	r.POST("/tracking/start", h.StartTracking)
}

func (h *AlarmHandler) ListAlarms(c *gin.Context) {
	alarms := h.alarmSvc.ListAlarms()

	results := make([]alarmResponse, len(alarms))
	for i := range alarms {
		results[i] = toAlarmResponse(&alarms[i])
	}
	c.JSON(http.StatusOK, results)
}

func (h *AlarmHandler) GetAlarm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("alarm_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alarm_id parameter"})
		return
	}

	alarm, ok := h.alarmSvc.GetAlarm(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alarm not found"})
		return
	}
	c.JSON(http.StatusOK, toAlarmResponse(&alarm))
}

func (h *AlarmHandler) CountAlarms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.alarmSvc.CountAlarms()})
}

func (h *AlarmHandler) CreateAlarm(c *gin.Context) {
	var req createAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	in, err := req.toInput()
	var alarm domain.Alarm
	if err == nil {
		alarm, err = h.alarmSvc.AddAlarm(ctx, in)
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
		return
	case err != nil && !errors.Is(err, domain.ErrSampleSource):
		logger.ErrorKV(ctx, "create alarm failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alarm"})
		return
	}

	resp := createAlarmResponse{
		alarmResponse: toAlarmResponse(&alarm),
		Tracking:      h.alarmSvc.TrackingState().String(),
	}
	if err != nil {
		resp.TrackingError = err.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AlarmHandler) DeleteAlarm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("alarm_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alarm_id parameter"})
		return
	}

	ctx := c.Request.Context()
	removed, err := h.alarmSvc.RemoveAlarm(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrSampleSource) {
		logger.ErrorKV(ctx, "delete alarm failed", "alarm_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alarm"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *AlarmHandler) GetTracking(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":  h.alarmSvc.TrackingState().String(),
		"alarms": h.alarmSvc.CountAlarms(),
	})
}

func (h *AlarmHandler) StartTracking(c *gin.Context) {
	if err := h.alarmSvc.StartTracking(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "state": h.alarmSvc.TrackingState().String()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": h.alarmSvc.TrackingState().String()})
}

func toAlarmResponse(a *domain.Alarm) alarmResponse {
	return alarmResponse{
		ID:           a.ID,
		Name:         a.Name,
		Latitude:     a.Center.Lat,
		Longitude:    a.Center.Lon,
		RadiusMeters: a.RadiusMeters,
		CreatedAt:    a.CreatedAt.Unix(),
	}
}
