package handlers

import (
	"errors"
	"net/http"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errSubmitCommand   = "failed to submit command"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// submitIntent pushes a command through the gate and maps its typed
// rejections onto HTTP codes. 200 means queued for the next control tick,
// not yet applied.
func (h *Handler) submitIntent(c *gin.Context, in models.Intent) {
	in.Origin = models.OriginAPI
	err := h.services.Control.Submit(in)
	if err == nil {
		h.respondAccepted(c, in)
		return
	}

	var vErr *service.ValidationError
	var lErr *service.LockoutError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &lErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       lErr.Error(),
			"retry_in_ms": lErr.Wait.Milliseconds(),
		})
	case errors.Is(err, service.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errSubmitCommand, "command_submit_failed", err, "kind", in.Kind)
	}
}

// Respond with acceptance and include the current status (best-effort view,
// the intent has not been applied yet).
func (h *Handler) respondAccepted(c *gin.Context, in models.Intent) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusAccepted,
		"kind":   in.Kind,
		"rig":    h.services.Monitoring.Status(),
	})
}

// Request DTO for setting the control mode.
type modeRequest struct {
	Mode string `json:"mode" binding:"required"` // auto | manual
}

// Request DTO for changing one control parameter.
type parameterRequest struct {
	Name  string `json:"name" binding:"required"`
	Value any    `json:"value"`
}

// SetModeRequest is an exported model for Swagger docs of the setMode payload.
type SetModeRequest struct {
	// Mode to set. Allowed: auto, manual
	Mode string `json:"mode" example:"manual"`
}

// SetParameterRequest is an exported model for Swagger docs of the
// setParameter payload.
type SetParameterRequest struct {
	// Parameter name, e.g. set_point_tank_c, dT_start_c, rate_window
	Name string `json:"name" example:"set_point_tank_c"`
	// New value: number, string or boolean depending on the parameter
	Value interface{} `json:"value"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current rig status
// @Description  Operating state, actuator commands, sensor snapshot, energy ledger, rate estimates and daily counters
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, counters"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   h.services.Monitoring.Status(),
		"counters": h.services.Monitoring.Counters(),
	})
}

// @Summary      Start the circulation pump
// @Description  Queued for the next control tick. Applied only in manual mode; subject to the anti-cycle lockout.
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, kind, rig"
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]interface{}  "anti-cycle lockout"
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/control/pump/start [post]
// @Security     BearerAuth
func (h *Handler) pumpStart(c *gin.Context) {
	h.submitIntent(c, models.Intent{Kind: models.IntentPumpStart})
}

// @Summary      Stop the circulation pump
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/control/pump/stop [post]
// @Security     BearerAuth
func (h *Handler) pumpStop(c *gin.Context) {
	h.submitIntent(c, models.Intent{Kind: models.IntentPumpStop})
}

// @Summary      Start the cartridge heater
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/control/heater/start [post]
// @Security     BearerAuth
func (h *Handler) heaterStart(c *gin.Context) {
	h.submitIntent(c, models.Intent{Kind: models.IntentHeaterStart})
}

// @Summary      Stop the cartridge heater
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/control/heater/stop [post]
// @Security     BearerAuth
func (h *Handler) heaterStop(c *gin.Context) {
	h.submitIntent(c, models.Intent{Kind: models.IntentHeaterStop})
}

// @Summary      Set control mode
// @Description  Switch between automatic control and manual override
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body   SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/control/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submitIntent(c, models.Intent{Kind: models.IntentSetMode, Mode: req.Mode})
}

// @Summary      Change a control parameter
// @Description  Validated against the parameter invariants before queueing; applied between ticks
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body   SetParameterRequest  true  "Parameter payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/control/parameter [post]
// @Security     BearerAuth
func (h *Handler) setParameter(c *gin.Context) {
	var req parameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submitIntent(c, models.Intent{Kind: models.IntentSetParameter, Name: req.Name, Value: req.Value})
}
