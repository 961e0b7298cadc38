package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devicebridge/engine"
	"devicebridge/models"
	"devicebridge/requirements"
)

// GetDevices returns the engine's last known device snapshot.
func GetDevices(c *gin.Context, eng *engine.Engine) {
	c.JSON(http.StatusOK, models.SuccessResponse(eng.Devices()))
}

// ScanDevices forces an immediate `adb devices -l` scan.
func ScanDevices(c *gin.Context, eng *engine.Engine) {
	devices, err := eng.ScanDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(devices))
}

// GetDeviceRequirements runs the USB debugging/Developer Options/Unknown
// Sources checks for one device.
func GetDeviceRequirements(c *gin.Context, checker *requirements.Checker) {
	deviceID := c.Param("id")
	result := checker.CheckDevice(c.Request.Context(), deviceID)
	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// DispatchAction queues a single action for one device.
func DispatchAction(c *gin.Context, eng *engine.Engine) {
	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	action, err := eng.DispatchAction(req.DeviceID, req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, models.SuccessResponse(action))
}

// DispatchBatch queues the same action across a set of devices.
func DispatchBatch(c *gin.Context, eng *engine.Engine) {
	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	actions := eng.DispatchBatch(req.DeviceIDs, req.Action)
	c.JSON(http.StatusAccepted, models.SuccessResponse(actions))
}

// StartStreaming begins a scrcpy mirror session for a device.
func StartStreaming(c *gin.Context, eng *engine.Engine) {
	deviceID := c.Param("id")
	if _, err := eng.StartMirror(c.Request.Context(), deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("streaming started"))
}

// StopStreaming tears down a device's scrcpy mirror session.
func StopStreaming(c *gin.Context, eng *engine.Engine) {
	deviceID := c.Param("id")
	if err := eng.StopMirror(deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("streaming stopped"))
}

// StartLogcat begins a device's logcat stream.
func StartLogcat(c *gin.Context, eng *engine.Engine) {
	deviceID := c.Param("id")
	if err := eng.StartLogcat(c.Request.Context(), deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("logcat started"))
}

// StopLogcat stops a device's logcat stream.
func StopLogcat(c *gin.Context, eng *engine.Engine) {
	deviceID := c.Param("id")
	if err := eng.StopLogcat(deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("logcat stopped"))
}
