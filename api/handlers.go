package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"androidagent/models"
	"androidagent/service"
	"androidagent/storage"

	"github.com/gin-gonic/gin"
)

// Session is the agent session the handlers drive.
type Session interface {
	Register(ctx context.Context, name string) (models.DeviceIdentity, error)
	Registered() (bool, error)
	Identity() (models.DeviceIdentity, error)
	Connect() error
	Disconnect()
	State() models.ConnectionState
	Execute(raw string) (models.CommandResult, error)
}

// ResultHistory is the persisted log of executed commands.
type ResultHistory interface {
	Recent(limit int) ([]storage.ResultRecord, error)
}

type registerRequest struct {
	DeviceName string `json:"deviceName" binding:"required"`
}

type statusResponse struct {
	Registered bool                   `json:"registered"`
	Identity   *models.DeviceIdentity `json:"identity,omitempty"`
	Connection models.ConnectionState `json:"connection"`
}

const (
	maxCommandBody     = 64 << 10
	registerTimeout    = 30 * time.Second
	defaultResultLimit = 50
)

// GetStatus returns registration and connection state
func GetStatus(c *gin.Context, s Session) {
	registered, err := s.Registered()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}

	resp := statusResponse{Registered: registered, Connection: s.State()}
	identity, err := s.Identity()
	switch {
	case err == nil:
		resp.Identity = &identity
	case !errors.Is(err, service.ErrNotRegistered):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(resp))
}

// RegisterDevice registers this device with the control server
func RegisterDevice(c *gin.Context, s Session) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DeviceName) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("deviceName is required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), registerTimeout)
	defer cancel()

	identity, err := s.Register(ctx, req.DeviceName)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, service.ErrEmptyDeviceName) {
			status = http.StatusBadRequest
		}
		c.JSON(status, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(identity))
}

// ConnectDevice opens the control channel
func ConnectDevice(c *gin.Context, s Session) {
	if err := s.Connect(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNotRegistered) {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, models.MessageResponse("connecting"))
}

// DisconnectDevice closes the control channel
func DisconnectDevice(c *gin.Context, s Session) {
	s.Disconnect()
	c.JSON(http.StatusAccepted, models.MessageResponse("disconnecting"))
}

// ExecuteCommand runs a command payload locally, bypassing the control channel
func ExecuteCommand(c *gin.Context, s Session) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}

	result, err := s.Execute(string(body))
	if err != nil {
		var decodeErr *service.DecodeError
		if errors.As(err, &decodeErr) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// GetResults returns recently executed commands, newest first
func GetResults(c *gin.Context, h ResultHistory) {
	limit := defaultResultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(records))
}
