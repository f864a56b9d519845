package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/service"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsMaxFrame   = 64 << 10
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 5 * time.Second
)

// streamReply is one outbound frame. Errors carry the validation details.
type streamReply struct {
	models.PredictResponse
	Code   string      `json:"code,omitempty"`
	Errors interface{} `json:"errors,omitempty"`
}

// PredictStreamHandler answers prediction requests over a websocket. Every
// text frame is one request; every reply is one response frame.
type PredictStreamHandler struct {
	logger   *xlogger.Logger
	svc      service.Forecaster
	upgrader websocket.Upgrader
}

func NewPredictStreamHandler(logger *xlogger.Logger, svc service.Forecaster) *PredictStreamHandler {
	return &PredictStreamHandler{
		logger: logger,
		svc:    svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *PredictStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/predict", h.Stream)
}

func (h *PredictStreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go h.ping(ctx, conn)

	served := 0
	for {
		kind, b, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", xlogger.Error(err))
			}
			break
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		reply := h.handleFrame(ctx, b)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Debug("websocket write failed", xlogger.Error(err))
			break
		}
		served++
	}
	h.logger.Info("websocket stream closed", xlogger.Int("served", served))
	return nil
}

func (h *PredictStreamHandler) handleFrame(ctx context.Context, b []byte) streamReply {
	req := &models.PredictRequest{}
	if err := json.Unmarshal(b, req); err != nil {
		return failure("ERR_BAD_REQUEST", "frame is not a prediction request", nil)
	}
	if verr := xhttp.ValidateStruct(ctx, req); verr != nil {
		return failure("ERR_VALIDATION", "invalid prediction request", verr)
	}

	pred, err := h.svc.Predict(ctx, req.Features())
	if err != nil {
		ae := mapError(err)
		if !errors.Is(err, models.ErrModelNotLoaded) {
			h.logger.Error("stream predict error", xlogger.Error(err))
		}
		return failure(ae.Code, ae.Message, nil)
	}
	return streamReply{PredictResponse: predictResponse(pred)}
}

func (h *PredictStreamHandler) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func failure(code, message string, details interface{}) streamReply {
	return streamReply{
		PredictResponse: models.PredictResponse{Success: false, Message: message},
		Code:            code,
		Errors:          details,
	}
}
