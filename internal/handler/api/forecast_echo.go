package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/service"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// MaxBatchSize bounds /predict/batch.
const MaxBatchSize = 1000

// ForecastEchoHandler serves the prediction, training and reporting API.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	svc    service.Forecaster
	queue  queue.QueueService
}

// NewForecastEchoHandler creates the handler. q may be nil, in which case
// async training answers 503.
func NewForecastEchoHandler(logger *xlogger.Logger, svc service.Forecaster, q queue.QueueService) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, svc: svc, queue: q}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Health)
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.POST("/predict", h.Predict)
	g.POST("/predict/batch", h.PredictBatch)
	g.POST("/train", h.Train)
	g.POST("/train/async", h.TrainAsync)
	g.GET("/stats", h.Stats)
	g.GET("/model/info", h.ModelInfo)
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	res := models.HealthResponse{Status: "healthy", Message: "Demand Forecasting API is running", Version: Version}
	if !h.svc.IsLoaded() {
		res.Status = "degraded"
		res.Message = "Model not loaded"
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pred, err := h.svc.Predict(c.Request().Context(), req.Features())
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, predictResponse(pred))
}

func (h *ForecastEchoHandler) PredictBatch(c echo.Context) error {
	var reqs []models.PredictRequest
	if err := c.Bind(&reqs); err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_BAD_REQUEST", Message: "body must be a JSON array of prediction requests"}})
	}
	if len(reqs) > MaxBatchSize {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("batch of %d exceeds the limit of %d", len(reqs), MaxBatchSize))
	}

	batch := make([]map[string]any, len(reqs))
	for i := range reqs {
		if verr := xhttp.ValidateStruct(c.Request().Context(), &reqs[i]); verr != nil {
			return xhttp.BadRequestResponse(c, map[string]interface{}{"index": i, "errors": verr})
		}
		batch[i] = reqs[i].Features()
	}

	preds, err := h.svc.PredictBatch(c.Request().Context(), batch)
	if err != nil {
		h.logger.Error("predict batch usecase error", xlogger.Error(err), xlogger.Int("size", len(batch)))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	out := make([]models.PredictResponse, len(preds))
	for i, p := range preds {
		out[i] = predictResponse(p)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ForecastEchoHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.DataPath == "" {
		req.DataPath = h.svc.DefaultDataPath()
	}

	metrics, err := h.svc.Train(c.Request().Context(), req.DataPath, req.TestSize)
	if err != nil {
		h.logger.Error("train usecase error", xlogger.Error(err), xlogger.String("data_path", req.DataPath))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, models.TrainResponse{
		Success: true,
		Message: "Model trained successfully",
		Metrics: metrics,
	})
}

func (h *ForecastEchoHandler) TrainAsync(c echo.Context) error {
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("job queue is disabled"))
	}
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.DataPath == "" {
		req.DataPath = h.svc.DefaultDataPath()
	}

	payload := usecase.RetrainPayload{DataPath: req.DataPath, TestSize: req.TestSize}
	if err := h.queue.PublishMessage(c.Request().Context(), usecase.RetrainJobType, payload); err != nil {
		h.logger.Error("enqueue retrain", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not enqueue training job").WithError(err))
	}
	res := models.TrainQueuedResponse{
		Queued:  true,
		JobType: usecase.RetrainJobType,
		Message: "Training job queued",
	}
	if d, ok := h.queue.(queueDepth); ok {
		if pending, _, _, err := d.Depth(c.Request().Context()); err == nil {
			res.Pending = pending
		}
	}
	return xhttp.AcceptedResponse(c, res)
}

// queueDepth is implemented by queues that can report their backlog.
type queueDepth interface {
	Depth(ctx context.Context) (pending, retrying, dead int64, err error)
}

func (h *ForecastEchoHandler) Stats(c echo.Context) error {
	stats := h.svc.ComputeStatistics(c.Request().Context())
	res := models.StatsResponse{Success: true, Statistics: stats, Message: "Statistics computed"}
	if stats.TotalRecords == 0 {
		res.Success = false
		res.Message = stats.Message
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) ModelInfo(c echo.Context) error {
	info := h.svc.ModelInfo()
	res := models.ModelInfoResponse{Success: info.Loaded, ModelInfo: info, Message: "Model information retrieved"}
	if !info.Loaded {
		res.Message = info.Message
	}
	return xhttp.SuccessResponse(c, res)
}

func predictResponse(p models.Prediction) models.PredictResponse {
	return models.PredictResponse{
		Success:    true,
		Prediction: p.Value,
		Confidence: p.Confidence,
		Message:    "Prediction successful",
	}
}

// mapError turns a domain error into the AppError the client sees.
func mapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var schemaErr *models.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		ae := xhttp.NewAppError("ERR_SCHEMA", "", err.Error(), http.StatusBadRequest).WithError(err)
		if len(schemaErr.Missing) > 0 {
			ae.WithParam("missing", schemaErr.Missing)
		}
		return ae
	case errors.Is(err, models.ErrSchema),
		errors.Is(err, models.ErrInsufficientData),
		errors.Is(err, models.ErrInvalidArgument):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrModelNotLoaded):
		return xhttp.ServiceUnavailableError("Model not loaded. Please train the model first.").WithError(err)
	case errors.Is(err, models.ErrTrainingInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDataLoad):
		return xhttp.InternalErrorf("training data could not be loaded: %v", err).WithError(err)
	default:
		return xhttp.InternalError(fmt.Sprintf("unexpected error: %v", err)).WithError(err)
	}
}
