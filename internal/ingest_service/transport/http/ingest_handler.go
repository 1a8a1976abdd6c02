package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware" // For GetReqID
	"github.com/go-playground/validator/v10"

	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/ingest_service/app"
)

// IngestApp is the application surface the handlers call into. Implemented by
// app.IngestService; mocked in handler tests.
type IngestApp interface {
	RegisterDevice(ctx context.Context, in app.RegisterDeviceInput) (*domain.Device, error)
	StoreMessage(ctx context.Context, in app.SmsInput) (*domain.SmsMessage, error)
	StoreMessages(ctx context.Context, ins []app.SmsInput) (int, error)
}

type IngestHandler struct {
	app      IngestApp
	logger   *slog.Logger
	validate *validator.Validate
}

func NewIngestHandler(app IngestApp, logger *slog.Logger, validate *validator.Validate) *IngestHandler {
	return &IngestHandler{
		app:      app,
		logger:   logger.With("handler", "ingest"),
		validate: validate,
	}
}

// HandleRegisterDevice handles device registration and re-registration.
func (h *IngestHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req RegisterDeviceRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	device, err := h.app.RegisterDevice(ctx, req.toInput())
	if err != nil {
		logger.ErrorContext(ctx, "Failed to register device", "device_id", req.DeviceID, "error", err)
		respondJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Message: "An error occurred while registering the device",
			Error:   err.Error(),
		})
		return
	}

	logger.InfoContext(ctx, "Device registration accepted", "device_id", device.DeviceID)
	respondJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Device registered successfully",
		Data:    device,
	})
}

// HandleSendSms handles a single forwarded message.
func (h *IngestHandler) HandleSendSms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req SmsRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	msg, err := h.app.StoreMessage(ctx, req.toInput())
	if errors.Is(err, domain.ErrDeviceNotFound) {
		respondJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Device not found"})
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store message", "device_id", req.DeviceID, "error", err)
		respondJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Message: "An error occurred while receiving the SMS",
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "SMS message received successfully",
		Data:    msg,
	})
}

// HandleSendAllSms handles a bulk upload; the body is a bare JSON array.
func (h *IngestHandler) HandleSendAllSms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read bulk upload body", "error", err)
		respondJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "Failed to read request body"})
		return
	}
	defer r.Body.Close()

	var reqs []SmsRequest
	if err := json.Unmarshal(body, &reqs); err != nil || len(reqs) == 0 {
		respondJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "An array of messages is required"})
		return
	}

	ins := make([]app.SmsInput, 0, len(reqs))
	for i, req := range reqs {
		if err := h.validate.StructCtx(ctx, req); err != nil {
			respondJSON(w, http.StatusBadRequest, apiResponse{
				Success: false,
				Message: fmt.Sprintf("Validation failed for message %d: %s", i, err.Error()),
			})
			return
		}
		ins = append(ins, req.toInput())
	}

	count, err := h.app.StoreMessages(ctx, ins)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		respondJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Device not found"})
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store bulk upload", "error", err, "stored", count)
		respondJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Message: "An error occurred while receiving the SMS array",
			Error:   err.Error(),
		})
		return
	}

	logger.InfoContext(ctx, "Bulk upload accepted", "count", count)
	respondJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Received %d SMS messages", count),
		Data:    map[string]int{"count": count},
	})
}

// HandleHealth is a trivial liveness line.
func (h *IngestHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is running"))
}

// decodeAndValidate reads a JSON body into dst and validates it, writing the
// error response itself. Returns false when the request was rejected.
func (h *IngestHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read request body", "error", err)
		respondJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "Failed to read request body"})
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		logger.WarnContext(ctx, "Failed to decode request JSON", "error", err)
		respondJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "Invalid JSON format: " + err.Error()})
		return false
	}

	if err := h.validate.StructCtx(ctx, dst); err != nil {
		logger.WarnContext(ctx, "Request validation failed", "error", err)
		respondJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "Validation failed: " + err.Error()})
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, code int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
