package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/ingest_service/app"
)

// MockIngestApp is a mock implementation of IngestApp.
type MockIngestApp struct {
	mock.Mock
}

func (m *MockIngestApp) RegisterDevice(ctx context.Context, in app.RegisterDeviceInput) (*domain.Device, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockIngestApp) StoreMessage(ctx context.Context, in app.SmsInput) (*domain.SmsMessage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SmsMessage), args.Error(1)
}

func (m *MockIngestApp) StoreMessages(ctx context.Context, ins []app.SmsInput) (int, error) {
	args := m.Called(ctx, ins)
	return args.Int(0), args.Error(1)
}

func setupHandlerTest(t *testing.T) (*IngestHandler, *MockIngestApp) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockApp := new(MockIngestApp)
	handler := NewIngestHandler(mockApp, logger, validator.New())
	return handler, mockApp
}

func doJSON(t *testing.T, handlerFunc http.HandlerFunc, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handlerFunc(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandleRegisterDevice_OK(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	device := &domain.Device{DeviceID: "dev-1", DeviceModel: "Pixel 7"}
	mockApp.On("RegisterDevice", mock.Anything, mock.MatchedBy(func(in app.RegisterDeviceInput) bool {
		return in.DeviceID == "dev-1" && len(in.SimCards) == 1 && in.SimCards[0].PhoneNumber == "+15550001"
	})).Return(device, nil).Once()

	body := `{"deviceId":"dev-1","deviceModel":"Pixel 7","androidVersion":"14","simCards":[{"slotIndex":0,"phoneNumber":"+15550001","operatorName":"TestNet"}]}`
	rec, resp := doJSON(t, handler.HandleRegisterDevice, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Device registered successfully", resp.Message)
	mockApp.AssertExpectations(t)
}

func TestHandleRegisterDevice_MissingDeviceID(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	rec, resp := doJSON(t, handler.HandleRegisterDevice, `{"deviceModel":"Pixel 7"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Validation failed")
	mockApp.AssertNotCalled(t, "RegisterDevice", mock.Anything, mock.Anything)
}

func TestHandleRegisterDevice_InvalidJSON(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	rec, resp := doJSON(t, handler.HandleRegisterDevice, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Message, "Invalid JSON format")
	mockApp.AssertNotCalled(t, "RegisterDevice", mock.Anything, mock.Anything)
}

func TestHandleRegisterDevice_AppError(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	mockApp.On("RegisterDevice", mock.Anything, mock.Anything).
		Return(nil, errors.New("db down")).Once()

	rec, resp := doJSON(t, handler.HandleRegisterDevice, `{"deviceId":"dev-1","deviceModel":"Pixel 7"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "db down", resp.Error)
}

func TestHandleSendSms_OK(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	sentAt := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	msg := &domain.SmsMessage{ID: uuid.New(), Sender: "+15550001", Text: "hello", Timestamp: sentAt, DeviceID: "dev-1"}
	mockApp.On("StoreMessage", mock.Anything, mock.MatchedBy(func(in app.SmsInput) bool {
		return in.Sender == "+15550001" && in.Timestamp.Equal(sentAt)
	})).Return(msg, nil).Once()

	body := `{"sender":"+15550001","text":"hello","timestamp":"2024-01-02T10:00:00Z","deviceId":"dev-1"}`
	rec, resp := doJSON(t, handler.HandleSendSms, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "SMS message received successfully", resp.Message)
	mockApp.AssertExpectations(t)
}

func TestHandleSendSms_OmittedTimestamp(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	msg := &domain.SmsMessage{ID: uuid.New(), DeviceID: "dev-1"}
	mockApp.On("StoreMessage", mock.Anything, mock.MatchedBy(func(in app.SmsInput) bool {
		return in.Timestamp.IsZero()
	})).Return(msg, nil).Once()

	rec, _ := doJSON(t, handler.HandleSendSms, `{"sender":"+1","text":"x","deviceId":"dev-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockApp.AssertExpectations(t)
}

func TestHandleSendSms_DeviceNotFound(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	mockApp.On("StoreMessage", mock.Anything, mock.Anything).
		Return(nil, domain.ErrDeviceNotFound).Once()

	rec, resp := doJSON(t, handler.HandleSendSms, `{"sender":"+1","text":"x","deviceId":"missing"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Device not found", resp.Message)
}

func TestHandleSendAllSms_OK(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	mockApp.On("StoreMessages", mock.Anything, mock.MatchedBy(func(ins []app.SmsInput) bool {
		return len(ins) == 2
	})).Return(2, nil).Once()

	body := `[{"sender":"+1","text":"a","deviceId":"dev-1"},{"sender":"+2","text":"b","deviceId":"dev-1"}]`
	rec, resp := doJSON(t, handler.HandleSendAllSms, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Received 2 SMS messages", resp.Message)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), data["count"])
	mockApp.AssertExpectations(t)
}

func TestHandleSendAllSms_EmptyArray(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	rec, resp := doJSON(t, handler.HandleSendAllSms, `[]`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "An array of messages is required", resp.Message)
	mockApp.AssertNotCalled(t, "StoreMessages", mock.Anything, mock.Anything)
}

func TestHandleSendAllSms_NotAnArray(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	rec, resp := doJSON(t, handler.HandleSendAllSms, `{"sender":"+1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "An array of messages is required", resp.Message)
	mockApp.AssertNotCalled(t, "StoreMessages", mock.Anything, mock.Anything)
}

func TestHandleSendAllSms_InvalidElement(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	body := `[{"sender":"+1","text":"a","deviceId":"dev-1"},{"text":"missing sender","deviceId":"dev-1"}]`
	rec, resp := doJSON(t, handler.HandleSendAllSms, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Message, "Validation failed for message 1")
	mockApp.AssertNotCalled(t, "StoreMessages", mock.Anything, mock.Anything)
}

func TestHandleSendAllSms_DeviceNotFound(t *testing.T) {
	handler, mockApp := setupHandlerTest(t)

	mockApp.On("StoreMessages", mock.Anything, mock.Anything).
		Return(0, domain.ErrDeviceNotFound).Once()

	rec, resp := doJSON(t, handler.HandleSendAllSms, `[{"sender":"+1","text":"a","deviceId":"missing"}]`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Device not found", resp.Message)
}

func TestHandleHealth(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server is running", rec.Body.String())
}
