package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

// MockDeviceRepository is a mock implementation of domain.DeviceRepository.
type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) FindByID(ctx context.Context, deviceID string) (*domain.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) ListByLastActive(ctx context.Context) ([]*domain.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *MockDeviceRepository) TouchLastActive(ctx context.Context, deviceID string, at time.Time) error {
	return m.Called(ctx, deviceID, at).Error(0)
}

func (m *MockDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

// MockMessageRepository is a mock implementation of domain.MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.SmsMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	args := m.Called(ctx, deviceID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.SmsMessage, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SmsMessage), args.Error(1)
}

func (m *MockMessageRepository) DeleteByDevice(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

// MockNATSClient is a mock implementation of messagebroker.NATSClient.
type MockNATSClient struct {
	mock.Mock
}

func (m *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	return m.Called(ctx, subject, data).Error(0)
}

func (m *MockNATSClient) SubscribeToSubjectWithQueue(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) error {
	return m.Called(ctx, subject, queueGroup, handler).Error(0)
}

func (m *MockNATSClient) Close() {
	m.Called()
}

func setupIngestTest(t *testing.T) (*IngestService, *MockDeviceRepository, *MockMessageRepository, *MockNATSClient) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	devices := new(MockDeviceRepository)
	messages := new(MockMessageRepository)
	natsClient := new(MockNATSClient)
	service := NewIngestService(devices, messages, natsClient, logger)
	return service, devices, messages, natsClient
}

func frozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestRegisterDevice_New(t *testing.T) {
	service, devices, _, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	service.now = frozenClock(now)

	in := RegisterDeviceInput{
		DeviceID:       "dev-1",
		DeviceModel:    "Pixel 7",
		AndroidVersion: "14",
		SimCards:       []domain.SimCard{{SlotIndex: 0, PhoneNumber: "+15550001"}},
	}

	devices.On("FindByID", mock.Anything, "dev-1").Return(nil, domain.ErrDeviceNotFound).Once()
	devices.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.DeviceID == "dev-1" && d.RegisteredAt.Equal(now) && d.LastActiveAt.Equal(now)
	})).Return(nil).Once()
	natsClient.On("Publish", mock.Anything, domain.NATSDeviceRegisteredV1, mock.MatchedBy(func(data []byte) bool {
		var event domain.DeviceRegisteredEvent
		return json.Unmarshal(data, &event) == nil && event.Device.DeviceID == "dev-1"
	})).Return(nil).Once()

	device, err := service.RegisterDevice(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Pixel 7", device.DeviceModel)
	devices.AssertExpectations(t)
	natsClient.AssertExpectations(t)
}

func TestRegisterDevice_ExistingKeepsRegisteredAtAndStaysSilent(t *testing.T) {
	service, devices, _, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	firstSeen := now.Add(-48 * time.Hour)
	service.now = frozenClock(now)

	existing := &domain.Device{DeviceID: "dev-1", DeviceModel: "Pixel 7", RegisteredAt: firstSeen, LastActiveAt: firstSeen}
	devices.On("FindByID", mock.Anything, "dev-1").Return(existing, nil).Once()
	devices.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.RegisteredAt.Equal(firstSeen) && d.LastActiveAt.Equal(now) && d.AndroidVersion == "15"
	})).Return(nil).Once()

	device, err := service.RegisterDevice(context.Background(), RegisterDeviceInput{
		DeviceID: "dev-1", DeviceModel: "Pixel 7", AndroidVersion: "15",
	})
	require.NoError(t, err)

	assert.True(t, device.RegisteredAt.Equal(firstSeen))
	natsClient.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	devices.AssertExpectations(t)
}

func TestRegisterDevice_LookupError(t *testing.T) {
	service, devices, _, _ := setupIngestTest(t)

	devices.On("FindByID", mock.Anything, "dev-1").Return(nil, errors.New("connection refused")).Once()

	device, err := service.RegisterDevice(context.Background(), RegisterDeviceInput{DeviceID: "dev-1"})
	assert.Nil(t, device)
	require.Error(t, err)
	devices.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestStoreMessage(t *testing.T) {
	service, devices, messages, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	service.now = frozenClock(now)

	sentAt := now.Add(-5 * time.Minute)
	device := &domain.Device{DeviceID: "dev-1", DeviceModel: "Pixel 7"}
	devices.On("FindByID", mock.Anything, "dev-1").Return(device, nil).Once()
	devices.On("TouchLastActive", mock.Anything, "dev-1", now).Return(nil).Once()
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.SmsMessage) bool {
		return m.Sender == "+15550001" && m.Timestamp.Equal(sentAt) && m.DeviceID == "dev-1"
	})).Return(nil).Once()
	natsClient.On("Publish", mock.Anything, domain.NATSSmsReceivedV1, mock.MatchedBy(func(data []byte) bool {
		var event domain.SmsReceivedEvent
		return json.Unmarshal(data, &event) == nil &&
			event.Message.Text == "hello" &&
			event.Device.LastActiveAt.Equal(now)
	})).Return(nil).Once()

	msg, err := service.StoreMessage(context.Background(), SmsInput{
		Sender: "+15550001", Text: "hello", Timestamp: sentAt, SimSlot: 0, DeviceID: "dev-1",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", msg.ID.String())
	devices.AssertExpectations(t)
	messages.AssertExpectations(t)
	natsClient.AssertExpectations(t)
}

func TestStoreMessage_DefaultsTimestampToArrival(t *testing.T) {
	service, devices, messages, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	service.now = frozenClock(now)

	device := &domain.Device{DeviceID: "dev-1"}
	devices.On("FindByID", mock.Anything, "dev-1").Return(device, nil).Once()
	devices.On("TouchLastActive", mock.Anything, "dev-1", now).Return(nil).Once()
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.SmsMessage) bool {
		return m.Timestamp.Equal(now)
	})).Return(nil).Once()
	natsClient.On("Publish", mock.Anything, domain.NATSSmsReceivedV1, mock.Anything).Return(nil).Once()

	msg, err := service.StoreMessage(context.Background(), SmsInput{Sender: "+1", Text: "x", DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.True(t, msg.Timestamp.Equal(now))
}

func TestStoreMessage_UnknownDevice(t *testing.T) {
	service, devices, messages, _ := setupIngestTest(t)

	devices.On("FindByID", mock.Anything, "missing").Return(nil, domain.ErrDeviceNotFound).Once()

	msg, err := service.StoreMessage(context.Background(), SmsInput{DeviceID: "missing"})
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStoreMessage_PublishFailureDoesNotFailIngestion(t *testing.T) {
	service, devices, messages, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	service.now = frozenClock(now)

	device := &domain.Device{DeviceID: "dev-1"}
	devices.On("FindByID", mock.Anything, "dev-1").Return(device, nil).Once()
	devices.On("TouchLastActive", mock.Anything, "dev-1", now).Return(nil).Once()
	messages.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	natsClient.On("Publish", mock.Anything, domain.NATSSmsReceivedV1, mock.Anything).
		Return(errors.New("nats unavailable")).Once()

	_, err := service.StoreMessage(context.Background(), SmsInput{Sender: "+1", Text: "x", DeviceID: "dev-1"})
	assert.NoError(t, err)
	natsClient.AssertExpectations(t)
}

func TestStoreMessages_Bulk(t *testing.T) {
	service, devices, messages, natsClient := setupIngestTest(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	service.now = frozenClock(now)

	device := &domain.Device{DeviceID: "dev-1", DeviceModel: "Pixel 7"}
	devices.On("FindByID", mock.Anything, "dev-1").Return(device, nil).Once()
	devices.On("TouchLastActive", mock.Anything, "dev-1", now).Return(nil).Once()
	messages.On("Create", mock.Anything, mock.Anything).Return(nil).Times(3)
	natsClient.On("Publish", mock.Anything, domain.NATSSmsBulkUploadedV1, mock.MatchedBy(func(data []byte) bool {
		var event domain.BulkUploadCompletedEvent
		return json.Unmarshal(data, &event) == nil && event.Count == 3
	})).Return(nil).Once()

	ins := []SmsInput{
		{Sender: "+1", Text: "a", DeviceID: "dev-1"},
		{Sender: "+2", Text: "b", DeviceID: "dev-1"},
		{Sender: "+3", Text: "c", DeviceID: "dev-2"},
	}
	count, err := service.StoreMessages(context.Background(), ins)
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	devices.AssertExpectations(t)
	messages.AssertExpectations(t)
	natsClient.AssertExpectations(t)
}

func TestStoreMessages_Empty(t *testing.T) {
	service, devices, _, natsClient := setupIngestTest(t)

	count, err := service.StoreMessages(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	devices.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	natsClient.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStoreMessages_FirstDeviceUnknown(t *testing.T) {
	service, devices, messages, _ := setupIngestTest(t)

	devices.On("FindByID", mock.Anything, "missing").Return(nil, domain.ErrDeviceNotFound).Once()

	count, err := service.StoreMessages(context.Background(), []SmsInput{{DeviceID: "missing"}})
	assert.Zero(t, count)
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
