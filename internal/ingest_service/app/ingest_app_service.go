package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/platform/messagebroker"
)

// RegisterDeviceInput is the validated payload of a device registration.
type RegisterDeviceInput struct {
	DeviceID       string
	DeviceModel    string
	AndroidVersion string
	SimCards       []domain.SimCard
}

// SmsInput is the validated payload of one forwarded message. A zero
// Timestamp means the client did not supply one and arrival time is used.
type SmsInput struct {
	Sender    string
	Text      string
	Timestamp time.Time
	SimSlot   int
	DeviceID  string
}

// IngestService persists registrations and forwarded messages, bumps device
// activity, and publishes the corresponding panel events after each record is
// durably stored. Event publication is fire-and-forget from the caller's
// perspective: a publish failure is logged but the ingestion still succeeds.
type IngestService struct {
	devices    domain.DeviceRepository
	messages   domain.MessageRepository
	natsClient messagebroker.NATSClient
	logger     *slog.Logger
	now        func() time.Time
}

func NewIngestService(
	devices domain.DeviceRepository,
	messages domain.MessageRepository,
	natsClient messagebroker.NATSClient,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		devices:    devices,
		messages:   messages,
		natsClient: natsClient,
		logger:     logger.With("component", "ingest_service"),
		now:        time.Now,
	}
}

// RegisterDevice upserts the device record. The registered-device event fires
// only when the id was not seen before; re-registration is silent.
func (s *IngestService) RegisterDevice(ctx context.Context, in RegisterDeviceInput) (*domain.Device, error) {
	now := s.now()

	existing, err := s.devices.FindByID(ctx, in.DeviceID)
	isNew := errors.Is(err, domain.ErrDeviceNotFound)
	if err != nil && !isNew {
		return nil, fmt.Errorf("looking up device %s: %w", in.DeviceID, err)
	}

	device := &domain.Device{
		DeviceID:       in.DeviceID,
		DeviceModel:    in.DeviceModel,
		AndroidVersion: in.AndroidVersion,
		SimCards:       in.SimCards,
		RegisteredAt:   now,
		LastActiveAt:   now,
	}
	if !isNew {
		device.RegisteredAt = existing.RegisteredAt
	}

	if err := s.devices.Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("registering device %s: %w", in.DeviceID, err)
	}
	devicesRegisteredTotal.WithLabelValues(registrationStatus(isNew)).Inc()
	s.logger.InfoContext(ctx, "Device registered", "device_id", device.DeviceID, "new", isNew)

	if isNew {
		s.publishEvent(ctx, domain.NATSDeviceRegisteredV1, domain.DeviceRegisteredEvent{Device: *device})
	}
	return device, nil
}

// StoreMessage persists a single forwarded message. The owning device must
// exist; its activity timestamp is bumped to now.
func (s *IngestService) StoreMessage(ctx context.Context, in SmsInput) (*domain.SmsMessage, error) {
	device, err := s.devices.FindByID(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.devices.TouchLastActive(ctx, device.DeviceID, now); err != nil {
		return nil, fmt.Errorf("updating device activity for %s: %w", device.DeviceID, err)
	}
	device.LastActiveAt = now

	msg := s.newMessage(in, now)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("storing message for device %s: %w", device.DeviceID, err)
	}
	messagesStoredTotal.WithLabelValues("single").Inc()

	s.publishEvent(ctx, domain.NATSSmsReceivedV1, domain.SmsReceivedEvent{Message: *msg, Device: *device})
	return msg, nil
}

// StoreMessages persists a bulk upload. The device is resolved from the first
// message; the remaining entries keep whatever deviceId they carry, without a
// per-row existence check.
func (s *IngestService) StoreMessages(ctx context.Context, ins []SmsInput) (int, error) {
	if len(ins) == 0 {
		return 0, nil
	}

	device, err := s.devices.FindByID(ctx, ins[0].DeviceID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if err := s.devices.TouchLastActive(ctx, device.DeviceID, now); err != nil {
		return 0, fmt.Errorf("updating device activity for %s: %w", device.DeviceID, err)
	}
	device.LastActiveAt = now

	stored := 0
	for _, in := range ins {
		msg := s.newMessage(in, now)
		if err := s.messages.Create(ctx, msg); err != nil {
			return stored, fmt.Errorf("storing bulk message for device %s: %w", in.DeviceID, err)
		}
		stored++
	}
	messagesStoredTotal.WithLabelValues("bulk").Add(float64(stored))
	s.logger.InfoContext(ctx, "Bulk upload stored", "device_id", device.DeviceID, "count", stored)

	s.publishEvent(ctx, domain.NATSSmsBulkUploadedV1, domain.BulkUploadCompletedEvent{Count: stored, Device: *device})
	return stored, nil
}

func (s *IngestService) newMessage(in SmsInput, arrivedAt time.Time) *domain.SmsMessage {
	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = arrivedAt
	}
	return &domain.SmsMessage{
		ID:        uuid.New(),
		Sender:    in.Sender,
		Text:      in.Text,
		Timestamp: timestamp,
		SimSlot:   in.SimSlot,
		DeviceID:  in.DeviceID,
	}
}

func (s *IngestService) publishEvent(ctx context.Context, subject string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal panel event", "subject", subject, "error", err)
		return
	}
	if err := s.natsClient.Publish(ctx, subject, payload); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish panel event", "subject", subject, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "Published panel event", "subject", subject)
}

func registrationStatus(isNew bool) string {
	if isNew {
		return "created"
	}
	return "updated"
}
