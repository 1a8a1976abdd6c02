package domain

import (
	"context"
	"time"
)

// DeviceRepository is the persistent store for devices.
type DeviceRepository interface {
	// FindByID returns ErrDeviceNotFound when no device matches.
	FindByID(ctx context.Context, deviceID string) (*Device, error)
	// ListByLastActive returns all devices ordered by last_active_at descending.
	ListByLastActive(ctx context.Context) ([]*Device, error)
	// Upsert inserts the device or, on a device_id conflict, updates model,
	// android version, SIM cards and last-active time. registered_at is never
	// overwritten.
	Upsert(ctx context.Context, device *Device) error
	// TouchLastActive bumps last_active_at for an existing device.
	TouchLastActive(ctx context.Context, deviceID string, at time.Time) error
	Delete(ctx context.Context, deviceID string) error
}

// MessageRepository is the persistent store for forwarded messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *SmsMessage) error
	CountByDevice(ctx context.Context, deviceID string) (int, error)
	// ListByDevice returns messages for the device ordered by timestamp
	// descending. limit <= 0 returns all of them.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*SmsMessage, error)
	DeleteByDevice(ctx context.Context, deviceID string) error
}
