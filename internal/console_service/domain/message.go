package domain

import (
	"time"

	"github.com/google/uuid"
)

// SmsMessage is one forwarded text message. Messages are immutable once
// stored; they are only created on ingestion and removed by the device
// cascade delete.
type SmsMessage struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	SimSlot   int       `json:"simSlot"`
	DeviceID  string    `json:"deviceId"`
}
