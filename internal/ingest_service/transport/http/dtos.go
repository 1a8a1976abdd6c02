package http

import (
	"time"

	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/ingest_service/app"
)

// SimCardDTO mirrors the SIM descriptor the mobile client submits.
type SimCardDTO struct {
	SlotIndex    int    `json:"slotIndex" validate:"gte=0"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	OperatorName string `json:"operatorName,omitempty"`
	SimID        string `json:"simId,omitempty"`
}

// RegisterDeviceRequest is the body of POST /api/register-device.
type RegisterDeviceRequest struct {
	DeviceID       string       `json:"deviceId" validate:"required"`
	DeviceModel    string       `json:"deviceModel" validate:"required"`
	AndroidVersion string       `json:"androidVersion,omitempty"`
	SimCards       []SimCardDTO `json:"simCards,omitempty" validate:"dive"`
}

// SmsRequest is the body of POST /api/send-sms and one element of the
// POST /api/send-all-sms array. Timestamp is optional; arrival time is used
// when absent.
type SmsRequest struct {
	Sender    string     `json:"sender" validate:"required"`
	Text      string     `json:"text" validate:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	SimSlot   int        `json:"simSlot,omitempty" validate:"gte=0"`
	DeviceID  string     `json:"deviceId" validate:"required"`
}

// apiResponse is the uniform response envelope.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r RegisterDeviceRequest) toInput() app.RegisterDeviceInput {
	simCards := make([]domain.SimCard, 0, len(r.SimCards))
	for _, sim := range r.SimCards {
		simCards = append(simCards, domain.SimCard{
			SlotIndex:    sim.SlotIndex,
			PhoneNumber:  sim.PhoneNumber,
			OperatorName: sim.OperatorName,
			SimID:        sim.SimID,
		})
	}
	return app.RegisterDeviceInput{
		DeviceID:       r.DeviceID,
		DeviceModel:    r.DeviceModel,
		AndroidVersion: r.AndroidVersion,
		SimCards:       simCards,
	}
}

func (r SmsRequest) toInput() app.SmsInput {
	in := app.SmsInput{
		Sender:   r.Sender,
		Text:     r.Text,
		SimSlot:  r.SimSlot,
		DeviceID: r.DeviceID,
	}
	if r.Timestamp != nil {
		in.Timestamp = *r.Timestamp
	}
	return in
}
