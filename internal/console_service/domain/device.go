package domain

import "time"

// SimCard describes one SIM slot reported by a device. Optional fields are
// empty strings when the device could not read them.
type SimCard struct {
	SlotIndex    int    `json:"slotIndex"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	OperatorName string `json:"operatorName,omitempty"`
	SimID        string `json:"simId,omitempty"`
}

// Device is a registered mobile client. DeviceID is the primary key;
// re-registration with the same id updates the existing record.
type Device struct {
	DeviceID       string    `json:"deviceId"`
	DeviceModel    string    `json:"deviceModel"`
	AndroidVersion string    `json:"androidVersion,omitempty"`
	SimCards       []SimCard `json:"simCards,omitempty"`
	RegisteredAt   time.Time `json:"registeredAt"`
	LastActiveAt   time.Time `json:"lastActiveAt"`
}
