package domain

// NATS subjects for ingestion events. The ingest service publishes these after
// the corresponding record is durably persisted; the console's notifier
// consumes them. Versioned so the payloads can evolve.
const (
	NATSDeviceRegisteredV1  = "panel.device.registered.v1"
	NATSSmsReceivedV1       = "panel.sms.received.v1"
	NATSSmsBulkUploadedV1   = "panel.sms.bulk.v1"
	NATSPanelEventsWildcard = "panel.>"
	NotifierQueueGroup      = "console_notifier_group"
)

// DeviceRegisteredEvent fires once per device, on first registration only.
type DeviceRegisteredEvent struct {
	Device Device `json:"device"`
}

// SmsReceivedEvent fires for each single message submission.
type SmsReceivedEvent struct {
	Message SmsMessage `json:"message"`
	Device  Device     `json:"device"`
}

// BulkUploadCompletedEvent fires once per bulk submission with the stored count.
type BulkUploadCompletedEvent struct {
	Count  int    `json:"count"`
	Device Device `json:"device"`
}
