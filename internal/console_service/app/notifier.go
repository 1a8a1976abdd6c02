package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/platform/messagebroker"
)

// Notifier consumes ingestion events from NATS and pushes unsolicited console
// messages to the operator, independent of navigation state. Dispatch is
// fire-and-forget: decode and delivery failures are logged and swallowed,
// never retried, and never reach the ingestion side.
type Notifier struct {
	natsClient messagebroker.NATSClient
	transport  domain.ChatTransport
	adminID    int64
	logger     *slog.Logger
}

func NewNotifier(natsClient messagebroker.NATSClient, transport domain.ChatTransport, adminID int64, logger *slog.Logger) *Notifier {
	return &Notifier{
		natsClient: natsClient,
		transport:  transport,
		adminID:    adminID,
		logger:     logger.With("component", "notifier"),
	}
}

// Start subscribes to the panel event subjects and blocks until the context is
// cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	handler := func(msg *nats.Msg) {
		n.HandleEvent(ctx, msg.Subject, msg.Data)
	}
	return n.natsClient.SubscribeToSubjectWithQueue(ctx, domain.NATSPanelEventsWildcard, domain.NotifierQueueGroup, handler)
}

// HandleEvent decodes one ingestion event and sends the matching notification.
func (n *Notifier) HandleEvent(ctx context.Context, subject string, data []byte) {
	var screen Screen

	switch subject {
	case domain.NATSDeviceRegisteredV1:
		var event domain.DeviceRegisteredEvent
		if err := json.Unmarshal(data, &event); err != nil {
			n.logDecodeError(ctx, subject, err, data)
			return
		}
		screen = RenderNewDeviceNotification(&event.Device)

	case domain.NATSSmsReceivedV1:
		var event domain.SmsReceivedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			n.logDecodeError(ctx, subject, err, data)
			return
		}
		screen = RenderNewSmsNotification(&event.Message, &event.Device)

	case domain.NATSSmsBulkUploadedV1:
		var event domain.BulkUploadCompletedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			n.logDecodeError(ctx, subject, err, data)
			return
		}
		screen = RenderBulkUploadNotification(event.Count, &event.Device)

	default:
		n.logger.DebugContext(ctx, "Ignoring event on unhandled subject", "subject", subject)
		return
	}

	if err := n.transport.SendMessage(ctx, n.adminID, screen.Text, screen.Keyboard); err != nil {
		n.logger.ErrorContext(ctx, "Failed to deliver notification", "subject", subject, "error", err)
		notificationsTotal.WithLabelValues(subject, "delivery_error").Inc()
		return
	}
	notificationsTotal.WithLabelValues(subject, "sent").Inc()
}

func (n *Notifier) logDecodeError(ctx context.Context, subject string, err error, data []byte) {
	n.logger.ErrorContext(ctx, "Failed to decode ingestion event", "subject", subject, "error", err, "data_len", len(data))
	notificationsTotal.WithLabelValues(subject, "decode_error").Inc()
}
