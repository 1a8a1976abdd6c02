package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

const (
	denialStartText    = "Sorry, you do not have access to this bot."
	denialCallbackText = "You do not have access to this function"
)

// ConsoleService is the operator console: it guards every inbound interaction
// against the single authorized operator, resolves action tokens into screen
// transitions, and drives the chat transport. Every handler isolates its own
// failures; nothing here is fatal to the process.
type ConsoleService struct {
	devices   domain.DeviceRepository
	messages  domain.MessageRepository
	transport domain.ChatTransport
	sessions  *SessionStore
	adminID   int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewConsoleService(
	devices domain.DeviceRepository,
	messages domain.MessageRepository,
	transport domain.ChatTransport,
	adminID int64,
	logger *slog.Logger,
) *ConsoleService {
	return &ConsoleService{
		devices:   devices,
		messages:  messages,
		transport: transport,
		sessions:  NewSessionStore(),
		adminID:   adminID,
		logger:    logger.With("component", "console_service"),
		now:       time.Now,
	}
}

// Sessions exposes the navigation store, mainly for tests.
func (s *ConsoleService) Sessions() *SessionStore {
	return s.sessions
}

// HandleUpdate processes one inbound operator interaction. It never returns an
// error: failures are rendered to the operator or logged, and the session is
// left usable for the next action.
func (s *ConsoleService) HandleUpdate(ctx context.Context, upd domain.ChatUpdate) {
	if upd.IsStart {
		s.handleStart(ctx, upd)
		return
	}
	s.handleCallback(ctx, upd)
}

func (s *ConsoleService) handleStart(ctx context.Context, upd domain.ChatUpdate) {
	if upd.OperatorID != s.adminID {
		s.logger.WarnContext(ctx, "Rejected /start from unauthorized identity", "operator_id", upd.OperatorID)
		consoleActionsTotal.WithLabelValues("start", "unauthorized").Inc()
		if err := s.transport.SendMessage(ctx, upd.ChatID, denialStartText, nil); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send denial message", "error", err)
		}
		return
	}

	s.sessions.Start(upd.OperatorID)
	screen := RenderWelcome()
	if err := s.transport.SendMessage(ctx, upd.ChatID, screen.Text, screen.Keyboard); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send welcome screen", "error", err)
		consoleActionsTotal.WithLabelValues("start", "delivery_error").Inc()
		return
	}
	consoleActionsTotal.WithLabelValues("start", "ok").Inc()
}

func (s *ConsoleService) handleCallback(ctx context.Context, upd domain.ChatUpdate) {
	if upd.OperatorID != s.adminID {
		s.logger.WarnContext(ctx, "Rejected callback from unauthorized identity", "operator_id", upd.OperatorID)
		consoleActionsTotal.WithLabelValues("callback", "unauthorized").Inc()
		if err := s.transport.AnswerCallback(ctx, upd.CallbackID, denialCallbackText); err != nil {
			s.logger.ErrorContext(ctx, "Failed to answer unauthorized callback", "error", err)
		}
		return
	}

	// Clear the pending-callback indicator before doing any work.
	if err := s.transport.AnswerCallback(ctx, upd.CallbackID, ""); err != nil {
		s.logger.ErrorContext(ctx, "Failed to answer callback", "error", err)
	}

	action, ok := ParseActionToken(upd.Token)
	if !ok {
		s.logger.DebugContext(ctx, "Ignoring unknown action token", "token", upd.Token)
		consoleActionsTotal.WithLabelValues("callback", "unknown_token").Inc()
		return
	}

	switch action.Kind {
	case ActionShowDeviceList:
		s.showDeviceList(ctx, upd)
	case ActionShowDevice:
		s.showDeviceDetail(ctx, upd, action.DeviceID)
	case ActionShowMessages:
		s.showMessageList(ctx, upd, action.DeviceID)
	case ActionExportMessages:
		s.exportMessages(ctx, upd, action.DeviceID)
	case ActionDeleteDevice:
		s.deleteDevice(ctx, upd, action.DeviceID)
	case ActionBackToMain:
		s.showMainMenu(ctx, upd)
	}
}

func (s *ConsoleService) showMainMenu(ctx context.Context, upd domain.ChatUpdate) {
	screen := RenderMainMenu()
	if !s.editScreen(ctx, upd, screen, "main_menu") {
		return
	}
	s.sessions.Set(upd.OperatorID, ScreenMain, "")
}

func (s *ConsoleService) showDeviceList(ctx context.Context, upd domain.ChatUpdate) {
	devices, err := s.devices.ListByLastActive(ctx)
	if err != nil {
		s.reportFailure(ctx, upd, "device_list", err)
		return
	}
	if !s.editScreen(ctx, upd, RenderDeviceList(devices), "device_list") {
		return
	}
	s.sessions.Set(upd.OperatorID, ScreenDeviceList, "")
}

func (s *ConsoleService) showDeviceDetail(ctx context.Context, upd domain.ChatUpdate, deviceID string) {
	device, err := s.devices.FindByID(ctx, deviceID)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		s.renderNotFound(ctx, upd, "device_detail")
		return
	}
	if err != nil {
		s.reportFailure(ctx, upd, "device_detail", err)
		return
	}

	count, err := s.messages.CountByDevice(ctx, deviceID)
	if err != nil {
		s.reportFailure(ctx, upd, "device_detail", err)
		return
	}

	if !s.editScreen(ctx, upd, RenderDeviceDetail(device, count), "device_detail") {
		return
	}
	s.sessions.Set(upd.OperatorID, ScreenDeviceDetail, deviceID)
}

func (s *ConsoleService) showMessageList(ctx context.Context, upd domain.ChatUpdate, deviceID string) {
	device, err := s.devices.FindByID(ctx, deviceID)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		s.renderNotFound(ctx, upd, "message_list")
		return
	}
	if err != nil {
		s.reportFailure(ctx, upd, "message_list", err)
		return
	}

	messages, err := s.messages.ListByDevice(ctx, deviceID, 10)
	if err != nil {
		s.reportFailure(ctx, upd, "message_list", err)
		return
	}

	if !s.editScreen(ctx, upd, RenderMessageList(device, messages), "message_list") {
		return
	}
	s.sessions.Set(upd.OperatorID, ScreenMessageList, deviceID)
}

// exportMessages serializes the device's full history and delivers it in
// bounded parts. Sending a part is not transactional: a failed part is logged
// and the remaining parts are still attempted.
func (s *ConsoleService) exportMessages(ctx context.Context, upd domain.ChatUpdate, deviceID string) {
	device, err := s.devices.FindByID(ctx, deviceID)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		s.renderNotFound(ctx, upd, "export")
		return
	}
	if err != nil {
		s.reportFailure(ctx, upd, "export", err)
		return
	}

	messages, err := s.messages.ListByDevice(ctx, deviceID, 0)
	if err != nil {
		s.reportFailure(ctx, upd, "export", err)
		return
	}

	if len(messages) == 0 {
		if !s.editScreen(ctx, upd, RenderNoMessagesForExport(deviceID), "export") {
			return
		}
		return
	}

	s.sessions.Set(upd.OperatorID, ScreenExportInProgress, deviceID)

	text := BuildExportText(device, messages, s.now())
	parts := SplitExportParts(text)

	if len(parts) == 1 {
		if err := s.transport.SendMessage(ctx, upd.ChatID, parts[0], exportFollowUpKeyboard(deviceID)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send export", "device_id", deviceID, "error", err)
			consoleActionsTotal.WithLabelValues("export", "delivery_error").Inc()
		} else {
			exportPartsSentTotal.Inc()
			consoleActionsTotal.WithLabelValues("export", "ok").Inc()
		}
	} else {
		for i, part := range parts {
			body := FormatPartMarker(i+1, len(parts)) + part
			if err := s.transport.SendMessage(ctx, upd.ChatID, body, nil); err != nil {
				s.logger.ErrorContext(ctx, "Failed to send export part",
					"device_id", deviceID, "part", i+1, "parts", len(parts), "error", err)
				continue
			}
			exportPartsSentTotal.Inc()
		}
		finished := RenderExportFinished(deviceID)
		if err := s.transport.SendMessage(ctx, upd.ChatID, finished.Text, finished.Keyboard); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send export trailer", "device_id", deviceID, "error", err)
		}
		consoleActionsTotal.WithLabelValues("export", "ok").Inc()
	}

	// The export screen is transient; the operator lands back on the detail view.
	s.sessions.Set(upd.OperatorID, ScreenDeviceDetail, deviceID)
}

func (s *ConsoleService) deleteDevice(ctx context.Context, upd domain.ChatUpdate, deviceID string) {
	if err := s.messages.DeleteByDevice(ctx, deviceID); err != nil {
		s.reportFailure(ctx, upd, "delete_device", err)
		return
	}
	if err := s.devices.Delete(ctx, deviceID); err != nil {
		s.reportFailure(ctx, upd, "delete_device", err)
		return
	}

	if !s.editScreen(ctx, upd, RenderDeviceDeleted(), "delete_device") {
		return
	}
	s.sessions.Set(upd.OperatorID, ScreenDeviceList, "")
}

// renderNotFound shows the missing-device screen without touching the session.
func (s *ConsoleService) renderNotFound(ctx context.Context, upd domain.ChatUpdate, action string) {
	consoleActionsTotal.WithLabelValues(action, "not_found").Inc()
	screen := RenderDeviceNotFound()
	if err := s.transport.EditMessageText(ctx, upd.ChatID, upd.MessageID, screen.Text, screen.Keyboard); err != nil {
		s.logger.ErrorContext(ctx, "Failed to render not-found screen", "action", action, "error", err)
	}
}

// reportFailure surfaces a store failure as a generic line in a fresh message
// and leaves the session state unchanged so the operator can retry.
func (s *ConsoleService) reportFailure(ctx context.Context, upd domain.ChatUpdate, action string, err error) {
	s.logger.ErrorContext(ctx, "Action failed against the store", "action", action, "error", err)
	consoleActionsTotal.WithLabelValues(action, "store_error").Inc()
	screen := RenderFailure()
	if sendErr := s.transport.SendMessage(ctx, upd.ChatID, screen.Text, nil); sendErr != nil {
		s.logger.ErrorContext(ctx, "Failed to deliver failure line", "action", action, "error", sendErr)
	}
}

// editScreen replaces the originating message with the rendered screen.
// Returns false when delivery failed, in which case the session is not moved.
func (s *ConsoleService) editScreen(ctx context.Context, upd domain.ChatUpdate, screen Screen, action string) bool {
	if err := s.transport.EditMessageText(ctx, upd.ChatID, upd.MessageID, screen.Text, screen.Keyboard); err != nil {
		s.logger.ErrorContext(ctx, "Failed to render screen", "action", action, "error", err)
		consoleActionsTotal.WithLabelValues(action, "delivery_error").Inc()
		return false
	}
	consoleActionsTotal.WithLabelValues(action, "ok").Inc()
	return true
}
