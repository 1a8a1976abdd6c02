package domain

import "context"

// Button is one labeled control the operator can press. Token is the opaque
// action string delivered back when pressed.
type Button struct {
	Label string
	Token string
}

// ChatTransport is the outbound chat surface the console drives. The concrete
// implementation (Telegram Bot API) lives in adapters; the console only ever
// sends, edits and acknowledges.
type ChatTransport interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]Button) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]Button) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// ChatUpdate is one inbound operator interaction, normalized by the transport
// adapter: either a session start or a button callback.
type ChatUpdate struct {
	OperatorID int64
	ChatID     int64
	MessageID  int
	IsStart    bool
	// Callback fields, empty for a session start.
	CallbackID string
	Token      string
}
