package app

import "strings"

// ActionKind enumerates the closed set of operations a raw action token can
// decode into. Unknown tokens never reach a handler.
type ActionKind int

const (
	ActionShowDeviceList ActionKind = iota
	ActionShowDevice
	ActionShowMessages
	ActionExportMessages
	ActionDeleteDevice
	ActionBackToMain
)

// Action is a decoded transition request. DeviceID is set only for the
// device-scoped kinds.
type Action struct {
	Kind     ActionKind
	DeviceID string
}

// Raw action tokens, case-sensitive. Prefixed tokens carry a device id.
const (
	tokenDevices       = "devices"
	tokenBackToDevices = "back_to_devices"
	tokenBackToMain    = "back_to_main"

	tokenPrefixDevice = "device:"
	tokenPrefixSms    = "sms:"
	tokenPrefixExport = "export:"
	tokenPrefixDelete = "delete_device:"
)

// ParseActionToken decodes a raw token into a typed Action. The second return
// is false for unrecognized tokens and for prefixed tokens with an empty id.
func ParseActionToken(token string) (Action, bool) {
	switch token {
	case tokenDevices, tokenBackToDevices:
		return Action{Kind: ActionShowDeviceList}, true
	case tokenBackToMain:
		return Action{Kind: ActionBackToMain}, true
	}

	for _, p := range []struct {
		prefix string
		kind   ActionKind
	}{
		{tokenPrefixDevice, ActionShowDevice},
		{tokenPrefixSms, ActionShowMessages},
		{tokenPrefixExport, ActionExportMessages},
		{tokenPrefixDelete, ActionDeleteDevice},
	} {
		if strings.HasPrefix(token, p.prefix) {
			id := token[len(p.prefix):]
			if id == "" {
				return Action{}, false
			}
			return Action{Kind: p.kind, DeviceID: id}, true
		}
	}

	return Action{}, false
}
