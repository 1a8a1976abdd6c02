package app

import (
	"fmt"
	"strings"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

// Timestamp layouts used across screens and exports, minute precision.
const (
	timeLayout = "02.01.2006 15:04"
	dateLayout = "02.01.2006"
	hourLayout = "15:04"
)

// Screen is the rendered form of one navigation state: a text body plus an
// inline keyboard. Rendering is pure; all data is fetched before calling.
type Screen struct {
	Text     string
	Keyboard [][]domain.Button
}

func mainMenuKeyboard() [][]domain.Button {
	return [][]domain.Button{
		{{Label: "Device list", Token: tokenDevices}},
	}
}

// RenderWelcome is the /start greeting.
func RenderWelcome() Screen {
	return Screen{
		Text:     "Welcome to the control panel! Choose an action:",
		Keyboard: mainMenuKeyboard(),
	}
}

// RenderMainMenu is the main screen reached via back_to_main.
func RenderMainMenu() Screen {
	return Screen{
		Text:     "Choose an action:",
		Keyboard: mainMenuKeyboard(),
	}
}

// RenderDeviceList renders one summary block and one button per device, in the
// order given (most recently active first).
func RenderDeviceList(devices []*domain.Device) Screen {
	if len(devices) == 0 {
		return Screen{
			Text: "No devices found.",
			Keyboard: [][]domain.Button{
				{{Label: "Main menu", Token: tokenBackToMain}},
			},
		}
	}

	var b strings.Builder
	b.WriteString("Available devices:\n\n")
	keyboard := make([][]domain.Button, 0, len(devices)+1)
	for _, d := range devices {
		fmt.Fprintf(&b, "%s\n", d.DeviceModel)
		fmt.Fprintf(&b, "ID: %s\n", d.DeviceID)
		fmt.Fprintf(&b, "Android: %s\n", orUnknown(d.AndroidVersion))
		fmt.Fprintf(&b, "Last active: %s\n", d.LastActiveAt.Format(timeLayout))
		fmt.Fprintf(&b, "SIM cards: %d\n\n", len(d.SimCards))

		keyboard = append(keyboard, []domain.Button{
			{Label: d.DeviceModel, Token: tokenPrefixDevice + d.DeviceID},
		})
	}
	keyboard = append(keyboard, []domain.Button{{Label: "Main menu", Token: tokenBackToMain}})

	return Screen{Text: b.String(), Keyboard: keyboard}
}

// RenderDeviceDetail renders the full device card with its message count.
func RenderDeviceDetail(d *domain.Device, smsCount int) Screen {
	var b strings.Builder
	fmt.Fprintf(&b, "Device: %s\n\n", d.DeviceModel)
	fmt.Fprintf(&b, "ID: %s\n", d.DeviceID)
	fmt.Fprintf(&b, "Android: %s\n", orUnknown(d.AndroidVersion))
	fmt.Fprintf(&b, "Registered: %s\n", d.RegisteredAt.Format(timeLayout))
	fmt.Fprintf(&b, "Last active: %s\n", d.LastActiveAt.Format(timeLayout))
	fmt.Fprintf(&b, "SMS messages: %d\n\n", smsCount)

	if len(d.SimCards) > 0 {
		b.WriteString("SIM cards:\n")
		for _, sim := range d.SimCards {
			b.WriteString(simLine(sim))
		}
	} else {
		b.WriteString("SIM cards: no information\n")
	}

	return Screen{
		Text: b.String(),
		Keyboard: [][]domain.Button{
			{{Label: "View SMS", Token: tokenPrefixSms + d.DeviceID}},
			{{Label: "Export all SMS", Token: tokenPrefixExport + d.DeviceID}},
			{{Label: "Delete device", Token: tokenPrefixDelete + d.DeviceID}},
			{{Label: "Device list", Token: tokenBackToDevices}},
			{{Label: "Main menu", Token: tokenBackToMain}},
		},
	}
}

// RenderMessageList renders up to the latest 10 messages for a device.
func RenderMessageList(d *domain.Device, messages []*domain.SmsMessage) Screen {
	var b strings.Builder
	fmt.Fprintf(&b, "Latest SMS for %s:\n\n", d.DeviceModel)
	if len(messages) == 0 {
		b.WriteString("No SMS messages.")
	} else {
		for _, msg := range messages {
			fmt.Fprintf(&b, "From: %s\n", msg.Sender)
			fmt.Fprintf(&b, "Text: %s\n", msg.Text)
			fmt.Fprintf(&b, "Time: %s\n", msg.Timestamp.Format(timeLayout))
			fmt.Fprintf(&b, "SIM: SIM%d\n\n", msg.SimSlot+1)
		}
	}

	return Screen{
		Text: b.String(),
		Keyboard: [][]domain.Button{
			{{Label: "Export all SMS", Token: tokenPrefixExport + d.DeviceID}},
			{{Label: "Device info", Token: tokenPrefixDevice + d.DeviceID}},
			{{Label: "Device list", Token: tokenBackToDevices}},
			{{Label: "Main menu", Token: tokenBackToMain}},
		},
	}
}

// RenderDeviceNotFound is the dedicated screen for a missing device reference.
func RenderDeviceNotFound() Screen {
	return Screen{
		Text: "Device not found.",
		Keyboard: [][]domain.Button{
			{{Label: "Device list", Token: tokenDevices}},
		},
	}
}

// RenderDeviceDeleted confirms a cascade delete.
func RenderDeviceDeleted() Screen {
	return Screen{
		Text: "Device and all its SMS messages deleted.",
		Keyboard: [][]domain.Button{
			{{Label: "Device list", Token: tokenBackToDevices}},
			{{Label: "Main menu", Token: tokenBackToMain}},
		},
	}
}

// RenderNoMessagesForExport replaces an export when the device has no messages.
func RenderNoMessagesForExport(deviceID string) Screen {
	return Screen{
		Text: "No SMS messages.",
		Keyboard: [][]domain.Button{
			{{Label: "Device info", Token: tokenPrefixDevice + deviceID}},
		},
	}
}

// exportFollowUpKeyboard is attached to the single-part export message or to
// the trailing "Export finished" message of a multi-part export.
func exportFollowUpKeyboard(deviceID string) [][]domain.Button {
	return [][]domain.Button{
		{{Label: "Device info", Token: tokenPrefixDevice + deviceID}},
		{{Label: "Device list", Token: tokenBackToDevices}},
		{{Label: "Main menu", Token: tokenBackToMain}},
	}
}

// RenderExportFinished trails a multi-part export.
func RenderExportFinished(deviceID string) Screen {
	return Screen{
		Text:     "Export finished",
		Keyboard: exportFollowUpKeyboard(deviceID),
	}
}

// RenderFailure is the generic store-failure line. The session is left
// untouched so the operator can simply retry.
func RenderFailure() Screen {
	return Screen{Text: "The operation failed. Please try again."}
}

// Notification renders. Each carries a jump to the affected device.

func deviceJumpKeyboard(deviceID string) [][]domain.Button {
	return [][]domain.Button{
		{{Label: "Device info", Token: tokenPrefixDevice + deviceID}},
	}
}

// RenderNewDeviceNotification announces a first-time registration.
func RenderNewDeviceNotification(d *domain.Device) Screen {
	var b strings.Builder
	b.WriteString("New device registered!\n\n")
	fmt.Fprintf(&b, "Model: %s\n", d.DeviceModel)
	fmt.Fprintf(&b, "ID: %s\n", d.DeviceID)
	fmt.Fprintf(&b, "Android: %s\n", orUnknown(d.AndroidVersion))
	if len(d.SimCards) > 0 {
		b.WriteString("\nSIM cards:\n")
		for _, sim := range d.SimCards {
			b.WriteString(simLine(sim))
		}
	}
	return Screen{Text: b.String(), Keyboard: deviceJumpKeyboard(d.DeviceID)}
}

// RenderNewSmsNotification announces a single forwarded message, full text included.
func RenderNewSmsNotification(msg *domain.SmsMessage, d *domain.Device) Screen {
	var b strings.Builder
	b.WriteString("New SMS message!\n\n")
	fmt.Fprintf(&b, "Device: %s\n", d.DeviceModel)
	fmt.Fprintf(&b, "ID: %s\n", d.DeviceID)
	fmt.Fprintf(&b, "From: %s\n", msg.Sender)
	fmt.Fprintf(&b, "SIM: SIM%d\n", msg.SimSlot+1)
	fmt.Fprintf(&b, "Time: %s\n\n", msg.Timestamp.Format(timeLayout))
	fmt.Fprintf(&b, "Text:\n%s", msg.Text)
	return Screen{Text: b.String(), Keyboard: deviceJumpKeyboard(d.DeviceID)}
}

// RenderBulkUploadNotification announces a completed bulk upload.
func RenderBulkUploadNotification(count int, d *domain.Device) Screen {
	var b strings.Builder
	b.WriteString("SMS messages uploaded!\n\n")
	fmt.Fprintf(&b, "Device: %s\n", d.DeviceModel)
	fmt.Fprintf(&b, "ID: %s\n", d.DeviceID)
	fmt.Fprintf(&b, "Count: %d messages\n", count)
	return Screen{Text: b.String(), Keyboard: deviceJumpKeyboard(d.DeviceID)}
}

func simLine(sim domain.SimCard) string {
	return fmt.Sprintf("SIM%d: %s (%s)\n", sim.SlotIndex+1, orUnknown(sim.PhoneNumber), orUnknown(sim.OperatorName))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
