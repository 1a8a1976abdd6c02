package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

// ExportPartLimit is the transport ceiling for one outbound message body,
// chosen with margin under Telegram's documented 4096-character limit.
const ExportPartLimit = 4000

var exportSeparator = strings.Repeat("-", 58)

// BuildExportText serializes a device's full message history: a header block,
// then one bucket per calendar day. messages must already be ordered by
// timestamp descending; bucket order and per-bucket order both follow the
// input, so buckets come out date-descending.
func BuildExportText(device *domain.Device, messages []*domain.SmsMessage, exportedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SMS export for %s\n", device.DeviceModel)
	fmt.Fprintf(&b, "Export date: %s\n", exportedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Device: %s (%s)\n", device.DeviceModel, orUnknown(device.AndroidVersion))
	fmt.Fprintf(&b, "Total messages: %d\n\n", len(messages))
	b.WriteString(exportSeparator + "\n\n")

	var (
		dates   []string
		buckets = make(map[string][]*domain.SmsMessage)
	)
	for _, msg := range messages {
		date := msg.Timestamp.Format(dateLayout)
		if _, seen := buckets[date]; !seen {
			dates = append(dates, date)
		}
		buckets[date] = append(buckets[date], msg)
	}

	for _, date := range dates {
		fmt.Fprintf(&b, "%s\n\n", date)
		for _, msg := range buckets[date] {
			fmt.Fprintf(&b, "%s\n", msg.Timestamp.Format(hourLayout))
			fmt.Fprintf(&b, "From: %s\n", msg.Sender)
			fmt.Fprintf(&b, "SIM%d\n", msg.SimSlot+1)
			fmt.Fprintf(&b, "%s\n\n", msg.Text)
		}
		b.WriteString(exportSeparator + "\n\n")
	}

	return b.String()
}

// SplitExportParts slices text into parts of at most ExportPartLimit
// characters each, at raw character offsets. Concatenating the parts yields
// the input byte-for-byte. Slicing is rune-based so a multibyte character is
// never cut in half.
func SplitExportParts(text string) []string {
	runes := []rune(text)
	if len(runes) <= ExportPartLimit {
		return []string{text}
	}
	parts := make([]string, 0, (len(runes)+ExportPartLimit-1)/ExportPartLimit)
	for i := 0; i < len(runes); i += ExportPartLimit {
		end := i + ExportPartLimit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

// FormatPartMarker is the prefix injected before each part of a multi-part
// export. Stripping it from every delivered part reconstructs the export text.
func FormatPartMarker(i, total int) string {
	return fmt.Sprintf("Part %d/%d\n\n", i, total)
}
