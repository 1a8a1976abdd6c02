package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

type PgMessageRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgMessageRepository(db DB, logger *slog.Logger) domain.MessageRepository {
	return &PgMessageRepository{db: db, logger: logger.With("component", "message_repository_pg")}
}

func (r *PgMessageRepository) Create(ctx context.Context, msg *domain.SmsMessage) error {
	query := `
		INSERT INTO sms_messages (id, sender, body, received_at, sim_slot, device_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID,
		msg.Sender,
		msg.Text,
		msg.Timestamp,
		msg.SimSlot,
		msg.DeviceID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting message", "message_id", msg.ID, "device_id", msg.DeviceID, "error", err)
		return fmt.Errorf("inserting message %s: %w", msg.ID, err)
	}
	return nil
}

func (r *PgMessageRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	query := `SELECT COUNT(*) FROM sms_messages WHERE device_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, deviceID).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Error counting messages", "device_id", deviceID, "error", err)
		return 0, fmt.Errorf("counting messages for device %s: %w", deviceID, err)
	}
	return count, nil
}

func (r *PgMessageRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.SmsMessage, error) {
	query := `
		SELECT id, sender, body, received_at, sim_slot, device_id
		FROM sms_messages
		WHERE device_id = $1
		ORDER BY received_at DESC
	`
	args := []any{deviceID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing messages", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("listing messages for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	var messages []*domain.SmsMessage
	for rows.Next() {
		var msg domain.SmsMessage
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &msg.Timestamp, &msg.SimSlot, &msg.DeviceID); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

func (r *PgMessageRepository) DeleteByDevice(ctx context.Context, deviceID string) error {
	query := `DELETE FROM sms_messages WHERE device_id = $1`
	if _, err := r.db.Exec(ctx, query, deviceID); err != nil {
		r.logger.ErrorContext(ctx, "Error deleting messages for device", "device_id", deviceID, "error", err)
		return fmt.Errorf("deleting messages for device %s: %w", deviceID, err)
	}
	return nil
}
