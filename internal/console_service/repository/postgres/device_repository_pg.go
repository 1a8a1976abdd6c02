package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telepanel/telepanel/internal/console_service/domain"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock pools
// implement it too, which keeps the repository tests database-free.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgDeviceRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgDeviceRepository(db DB, logger *slog.Logger) domain.DeviceRepository {
	return &PgDeviceRepository{db: db, logger: logger.With("component", "device_repository_pg")}
}

func (r *PgDeviceRepository) FindByID(ctx context.Context, deviceID string) (*domain.Device, error) {
	query := `
		SELECT device_id, device_model, android_version, sim_cards, registered_at, last_active_at
		FROM devices
		WHERE device_id = $1
	`
	row := r.db.QueryRow(ctx, query, deviceID)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeviceNotFound
		}
		r.logger.ErrorContext(ctx, "Error finding device", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("finding device %s: %w", deviceID, err)
	}
	return device, nil
}

func (r *PgDeviceRepository) ListByLastActive(ctx context.Context) ([]*domain.Device, error) {
	query := `
		SELECT device_id, device_model, android_version, sim_cards, registered_at, last_active_at
		FROM devices
		ORDER BY last_active_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing devices", "error", err)
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// Upsert is a single conditional write so concurrent registrations for the
// same device id resolve at the store boundary (last writer wins on the
// contended row). registered_at is preserved across re-registrations.
func (r *PgDeviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	simCards, err := json.Marshal(device.SimCards)
	if err != nil {
		return fmt.Errorf("marshalling sim cards for device %s: %w", device.DeviceID, err)
	}

	query := `
		INSERT INTO devices (device_id, device_model, android_version, sim_cards, registered_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE SET
			device_model = EXCLUDED.device_model,
			android_version = EXCLUDED.android_version,
			sim_cards = EXCLUDED.sim_cards,
			last_active_at = EXCLUDED.last_active_at
	`
	_, err = r.db.Exec(ctx, query,
		device.DeviceID,
		device.DeviceModel,
		nullableString(device.AndroidVersion),
		simCards,
		device.RegisteredAt,
		device.LastActiveAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error upserting device", "device_id", device.DeviceID, "error", err)
		return fmt.Errorf("upserting device %s: %w", device.DeviceID, err)
	}
	return nil
}

func (r *PgDeviceRepository) TouchLastActive(ctx context.Context, deviceID string, at time.Time) error {
	query := `UPDATE devices SET last_active_at = $2 WHERE device_id = $1`
	tag, err := r.db.Exec(ctx, query, deviceID, at)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error touching device activity", "device_id", deviceID, "error", err)
		return fmt.Errorf("touching device %s: %w", deviceID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *PgDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	query := `DELETE FROM devices WHERE device_id = $1`
	if _, err := r.db.Exec(ctx, query, deviceID); err != nil {
		r.logger.ErrorContext(ctx, "Error deleting device", "device_id", deviceID, "error", err)
		return fmt.Errorf("deleting device %s: %w", deviceID, err)
	}
	return nil
}

// scanDevice works for both QueryRow and Query result rows.
func scanDevice(row pgx.Row) (*domain.Device, error) {
	var (
		device         domain.Device
		androidVersion sql.NullString
		simCards       []byte
	)
	err := row.Scan(
		&device.DeviceID,
		&device.DeviceModel,
		&androidVersion,
		&simCards,
		&device.RegisteredAt,
		&device.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	if androidVersion.Valid {
		device.AndroidVersion = androidVersion.String
	}
	if len(simCards) > 0 {
		if err := json.Unmarshal(simCards, &device.SimCards); err != nil {
			return nil, fmt.Errorf("unmarshalling sim cards: %w", err)
		}
	}
	return &device, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
