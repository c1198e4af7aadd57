package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"slotdesk/internal/models"
	"slotdesk/internal/slots"
)

const slotColumns = `id, date, start_time, end_time, is_booked,
	customer_name, customer_email, customer_phone`

// InsertMissingSlots persists the windows that do not exist yet for the
// date and returns the number of rows created. Existing rows, booked ones
// included, are left untouched; each insert commits independently.
func (db *DB) InsertMissingSlots(ctx context.Context, date string, windows []slots.Window) (int64, error) {
	var created int64
	for _, w := range windows {
		res, err := db.ExecContext(ctx, `
			INSERT INTO timeslots (date, start_time, end_time, is_booked)
			SELECT ?, ?, ?, 0
			WHERE NOT EXISTS (
				SELECT 1 FROM timeslots WHERE date = ? AND start_time = ?
			)`,
			date, w.Start, w.End, date, w.Start,
		)
		if err != nil {
			return created, fmt.Errorf("insert slot %s %s: %w", date, w.Start, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("rows affected: %w", err)
		}
		created += n
	}
	return created, nil
}

// GetSlot returns a slot by id, or sql.ErrNoRows.
func (db *DB) GetSlot(ctx context.Context, id int64) (*models.TimeSlot, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM timeslots WHERE id = ?`, id)
	return scanSlot(row)
}

// ListAvailable returns the free slots for a date, id ascending.
func (db *DB) ListAvailable(ctx context.Context, date string) ([]models.TimeSlot, error) {
	return db.listSlots(ctx,
		`SELECT `+slotColumns+` FROM timeslots WHERE date = ? AND is_booked = 0 ORDER BY id`,
		date)
}

// ListBooked returns booked slots, filtered by date when date is non-empty.
func (db *DB) ListBooked(ctx context.Context, date string) ([]models.TimeSlot, error) {
	if date == "" {
		return db.listSlots(ctx,
			`SELECT `+slotColumns+` FROM timeslots WHERE is_booked = 1 ORDER BY id`)
	}
	return db.listSlots(ctx,
		`SELECT `+slotColumns+` FROM timeslots WHERE date = ? AND is_booked = 1 ORDER BY id`,
		date)
}

// BookSlot marks a free slot as booked and stores the customer contact.
// The availability check and the update run in one immediate transaction,
// so concurrent attempts on the same slot serialize and only one wins.
func (db *DB) BookSlot(ctx context.Context, id int64, customer models.Customer) (*models.TimeSlot, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var isBooked bool
	err = tx.QueryRowContext(ctx,
		"SELECT is_booked FROM timeslots WHERE id = ?", id,
	).Scan(&isBooked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if isBooked {
		return nil, ErrSlotUnavailable
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE timeslots
		SET is_booked = 1,
		    customer_name = ?,
		    customer_email = ?,
		    customer_phone = ?
		WHERE id = ?`,
		customer.Name, customer.Email, customer.Phone, id,
	)
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}

	slot, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM timeslots WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reload slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return slot, nil
}

// CancelSlot frees a booked slot and clears the customer contact.
func (db *DB) CancelSlot(ctx context.Context, id int64) (*models.TimeSlot, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var isBooked bool
	err = tx.QueryRowContext(ctx,
		"SELECT is_booked FROM timeslots WHERE id = ?", id,
	).Scan(&isBooked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotBooked
	}
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if !isBooked {
		return nil, ErrNotBooked
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE timeslots
		SET is_booked = 0,
		    customer_name = NULL,
		    customer_email = NULL,
		    customer_phone = NULL
		WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel slot: %w", err)
	}

	slot, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM timeslots WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reload slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return slot, nil
}

func (db *DB) listSlots(ctx context.Context, query string, args ...any) ([]models.TimeSlot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TimeSlot
	for rows.Next() {
		slot, err := scanSlotRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *slot)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row *sql.Row) (*models.TimeSlot, error) {
	return scanSlotRow(row)
}

func scanSlotRow(row rowScanner) (*models.TimeSlot, error) {
	var s models.TimeSlot
	var name, email, phone sql.NullString
	if err := row.Scan(
		&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.IsBooked,
		&name, &email, &phone,
	); err != nil {
		return nil, err
	}
	if name.Valid {
		s.CustomerName = &name.String
	}
	if email.Valid {
		s.CustomerEmail = &email.String
	}
	if phone.Valid {
		s.CustomerPhone = &phone.String
	}
	return &s, nil
}
