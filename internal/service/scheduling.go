package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"slotdesk/internal/cache"
	"slotdesk/internal/database"
	"slotdesk/internal/metrics"
	"slotdesk/internal/models"
	"slotdesk/internal/slots"
)

// SlotStore is the storage surface the scheduling operations run on.
type SlotStore interface {
	InsertMissingSlots(ctx context.Context, date string, windows []slots.Window) (int64, error)
	ListAvailable(ctx context.Context, date string) ([]models.TimeSlot, error)
	ListBooked(ctx context.Context, date string) ([]models.TimeSlot, error)
	BookSlot(ctx context.Context, id int64, customer models.Customer) (*models.TimeSlot, error)
	CancelSlot(ctx context.Context, id int64) (*models.TimeSlot, error)
}

// SchedulingService implements slot generation and the booking lifecycle.
type SchedulingService struct {
	store    SlotStore
	cache    cache.AvailabilityCache
	defaults slots.Params
	logger   *zerolog.Logger
}

func NewSchedulingService(store SlotStore, availability cache.AvailabilityCache, defaults slots.Params, logger *zerolog.Logger) *SchedulingService {
	return &SchedulingService{
		store:    store,
		cache:    availability,
		defaults: defaults,
		logger:   logger,
	}
}

// DefaultParams returns the configured working-day defaults.
func (s *SchedulingService) DefaultParams() slots.Params {
	return s.defaults
}

// GenerateSlots lays out the slot grid for a date and persists the windows
// that do not exist yet. Returns the number of slots created; re-running
// for the same date and parameters creates nothing.
func (s *SchedulingService) GenerateSlots(ctx context.Context, date string, p slots.Params) (int64, error) {
	day, err := s.parseRequiredDate(date)
	if err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, validationError("%s", err.Error())
	}

	created, err := s.store.InsertMissingSlots(ctx, date, slots.Grid(day, p))
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("slot generation failed")
		return created, internalError(err)
	}

	s.cache.Invalidate(ctx, date)
	metrics.AddSlotsGenerated(created)

	s.logger.Info().Str("date", date).Int64("created", created).Msg("timeslots generated")
	return created, nil
}

// AvailableSlots lists the free slots for a date, id ascending.
func (s *SchedulingService) AvailableSlots(ctx context.Context, date string) ([]models.TimeSlot, error) {
	if _, err := s.parseRequiredDate(date); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(ctx, date); ok {
		return cached, nil
	}

	available, err := s.store.ListAvailable(ctx, date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("availability listing failed")
		return nil, internalError(err)
	}

	s.cache.Set(ctx, date, available)
	return available, nil
}

// Book marks a free slot as booked with the customer contact. Exactly one
// of any concurrent attempts on the same slot succeeds.
func (s *SchedulingService) Book(ctx context.Context, slotID int64, customer models.Customer) (*models.TimeSlot, error) {
	if slotID <= 0 {
		return nil, validationError("slot_id is required")
	}
	if !customer.Complete() {
		return nil, validationError("customer_name, customer_email and customer_phone are required")
	}

	slot, err := s.store.BookSlot(ctx, slotID, customer)
	if err != nil {
		if errors.Is(err, database.ErrSlotUnavailable) {
			return nil, conflictError(err)
		}
		s.logger.Error().Err(err).Int64("slot_id", slotID).Msg("booking failed")
		return nil, internalError(err)
	}

	s.cache.Invalidate(ctx, slot.Date)
	metrics.IncAppointmentBooked()

	s.logger.Info().Int64("slot_id", slot.ID).Str("slot", slot.Label()).Msg("appointment booked")
	return slot, nil
}

// Cancel frees a booked slot and clears its customer contact.
func (s *SchedulingService) Cancel(ctx context.Context, slotID int64) (*models.TimeSlot, error) {
	if slotID <= 0 {
		return nil, validationError("slot_id is required")
	}

	slot, err := s.store.CancelSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, database.ErrNotBooked) {
			return nil, conflictError(err)
		}
		s.logger.Error().Err(err).Int64("slot_id", slotID).Msg("cancellation failed")
		return nil, internalError(err)
	}

	s.cache.Invalidate(ctx, slot.Date)
	metrics.IncAppointmentCancelled()

	s.logger.Info().Int64("slot_id", slot.ID).Str("slot", slot.Label()).Msg("appointment cancelled")
	return slot, nil
}

// BookedAppointments lists booked slots, filtered by date when given.
func (s *SchedulingService) BookedAppointments(ctx context.Context, date string) ([]models.TimeSlot, error) {
	if date != "" {
		if _, err := slots.ParseDate(date); err != nil {
			return nil, validationError("invalid date format; expected YYYY-MM-DD")
		}
	}

	booked, err := s.store.ListBooked(ctx, date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("booked listing failed")
		return nil, internalError(err)
	}
	return booked, nil
}

func (s *SchedulingService) parseRequiredDate(date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, validationError("date is required")
	}
	day, err := slots.ParseDate(date)
	if err != nil {
		return time.Time{}, validationError("invalid date format; expected YYYY-MM-DD")
	}
	return day, nil
}
