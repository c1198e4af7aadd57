package models

// TimeSlot is a bookable window on a single calendar day. Slots are created
// by the generator and never deleted; booking and cancellation only toggle
// IsBooked and the customer fields.
type TimeSlot struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"`       // YYYY-MM-DD
	StartTime     string  `json:"start_time"` // HH:MM
	EndTime       string  `json:"end_time"`   // HH:MM
	IsBooked      bool    `json:"is_booked"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
}

// Customer holds the contact details attached to a booked slot.
type Customer struct {
	Name  string `json:"customer_name"`
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
}

// Complete reports whether all required contact fields are present.
func (c Customer) Complete() bool {
	return c.Name != "" && c.Email != "" && c.Phone != ""
}

// Customer returns the contact details of a booked slot. The second return
// is false for free slots, whose customer columns are NULL.
func (s *TimeSlot) Customer() (Customer, bool) {
	if !s.IsBooked || s.CustomerName == nil || s.CustomerEmail == nil || s.CustomerPhone == nil {
		return Customer{}, false
	}
	return Customer{
		Name:  *s.CustomerName,
		Email: *s.CustomerEmail,
		Phone: *s.CustomerPhone,
	}, true
}

// Label is a compact "date start-end" form used in logs.
func (s *TimeSlot) Label() string {
	return s.Date + " " + s.StartTime + "-" + s.EndTime
}
