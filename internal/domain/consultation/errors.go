package consultation

import "errors"

var (
	ErrConsultationNotFound    = errors.New("consultation not found")
	ErrConsultationConflict    = errors.New("doctor already has a consultation in this time slot")
	ErrScheduledInPast         = errors.New("consultation cannot be scheduled in the past")
	ErrInvalidDuration         = errors.New("duration must be between 5 and 240 minutes")
	ErrInvalidStatusTransition = errors.New("invalid consultation status transition")
	ErrInvalidConsultationType = errors.New("invalid consultation type")
)
