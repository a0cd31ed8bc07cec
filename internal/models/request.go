package models

import (
	"errors"
	"strings"
)

// ChatRequest is a question asked against one meeting (MeetingID set) or all meetings.
type ChatRequest struct {
	MeetingID string `json:"meetingId,omitempty"`
	Question  string `json:"question"`
}

// ErrMissingQuestion is returned by Validate when the question is blank.
var ErrMissingQuestion = errors.New("question is required")

// ErrMissingMeetingID is returned by ValidateForMeeting when no meeting is named.
var ErrMissingMeetingID = errors.New("meetingId is required")

// Validate trims the question and reports whether it is usable.
func (r *ChatRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	r.MeetingID = strings.TrimSpace(r.MeetingID)
	if r.Question == "" {
		return ErrMissingQuestion
	}
	return nil
}

// ValidateForMeeting is Validate plus a required meeting id.
func (r *ChatRequest) ValidateForMeeting() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.MeetingID == "" {
		return ErrMissingMeetingID
	}
	return nil
}
