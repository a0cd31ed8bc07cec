package models

import (
	"errors"
	"testing"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		meeting bool
		wantErr error
	}{
		{"question only", ChatRequest{Question: " what happened? "}, false, nil},
		{"blank question", ChatRequest{Question: "   "}, false, ErrMissingQuestion},
		{"meeting scoped", ChatRequest{MeetingID: "m1", Question: "q"}, true, nil},
		{"meeting scoped without id", ChatRequest{Question: "q"}, true, ErrMissingMeetingID},
		{"meeting scoped blank question", ChatRequest{MeetingID: "m1"}, true, ErrMissingQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.meeting {
				err = tt.req.ValidateForMeeting()
			} else {
				err = tt.req.Validate()
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatRequest_ValidateTrims(t *testing.T) {
	r := ChatRequest{MeetingID: " m1 ", Question: "  hi there  "}
	if err := r.ValidateForMeeting(); err != nil {
		t.Fatal(err)
	}
	if r.Question != "hi there" || r.MeetingID != "m1" {
		t.Errorf("not trimmed: %+v", r)
	}
}

func TestMeeting_TitleOrDefault(t *testing.T) {
	var nilMeeting *Meeting
	if nilMeeting.TitleOrDefault() != UntitledMeeting {
		t.Error("nil meeting should use default title")
	}
	if (&Meeting{}).TitleOrDefault() != UntitledMeeting {
		t.Error("blank title should use default")
	}
	if (&Meeting{Title: "Standup"}).TitleOrDefault() != "Standup" {
		t.Error("title should be kept")
	}
}
