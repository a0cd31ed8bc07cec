package models

// Source is a retrieved transcript chunk cited by an answer.
type Source struct {
	MeetingID    string  `json:"meetingId"`
	MeetingTitle string  `json:"meetingTitle,omitempty"`
	Content      string  `json:"content"`
	SpeakerName  string  `json:"speakerName,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Answer is the result of a question over one meeting or all of a user's meetings.
// Sources is never nil so it always encodes as a JSON array.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// KeywordHit is a keyword search match over transcript chunks.
type KeywordHit struct {
	VectorID     string  `json:"vector_id"`
	MeetingID    string  `json:"meeting_id"`
	MeetingTitle string  `json:"meeting_title,omitempty"`
	SpeakerName  string  `json:"speaker_name,omitempty"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
}
