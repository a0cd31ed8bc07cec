package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/minutes/internal/models"
	"github.com/hyperjump/minutes/internal/vector"
)

// NoResultsAnswer is returned by AnswerForAllMeetings when nothing matches.
const NoResultsAnswer = "I couldn't find any relevant information in your meetings to answer this question. " +
	"This might be because your meetings haven't been processed for AI search yet, " +
	"or the information isn't available in your meeting transcripts."

// FailureAnswer replaces any internal failure in AnswerForAllMeetings.
const FailureAnswer = "I encountered an error while searching your meetings. " +
	"This might be because the AI services aren't fully configured yet. " +
	"Please try again later or contact support if the issue persists."

// unknownSpeaker labels chunks with no detected speaker.
const unknownSpeaker = "Unknown"

const meetingDateLayout = "Mon Jan 02 2006"

func speakerOrUnknown(name string) string {
	if name == "" {
		return unknownSpeaker
	}
	return name
}

// meetingContext renders matches as "{speaker}: {content}" separated by blank lines.
func meetingContext(matches []vector.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = speakerOrUnknown(m.Metadata.SpeakerName) + ": " + m.Metadata.Content
	}
	return strings.Join(parts, "\n\n")
}

// allMeetingsContext renders each match under its meeting title so answers can cite meetings.
func allMeetingsContext(matches []vector.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		title := m.Metadata.MeetingTitle
		if title == "" {
			title = models.UntitledMeeting
		}
		parts[i] = fmt.Sprintf("Meeting: %s\n%s: %s", title, speakerOrUnknown(m.Metadata.SpeakerName), m.Metadata.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func meetingPrompt(title string, date time.Time, context string) string {
	when := "Unknown"
	if !date.IsZero() {
		when = date.Format(meetingDateLayout)
	}
	return fmt.Sprintf("You are helping someone understand their meeting.\n"+
		"Meeting: %s\n"+
		"Date: %s\n\n"+
		"Here's what was discussed:\n%s\n\n"+
		"Answer the user's question based only on the meeting content above. "+
		"If the answer isn't in the meeting, say so.", title, when, context)
}

func allMeetingsPrompt(context string) string {
	return "You are helping someone understand their meeting history.\n\n" +
		"Here's what was discussed across their meetings:\n" + context + "\n\n" +
		"Answer the user's question based only on the meeting content above. " +
		"When you reference something, mention which meeting it's from."
}
