package main

import (
	"errors"
	"fmt"
)

// Question is the wire and storage representation of a single trivia
// question. Questions are immutable once added to a session; the host may
// append but never edit or remove.
type Question struct {
	Text          string `json:"text" yaml:"text"`
	OptionA       string `json:"optionA" yaml:"optionA"`
	OptionB       string `json:"optionB" yaml:"optionB"`
	OptionC       string `json:"optionC" yaml:"optionC"`
	OptionD       string `json:"optionD" yaml:"optionD"`
	CorrectAnswer string `json:"correctAnswer" yaml:"correctAnswer"`
}

// publicQuestion is the view of a question broadcast to players, with the
// answer key withheld.
type publicQuestion struct {
	Text    string `json:"text"`
	OptionA string `json:"optionA"`
	OptionB string `json:"optionB"`
	OptionC string `json:"optionC"`
	OptionD string `json:"optionD"`
}

func (q Question) public() publicQuestion {
	return publicQuestion{
		Text:    q.Text,
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}

// validate rejects malformed questions before they reach the state machine.
func (q Question) validate() error {
	if q.Text == "" {
		return errors.New("question text is required")
	}
	if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return errors.New("all four options (A-D) are required")
	}
	switch q.CorrectAnswer {
	case "A", "B", "C", "D":
		return nil
	default:
		return fmt.Errorf("correct answer must be one of A-D, got %q", q.CorrectAnswer)
	}
}

// ClientMessage covers every inbound action. Unused fields stay empty for a
// given type.
type ClientMessage struct {
	Type        string    `json:"type"`                  // "create-session", "add-question", "import-pack", "start-game", "next-question", "reset-buzzer", "player-join", "buzz", "submit-answer"
	SessionID   string    `json:"sessionId,omitempty"`   // all but create-session
	DisplayName string    `json:"displayName,omitempty"` // player-join
	Question    *Question `json:"question,omitempty"`    // add-question
	Pack        string    `json:"pack,omitempty"`        // import-pack
	OptionKey   string    `json:"optionKey,omitempty"`   // submit-answer
}

// PlayerScore is one roster/scoreboard entry.
type PlayerScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Sent to the creating connection only.
type SessionCreatedMessage struct {
	Type      string `json:"type"` // "session-created"
	SessionID string `json:"sessionId"`
}

type RosterMessage struct {
	Type    string        `json:"type"` // "roster-updated"
	Players []PlayerScore `json:"players"`
}

// QuestionsMessage carries the full question list, answer keys included;
// it is only emitted during setup, driven by the host.
type QuestionsMessage struct {
	Type      string     `json:"type"` // "questions-updated"
	Questions []Question `json:"questions"`
}

// QuestionMessage announces the active question ("game-started" for the
// first, "new-question" after).
type QuestionMessage struct {
	Type          string         `json:"type"`
	Question      publicQuestion `json:"question"`
	BuzzerEnabled bool           `json:"buzzerEnabled"`
}

type BuzzerHitMessage struct {
	Type       string `json:"type"` // "buzzer-hit"
	HolderID   string `json:"holderId"`
	HolderName string `json:"holderName"`
}

// AnswerResultMessage reports a graded answer. Scores is present only on a
// correct answer; BuzzerEnabled only on an incorrect one.
type AnswerResultMessage struct {
	Type          string        `json:"type"` // "answer-result"
	AnswererID    string        `json:"answererId"`
	AnswererName  string        `json:"answererName"`
	Correct       bool          `json:"correct"`
	Scores        []PlayerScore `json:"scores,omitempty"`
	BuzzerEnabled bool          `json:"buzzerEnabled,omitempty"`
}

type GameEndedMessage struct {
	Type        string        `json:"type"` // "game-ended"
	FinalScores []PlayerScore `json:"finalScores"`
}

type BuzzerResetMessage struct {
	Type          string `json:"type"` // "buzzer-reset"
	BuzzerEnabled bool   `json:"buzzerEnabled"`
}

type HostDisconnectedMessage struct {
	Type string `json:"type"` // "host-disconnected"
}

// StateSnapshotMessage is sent to a joining connection only, so a late
// joiner can resume mid-game. BuzzerEnabled is the effective value: enabled
// and nobody currently holding.
type StateSnapshotMessage struct {
	Type          string          `json:"type"` // "state-snapshot"
	State         string          `json:"state"`
	Question      *publicQuestion `json:"question,omitempty"`
	BuzzerEnabled bool            `json:"buzzerEnabled"`
	CurrentBuzzer string          `json:"currentBuzzer,omitempty"`
}

// ErrorMessage is a scoped reply to the offending caller only.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
