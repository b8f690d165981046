package main

import (
	"time"
)

type sessionState string

const (
	stateWaiting  sessionState = "waiting"
	stateQuestion sessionState = "question"
	stateResults  sessionState = "results"
)

// verdict records why an action was applied or dropped. The wire protocol
// stays silent on most rejections; tests assert on these instead.
type verdict int

const (
	verdictOK verdict = iota
	verdictNotFound
	verdictUnauthorized
	verdictInvalidState
	verdictMalformed
)

// Player is one joined connection's standing in a session. Identity is the
// connection itself; a reconnect is a fresh Player with a fresh score.
type Player struct {
	ID    string
	Name  string
	Score int
}

const correctAnswerPoints = 100

// Session is one running game: exactly one host, any number of players.
// All mutation happens on the GameServer event loop, one action at a time,
// so no locking is needed here.
type Session struct {
	id        string
	host      *Client
	questions []Question
	current   int // -1 until the game starts
	state     sessionState

	buzzerOpen bool
	buzzer     *Client
	wrong      map[*Client]bool // answered the current question incorrectly

	players     map[*Client]*Player
	subscribers map[*Client]bool

	createdAt  time.Time
	lastActive time.Time
}

func newSession(id string, host *Client) *Session {
	now := time.Now()
	s := &Session{
		id:          id,
		host:        host,
		current:     -1,
		state:       stateWaiting,
		wrong:       make(map[*Client]bool),
		players:     make(map[*Client]*Player),
		subscribers: make(map[*Client]bool),
		createdAt:   now,
		lastActive:  now,
	}
	s.subscribers[host] = true
	return s
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

// broadcast delivers msg to every subscribed connection. A subscriber whose
// send buffer is full is unsubscribed rather than blocking the event loop;
// its Player entry survives until the connection itself goes away.
func (s *Session) broadcast(msg any) {
	for c := range s.subscribers {
		select {
		case c.send <- msg:
		default:
			delete(s.subscribers, c)
		}
	}
}

// sendTo is a caller-only reply; dropped silently if the client is backed up.
func sendTo(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func (s *Session) scores() []PlayerScore {
	scores := make([]PlayerScore, 0, len(s.players))
	for _, p := range s.players {
		scores = append(scores, PlayerScore{Name: p.Name, Score: p.Score})
	}
	return scores
}

// currentQuestion is only valid while state == stateQuestion.
func (s *Session) currentQuestion() Question {
	return s.questions[s.current]
}

func (s *Session) addQuestion(c *Client, q Question) verdict {
	if c != s.host {
		return verdictUnauthorized
	}

	if err := q.validate(); err != nil {
		sendTo(c, ErrorMessage{Type: "error", Message: err.Error()})
		return verdictMalformed
	}

	s.touch()
	s.questions = append(s.questions, q)

	s.broadcast(QuestionsMessage{
		Type:      "questions-updated",
		Questions: s.questions,
	})

	return verdictOK
}

func (s *Session) startGame(c *Client) verdict {
	if c != s.host {
		return verdictUnauthorized
	}

	// Starting an empty quiz would leave the session pointing at a
	// question that does not exist.
	if len(s.questions) == 0 {
		return verdictInvalidState
	}

	s.touch()
	s.state = stateQuestion
	s.current = 0
	s.buzzerOpen = true
	s.buzzer = nil
	s.wrong = make(map[*Client]bool)

	s.broadcast(QuestionMessage{
		Type:          "game-started",
		Question:      s.currentQuestion().public(),
		BuzzerEnabled: true,
	})

	return verdictOK
}

func (s *Session) nextQuestion(c *Client) verdict {
	if c != s.host {
		return verdictUnauthorized
	}

	s.touch()
	s.current++

	if s.current < len(s.questions) {
		s.state = stateQuestion
		s.buzzerOpen = true
		s.buzzer = nil
		s.wrong = make(map[*Client]bool)

		s.broadcast(QuestionMessage{
			Type:          "new-question",
			Question:      s.currentQuestion().public(),
			BuzzerEnabled: true,
		})

		return verdictOK
	}

	s.state = stateResults

	s.broadcast(GameEndedMessage{
		Type:        "game-ended",
		FinalScores: s.scores(),
	})

	return verdictOK
}

func (s *Session) resetBuzzer(c *Client) verdict {
	if c != s.host {
		return verdictUnauthorized
	}

	s.touch()
	s.buzzerOpen = true
	s.buzzer = nil

	s.broadcast(BuzzerResetMessage{
		Type:          "buzzer-reset",
		BuzzerEnabled: true,
	})

	return verdictOK
}

// join creates (or overwrites) the Player entry for this connection and
// sends it a full state snapshot, so a late joiner can resume mid-game.
func (s *Session) join(c *Client, displayName string) verdict {
	if displayName == "" {
		sendTo(c, ErrorMessage{Type: "error", Message: "display name is required"})
		return verdictMalformed
	}

	s.touch()
	s.players[c] = &Player{ID: c.id, Name: displayName}
	s.subscribers[c] = true

	s.broadcast(RosterMessage{
		Type:    "roster-updated",
		Players: s.scores(),
	})

	snapshot := StateSnapshotMessage{
		Type:          "state-snapshot",
		State:         string(s.state),
		BuzzerEnabled: s.buzzerOpen && s.buzzer == nil,
	}
	if s.state == stateQuestion {
		q := s.currentQuestion().public()
		snapshot.Question = &q
	}
	if s.buzzer != nil {
		if holder, ok := s.players[s.buzzer]; ok {
			snapshot.CurrentBuzzer = holder.Name
		}
	}
	sendTo(c, snapshot)

	return verdictOK
}

// buzz grants the buzzer to the first valid attempt; every later attempt
// observes a holder and is dropped. Arrival order on the event loop is the
// total order.
func (s *Session) buzz(c *Client) verdict {
	p, joined := s.players[c]
	if !joined {
		return verdictUnauthorized
	}

	if s.state != stateQuestion || !s.buzzerOpen || s.buzzer != nil {
		return verdictInvalidState
	}

	// One wrong answer locks you out until the next question.
	if s.wrong[c] {
		return verdictInvalidState
	}

	s.touch()
	s.buzzer = c
	s.buzzerOpen = false

	s.broadcast(BuzzerHitMessage{
		Type:       "buzzer-hit",
		HolderID:   p.ID,
		HolderName: p.Name,
	})

	return verdictOK
}

func (s *Session) submitAnswer(c *Client, optionKey string) verdict {
	p, joined := s.players[c]
	if !joined {
		return verdictUnauthorized
	}

	if s.state != stateQuestion || s.buzzer != c {
		return verdictInvalidState
	}

	s.touch()

	correct := optionKey == s.currentQuestion().CorrectAnswer

	result := AnswerResultMessage{
		Type:         "answer-result",
		AnswererID:   p.ID,
		AnswererName: p.Name,
		Correct:      correct,
	}

	if correct {
		p.Score += correctAnswerPoints
		// The buzzer stays closed: the host advances explicitly.
		s.buzzer = nil
		result.Scores = s.scores()
	} else {
		s.wrong[c] = true
		s.buzzer = nil
		s.buzzerOpen = true
		result.BuzzerEnabled = true
	}

	s.broadcast(result)

	return verdictOK
}

// removeConnection handles a player or spectator connection going away.
// Host departure is handled by the registry, which ends the whole session.
// A connection unsubscribed earlier by backpressure may still hold a Player
// entry or the buzzer, so cleanup keys off the players map, not the
// subscription.
func (s *Session) removeConnection(c *Client) {
	delete(s.subscribers, c)

	if _, joined := s.players[c]; !joined {
		return
	}

	delete(s.players, c)
	delete(s.wrong, c)
	s.touch()

	s.broadcast(RosterMessage{
		Type:    "roster-updated",
		Players: s.scores(),
	})

	if s.buzzer == c {
		s.buzzer = nil
		s.buzzerOpen = true

		s.broadcast(BuzzerResetMessage{
			Type:          "buzzer-reset",
			BuzzerEnabled: true,
		})
	}
}

// end notifies every subscriber that the session is over and detaches them.
// Connections stay open; they may hold roles in other sessions.
func (s *Session) end() {
	s.broadcast(HostDisconnectedMessage{Type: "host-disconnected"})

	for c := range s.subscribers {
		delete(s.subscribers, c)
	}
}
