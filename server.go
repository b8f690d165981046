// Quizbuzz trivia server
//
// One host connection creates a session, loads it with multiple-choice
// questions, and drives the game; player connections join by session ID,
// race to buzz in on each question, and answer for points.
//
// Features:
// - Single WebSocket endpoint; every action carries its session ID
// - A connection may host one session and play in another at the same time
// - First valid buzz wins; all later attempts observe the holder and drop
// - Wrong answers reopen the buzzer for everyone except the player who missed
// - Host-only control actions (add/import questions, start, next, reset)
//   are silently dropped for anyone else
// - Host disconnect ends the session immediately for all players
// - Sessions idle past the configured timeout are reaped
// - Random 8-char session IDs via crypto/rand, with collision check
// - In-browser QR code to share a session's join link, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
}

type action struct {
	client *Client
	msg    ClientMessage
}

// GameServer owns every session and processes every inbound event on a
// single goroutine, so concurrent actions against one session resolve in
// arrival order without locks.
type GameServer struct {
	cfg    *Config
	logger *log.Logger
	packs  *PackLibrary

	sessions map[string]*Session

	register   chan *Client
	unregister chan *Client
	actions    chan action
}

func newGameServer(cfg *Config, logger *log.Logger, packs *PackLibrary) *GameServer {
	return &GameServer{
		cfg:        cfg,
		logger:     logger,
		packs:      packs,
		sessions:   make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		actions:    make(chan action),
	}
}

func (g *GameServer) run(ctx context.Context) {
	reapEvery := g.cfg.sessionTimeout / 2
	if reapEvery <= 0 {
		reapEvery = time.Hour
	}
	ticker := time.NewTicker(reapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-g.register:
			g.logger.Debug("client connected", "conn", c.id)

		case c := <-g.unregister:
			g.dropConnection(c)

		case a := <-g.actions:
			g.dispatch(a.client, a.msg)

		case <-ticker.C:
			g.reapIdle()
		}
	}
}

// lookup is a pure read; destroy is idempotent.
func (g *GameServer) lookup(id string) (*Session, bool) {
	s, ok := g.sessions[id]
	return s, ok
}

func (g *GameServer) destroy(id string) {
	if s, ok := g.sessions[id]; ok {
		s.end()
		delete(g.sessions, id)
	}
}

// dispatch routes one inbound action to the registry or a session. The
// returned verdict is for tests and logging; apart from not-found and
// malformed payloads, rejected actions produce no reply.
func (g *GameServer) dispatch(c *Client, msg ClientMessage) verdict {
	if msg.Type == "create-session" {
		id := g.newSessionID()
		g.sessions[id] = newSession(id, c)
		sendTo(c, SessionCreatedMessage{Type: "session-created", SessionID: id})
		g.logger.Info("session created", "session", id, "host", c.id)
		return verdictOK
	}

	s, ok := g.lookup(msg.SessionID)
	if !ok {
		sendTo(c, ErrorMessage{Type: "error", Message: "session not found"})
		return verdictNotFound
	}

	switch msg.Type {
	case "add-question":
		if msg.Question == nil {
			sendTo(c, ErrorMessage{Type: "error", Message: "missing question payload"})
			return verdictMalformed
		}
		return s.addQuestion(c, *msg.Question)

	case "import-pack":
		return g.importPack(s, c, msg.Pack)

	case "start-game":
		return s.startGame(c)

	case "next-question":
		return s.nextQuestion(c)

	case "reset-buzzer":
		return s.resetBuzzer(c)

	case "player-join":
		return s.join(c, msg.DisplayName)

	case "buzz":
		return s.buzz(c)

	case "submit-answer":
		return s.submitAnswer(c, msg.OptionKey)

	default:
		return verdictMalformed
	}
}

// importPack appends every question in a named pack through the normal
// add-question path. Malformed entries are reported to the host and skipped;
// the rest of the batch continues.
func (g *GameServer) importPack(s *Session, c *Client, name string) verdict {
	if c != s.host {
		return verdictUnauthorized
	}

	pack, ok := g.packs.get(name)
	if !ok {
		sendTo(c, ErrorMessage{Type: "error", Message: "pack not found"})
		return verdictNotFound
	}

	for _, q := range pack.Questions {
		s.addQuestion(c, q)
	}

	g.logger.Info("pack imported", "session", s.id, "pack", name, "questions", len(pack.Questions))

	return verdictOK
}

// dropConnection evaluates every session this connection holds a role in:
// hosted sessions die with it, played sessions lose one player.
func (g *GameServer) dropConnection(c *Client) {
	for id, s := range g.sessions {
		if s.host == c {
			g.logger.Info("host disconnected, ending session", "session", id)
			g.destroy(id)
			continue
		}
		s.removeConnection(c)
	}

	close(c.send)
	g.logger.Debug("client disconnected", "conn", c.id)
}

func (g *GameServer) reapIdle() {
	cutoff := time.Now().Add(-g.cfg.sessionTimeout)

	for id, s := range g.sessions {
		if s.lastActive.Before(cutoff) {
			g.logger.Info("reaping idle session", "session", id, "idle", time.Since(s.lastActive).Round(time.Second))
			g.destroy(id)
		}
	}
}

// newSessionID generates a crypto-random session ID and ensures it doesn't
// collide with a live session.
func (g *GameServer) newSessionID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := g.sessions[id]; !exists {
			return id
		}
	}
}

// newConnectionID identifies one WebSocket connection for its lifetime. It
// is not a login; a reconnect gets a fresh identity.
func newConnectionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(g *GameServer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
			id:   newConnectionID(),
		}

		g.register <- client

		go client.writePump()
		client.readPump(g)
	}
}

func (c *Client) readPump(g *GameServer) {
	defer func() {
		g.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		g.actions <- action{client: c, msg: msg}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler generates a PNG QR code for a session's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("sessionid")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:sessionid/qr; strip trailing "/qr" to get the join URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerTriviaGame sets up routes so that:
//   - /                    → client (create or join)
//   - /join/:sessionid     → client with the session ID prefilled
//   - /join/:sessionid/qr  → PNG QR code for that join URL
//   - /ws                  → WebSocket carrying the whole protocol
func registerTriviaGame(ctx context.Context, cfg *Config, logger *log.Logger, mux *httprouter.Router) error {
	packs, err := loadPacks(cfg, logger)
	if err != nil {
		return err
	}

	g := newGameServer(cfg, logger, packs)
	go g.run(ctx)

	mux.GET(cfg.prefix+"/join/:sessionid", serveHomePage(cfg))
	mux.GET(cfg.prefix+"/join/:sessionid/qr", qrHandler)
	mux.GET(cfg.prefix+"/ws", serveWS(g))

	registerPackHandlers(cfg, packs, mux)

	return nil
}
