// Lineup
//
// Three people are drawn at random from the roster and shown with their
// booking photos. Every charge they were booked on is shuffled into a tray,
// and players drag each charge into one of the slots under the person they
// think it belongs to, then check their answers.
//
// Features:
// - Rounds per ID: /path/:roundid and /path/:roundid/ws
// - Board state lives server-side; every connected browser sees the same drops
// - Dropping onto an occupied slot sends the previous charge back to the tray
// - Answers are checked server-side, per slot
// - "New round" redraws the people for everyone watching
// - Rounds auto-reaped after configurable idle timeout
// - Random 8-char round IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current round, backed by go-qrcode
// - Leaderboard of the roster at /leaderboard

package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"html/template"
	"log"
	mrand "math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/lineup/games/lineup"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const leaderboardSize = 10

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`                // "drop", "check", "new_round"
	ChargeID string `json:"charge_id,omitempty"` // drop
	SlotID   string `json:"slot_id,omitempty"`   // drop
}

// PlacementMessage mirrors a successful drop to every client.
type PlacementMessage struct {
	Type string `json:"type"` // "placement"
	lineup.Move
}

// CheckResultMessage is sent to the client that asked for a check.
type CheckResultMessage struct {
	Type string `json:"type"` // "check_result"
	lineup.Result
}

// SimpleMessage is for generic notifications ("error", "reload", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// ViewersMessage tells everyone how many people are watching the round.
type ViewersMessage struct {
	Type  string `json:"type"` // "viewers"
	Count int    `json:"count"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	viewerID string
}

type action struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool

	roster lineup.Roster
	rng    *mrand.Rand
	round  *lineup.Round

	register chan *Client
	unreg    chan *Client
	actions  chan action
	done     chan struct{}
	stop     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(roundID string, roster lineup.Roster) (*Hub, error) {
	rng := lineup.NewRand()

	round, err := lineup.NewRound(rng, roster)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Hub{
		id:         roundID,
		clients:    make(map[*Client]bool),
		roster:     roster,
		rng:        rng,
		round:      round,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan action),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}, nil
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.broadcastViewersLocked()
			h.mu.Unlock()

		case a := <-h.actions:
			switch a.msg.Type {
			case "drop":
				h.handleDrop(cfg, a)
			case "check":
				h.handleCheck(cfg, a)
			case "new_round":
				h.handleNewRound(cfg)
			}
		}
	}
}

// addClient registers c, unless the hub has already been stopped, in which
// case c.send is closed so its writer exits.
func (h *Hub) addClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		close(c.send)
		return false
	default:
	}

	h.lastActive = time.Now()
	h.clients[c] = true
	h.broadcastViewersLocked()

	return true
}

// currentRound returns the round being played right now.
func (h *Hub) currentRound() *lineup.Round {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.round
}

// sendLocked queues msg for a single client, dropping the client if it
// has fallen too far behind.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// broadcastViewersLocked counts distinct viewer cookies, so several tabs
// from one browser count once.
func (h *Hub) broadcastViewersLocked() {
	seen := make(map[string]bool, len(h.clients))
	for c := range h.clients {
		seen[c.viewerID] = true
	}

	h.broadcastLocked(ViewersMessage{
		Type:  "viewers",
		Count: len(seen),
	})
}

// handleDrop processes "drop" messages.
func (h *Hub) handleDrop(cfg *Config, a action) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	payload, err := h.round.DragStart(a.msg.ChargeID)
	if err == nil {
		var move lineup.Move

		move, err = h.round.Drop(a.msg.SlotID, payload)
		if err == nil {
			h.broadcastLocked(PlacementMessage{
				Type: "placement",
				Move: move,
			})

			return
		}
	}

	logf(cfg, "GAMES: Rejected drop in %s: %v", h.id, err)

	text := "That move could not be made."
	switch {
	case errors.Is(err, lineup.ErrUnmappedDrop):
		text = "That charge is not part of this round. Try reloading the page."
	case errors.Is(err, lineup.ErrUnknownSlot):
		text = "That slot is not part of this round. Try reloading the page."
	}

	h.sendLocked(a.client, SimpleMessage{
		Type:    "error",
		Message: text,
	})
}

// handleCheck processes "check" messages. Only the requester sees the result.
func (h *Hub) handleCheck(cfg *Config, a action) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	res := h.round.Check()

	logf(cfg, "GAMES: Checked %s (%d/%d correct)", h.id, res.Correct, res.Total)

	h.sendLocked(a.client, CheckResultMessage{
		Type:   "check_result",
		Result: res,
	})
}

// handleNewRound redraws the people for this round ID and tells every
// client to reload.
func (h *Hub) handleNewRound(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	round, err := lineup.NewRound(h.rng, h.roster)
	if err != nil {
		logf(cfg, "GAMES: Unable to redraw %s: %v", h.id, err)

		h.broadcastLocked(SimpleMessage{
			Type:    "error",
			Message: "Unable to start a new round.",
		})

		return
	}

	h.round = round

	logf(cfg, "GAMES: Redrew %s", h.id)

	h.broadcastLocked(SimpleMessage{Type: "reload"})
}

// closeAll disconnects all clients of this hub and stops it (used by reaper).
func (h *Hub) closeAll() {
	h.stop.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const viewerCookieName = "lineup_id"

func getOrSetViewerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(viewerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by round ID, so each $path/$roundid
// is its own isolated board.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	roster      lineup.Roster
	idleTimeout time.Duration
}

func newGameManager(roster lineup.Roster, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		roster:      roster,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, roundID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[roundID]; ok {
		return hub, nil
	}

	hub, err := newHub(roundID, gm.roster)
	if err != nil {
		return nil, err
	}
	gm.hubs[roundID] = hub
	go hub.run(cfg)
	return hub, nil
}

// newRoundID generates a crypto-random round ID and ensures it doesn't
// collide with existing rounds.
func (gm *GameManager) newRoundID() string {
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

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
		}
	}
}

// WebSocket handler that picks the hub based on :roundid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roundID := ps.ByName("roundid")
		if roundID == "" {
			http.Error(w, "missing round id", http.StatusBadRequest)
			return
		}

		viewerID := getOrSetViewerID(w, r)
		if viewerID == "" {
			http.Error(w, "unable to assign viewer id", http.StatusInternalServerError)
			return
		}

		hub, err := gm.getHub(cfg, roundID)
		if err != nil {
			http.Error(w, "unable to start round", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			viewerID: viewerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "drop", "check", "new_round":
			select {
			case h.actions <- action{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
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

// QR handler: generates a PNG QR code for the current round URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roundID := ps.ByName("roundid")
	if roundID == "" {
		http.Error(w, "missing round id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roundid/qr; strip trailing "/qr" to get the round URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// gamePolicy loosens the default CSP so roster images may live on other hosts.
// Most image hosts send no Cross-Origin-Resource-Policy, which require-corp
// would refuse.
func gamePolicy(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:")
	w.Header().Set("Cross-Origin-Embedder-Policy", "credentialless")
}

func getIndexHandler(cfg *Config, gm *GameManager, rd *lineup.Renderer, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		hub, err := gm.getHub(cfg, ps.ByName("roundid"))
		if err != nil {
			serverError(cfg, w)
			errs <- err

			return
		}

		var page bytes.Buffer
		if err := rd.Render(&page, hub.currentRound().Board(hub.id, cfg.prefix)); err != nil {
			serverError(cfg, w)
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)
		gamePolicy(w)

		_ = getOrSetViewerID(w, r)

		written, err := w.Write(page.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Round %s (%s) to %s in %s",
			hub.id,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func getLeaderboardHandler(cfg *Config, roster lineup.Roster, tmpl *template.Template, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var page bytes.Buffer

		err := tmpl.ExecuteTemplate(&page, "leaderboard", struct {
			Prefix    string
			Standings []lineup.Standing
			Date      string
		}{
			Prefix:    cfg.prefix,
			Standings: lineup.Leaderboard(roster, leaderboardSize),
			Date:      time.Now().Format("2006-01-02"),
		})
		if err != nil {
			serverError(cfg, w)
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=600")
		w.Header().Set("Expires", time.Now().Add(10*time.Minute).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)
		gamePolicy(w)

		if _, err := w.Write(page.Bytes()); err != nil {
			errs <- err
		}
	}
}

// redirectNewRound handles GET /path by generating a new random round ID
// (with server-side collision detection) and redirecting to /path/:roundid.
func redirectNewRound(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roundID := gm.newRoundID()
		logf(cfg, "GAMES: Created round %s/%s", path, roundID)
		http.Redirect(w, r, cfg.prefix+path+"/"+roundID, http.StatusTemporaryRedirect)
	}
}

// registerLineupGame sets up routes so that:
//   - $path                  → redirects to new random round (8-char ID)
//   - $path/:roundid         → HTML board
//   - $path/:roundid/ws      → WebSocket for that round
//   - $path/:roundid/qr      → PNG QR code for that round URL
func registerLineupGame(cfg *Config, path string, mux *httprouter.Router, roster lineup.Roster, errs chan<- error) error {
	rd, err := lineup.NewRenderer(assets, cfg.prefix, "assets/lineup/index.html")
	if err != nil {
		return err
	}

	board, err := template.New("").Funcs(lineup.Funcs(cfg.prefix)).ParseFS(assets, "assets/lineup/leaderboard.html")
	if err != nil {
		return err
	}

	gm := newGameManager(roster, cfg.sessionTimeout)

	// Root path → redirect to new random round
	mux.GET(cfg.prefix+path, redirectNewRound(cfg, path, gm))

	// httprouter won't mix a static segment with :roundid, so this lives at the top level
	mux.GET(cfg.prefix+"/leaderboard", getLeaderboardHandler(cfg, roster, board, errs))

	// Per-round board (HTML)
	mux.GET(cfg.prefix+path+"/:roundid", getIndexHandler(cfg, gm, rd, errs))

	// Per-round websocket
	mux.GET(cfg.prefix+path+"/:roundid/ws", serveWSForManager(cfg, gm))

	// Per-round QR code
	mux.GET(cfg.prefix+path+"/:roundid/qr", qrHandler)

	return nil
}
