package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// WSHandler upgrades connections and wires the room event vocabulary into
// the live-session use cases.
type WSHandler struct {
	service  *app.LiveService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LiveService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	SessionCode string `json:"sessionCode"`
}

type participantJoinPayload struct {
	SessionCode     string `json:"sessionCode"`
	ParticipantName string `json:"participantName"`
	ParticipantID   string `json:"participantId"`
}

type participantAnswerPayload struct {
	SessionCode   string `json:"sessionCode"`
	ParticipantID string `json:"participantId"`
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
}

type participantLeavePayload struct {
	SessionCode     string `json:"sessionCode"`
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsConn adapts a websocket connection to app.Conn. Sends go through a
// buffered channel drained by a single writer goroutine, so room
// broadcasts never block and never write concurrently.
type wsConn struct {
	send chan app.Event
	done chan struct{}
}

func newWSConn() *wsConn {
	return &wsConn{
		send: make(chan app.Event, 32),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(event app.Event) {
	select {
	case c.send <- event:
	case <-c.done:
	default:
		// Slow client: drop rather than stall the room.
		log.Printf("ws: dropping %s event for slow client", event.Type)
	}
}

// ServeWS runs the per-connection read loop. A connection may join any
// number of rooms; on transport-level drop it only leaves their
// membership sets — durable participant state changes require an explicit
// participant-leave.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := newWSConn()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case event := <-client.send:
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-client.done:
				return
			}
		}
	}()

	joined := make(map[string]*app.Room)
	defer func() {
		for code, room := range joined {
			room.Leave(client)
			h.service.ReleaseRoom(code)
		}
		close(client.done)
		<-writerDone
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.dispatch(ctx, client, joined, inbound)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *wsConn, joined map[string]*app.Room, inbound inboundMessage) {
	switch inbound.Type {
	case "join-session":
		var payload sessionPayload
		if !h.decode(client, inbound.Payload, &payload) {
			return
		}
		room := h.service.Room(payload.SessionCode)
		if err := room.Join(ctx, client); err != nil {
			h.sendError(client, err)
			h.service.ReleaseRoom(payload.SessionCode)
			return
		}
		joined[payload.SessionCode] = room

	case "leave-session":
		var payload sessionPayload
		if !h.decode(client, inbound.Payload, &payload) {
			return
		}
		if room, ok := joined[payload.SessionCode]; ok {
			room.Leave(client)
			delete(joined, payload.SessionCode)
			h.service.ReleaseRoom(payload.SessionCode)
		}

	case "host-start-session":
		h.hostCommand(ctx, client, inbound.Payload, func(room *app.Room) error {
			return room.StartSession(ctx)
		})

	case "host-next-question":
		h.hostCommand(ctx, client, inbound.Payload, func(room *app.Room) error {
			return room.NextQuestion(ctx)
		})

	case "host-show-results":
		h.hostCommand(ctx, client, inbound.Payload, func(room *app.Room) error {
			return room.Reveal(ctx)
		})

	case "host-show-leaderboard":
		h.hostCommand(ctx, client, inbound.Payload, func(room *app.Room) error {
			_, err := room.ShowLeaderboard(ctx)
			return err
		})

	case "host-end-session":
		h.hostCommand(ctx, client, inbound.Payload, func(room *app.Room) error {
			return room.EndSession(ctx)
		})

	case "participant-join":
		var payload participantJoinPayload
		if !h.decode(client, inbound.Payload, &payload) {
			return
		}
		participant, err := h.connectParticipant(ctx, payload)
		if err != nil {
			h.sendError(client, err)
			return
		}
		room := h.service.Room(payload.SessionCode)
		if err := room.Join(ctx, client); err != nil {
			h.sendError(client, err)
			return
		}
		joined[payload.SessionCode] = room
		if err := room.AnnounceJoin(ctx, participant); err != nil {
			h.sendError(client, err)
		}

	case "participant-answer":
		var payload participantAnswerPayload
		if !h.decode(client, inbound.Payload, &payload) {
			return
		}
		room := h.service.Room(payload.SessionCode)
		outcome, err := room.SubmitAnswer(ctx, client, payload.ParticipantID, payload.QuestionID, payload.Answer)
		if err != nil {
			h.sendError(client, err)
			return
		}
		client.Send(app.Event{Type: app.EventAnswerAck, Data: outcome})

	case "participant-leave":
		var payload participantLeavePayload
		if !h.decode(client, inbound.Payload, &payload) {
			return
		}
		room := h.service.Room(payload.SessionCode)
		if err := room.ParticipantLeave(ctx, payload.ParticipantID, payload.ParticipantName); err != nil {
			h.sendError(client, err)
		}

	default:
		client.Send(app.Event{Type: app.EventError, Data: errorPayload{Message: "unsupported message type"}})
	}
}

// connectParticipant resolves the joining identity: an existing id flips
// the connection flag, an anonymous name goes through the full join path
// so rejoining by the same name revives the same record.
func (h *WSHandler) connectParticipant(ctx context.Context, payload participantJoinPayload) (domain.Participant, error) {
	if payload.ParticipantID != "" {
		return h.service.ConnectParticipant(ctx, payload.SessionCode, payload.ParticipantID)
	}
	result, err := h.service.JoinByCode(ctx, payload.SessionCode, payload.ParticipantName, "")
	if err != nil {
		return domain.Participant{}, err
	}
	return result.Participant, nil
}

func (h *WSHandler) hostCommand(ctx context.Context, client *wsConn, raw json.RawMessage, run func(room *app.Room) error) {
	var payload sessionPayload
	if !h.decode(client, raw, &payload) {
		return
	}
	room := h.service.Room(payload.SessionCode)
	if err := run(room); err != nil {
		h.sendError(client, err)
	}
}

func (h *WSHandler) decode(client *wsConn, raw json.RawMessage, target interface{}) bool {
	if err := json.Unmarshal(raw, target); err != nil {
		client.Send(app.Event{Type: app.EventError, Data: errorPayload{Message: "invalid payload"}})
		return false
	}
	return true
}

func (h *WSHandler) sendError(client *wsConn, err error) {
	client.Send(app.Event{Type: app.EventError, Data: errorPayload{Message: err.Error()}})
}
