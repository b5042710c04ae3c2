package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/crucible/internal/editor"
	"github.com/matthewbaird/crucible/internal/editor/session"
	"github.com/matthewbaird/crucible/internal/entity"
	"github.com/matthewbaird/crucible/internal/params"
	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
)

// Handler manages WebSocket connections for remote editor sessions. One
// edit runs per connection at a time; the editor goroutine blocks on
// prompts until the client answers with "input" messages.
type Handler struct {
	sessions *session.Manager
	store    store.Store
	types    params.TypeRegistry
	registry *schema.Registry
	log      *zap.Logger
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(sessions *session.Manager, st store.Store, types params.TypeRegistry, reg *schema.Registry, log *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		store:    st,
		types:    types,
		registry: reg,
		log:      log,
	}
}

// input is one answer routed from the read loop to the editor goroutine.
type input struct {
	line      string
	interrupt bool
}

// editRun tracks a running editor goroutine.
type editRun struct {
	inputs chan input
	done   chan struct{}
}

func (e *editRun) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *editRun) deliver(in input) {
	select {
	case e.inputs <- in:
	case <-e.done:
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create()
	ctx := r.Context()

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID},
	})

	var edit *editRun
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			// ctx cancellation unblocks any pending editor prompt
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug("connection closed", zap.Int("status", int(websocket.CloseStatus(err))))
			}
			return
		}

		switch msg.Type {
		case "edit":
			if edit != nil && !edit.finished() {
				h.sendError(ctx, conn, msg.ID, "edit_in_progress", "an edit is already running on this connection")
				continue
			}
			edit = h.startEdit(ctx, conn, msg)
		case "input":
			if edit == nil || edit.finished() {
				h.sendError(ctx, conn, msg.ID, "no_edit", "no edit is running")
				continue
			}
			var data InputData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid input data")
				continue
			}
			sess.AddHistory(data.Line)
			edit.deliver(input{line: data.Line})
		case "cancel":
			if edit != nil && !edit.finished() {
				edit.deliver(input{interrupt: true})
			}
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

// startEdit loads or instantiates the entity and spawns the editor
// goroutine. The goroutine owns the entity until it sends "done".
func (h *Handler) startEdit(ctx context.Context, conn *websocket.Conn, msg ClientMessage) *editRun {
	var data EditData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid edit data")
		return nil
	}
	es, err := h.registry.Lookup(data.EntityType)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "unknown_entity_type", err.Error())
		return nil
	}

	var raw map[string]any
	if data.ID != "" {
		raw, err = h.store.Find(ctx, es.Name, data.ID)
		if err != nil {
			h.sendError(ctx, conn, msg.ID, "store_error", err.Error())
			return nil
		}
		if raw == nil {
			h.sendError(ctx, conn, msg.ID, "not_found", fmt.Sprintf("no %s matching %q", es.Name, data.ID))
			return nil
		}
	}
	ent := entity.Instantiate(es, raw)

	run := &editRun{inputs: make(chan input, 8), done: make(chan struct{})}
	term := &wsTerm{ctx: ctx, conn: conn, requestID: msg.ID, inputs: run.inputs, log: h.log}
	requestID := msg.ID

	go func() {
		defer close(run.done)
		ed := editor.NewEntityEditor(editor.Options{
			Term:     term,
			Store:    h.store,
			Types:    h.types,
			Registry: h.registry,
		}, ent, es.Name)

		committed, err := ed.Run(ctx)
		if err != nil {
			h.sendError(ctx, conn, requestID, "editor_error", err.Error())
			return
		}

		var stored map[string]any
		if committed {
			stored, err = h.commit(ctx, ent)
			if err != nil {
				h.sendError(ctx, conn, requestID, "store_error", err.Error())
				committed = false
			}
		}
		h.send(ctx, conn, ServerMessage{
			Type:      "done",
			RequestID: requestID,
			Data:      DoneData{Committed: committed, Entity: stored},
		})
	}()
	return run
}

func (h *Handler) commit(ctx context.Context, ent *entity.Entity) (map[string]any, error) {
	if ent.IsPersisted() {
		return h.store.Update(ctx, ent.Type(), ent.ID(), ent.Serialize())
	}
	return h.store.Create(ctx, ent.Type(), ent.Serialize())
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug("write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

// wsTerm adapts the WebSocket protocol to the editor's Terminal. Prompt
// parks until the read loop routes an answer, the client cancels, or the
// connection dies.
type wsTerm struct {
	ctx       context.Context
	conn      *websocket.Conn
	requestID string
	inputs    <-chan input
	log       *zap.Logger
}

func (t *wsTerm) Prompt(text string) (string, error) {
	t.write(ServerMessage{Type: "prompt", RequestID: t.requestID, Data: PromptData{Text: text}})
	select {
	case <-t.ctx.Done():
		return "", editor.ErrInterrupt
	case in := <-t.inputs:
		if in.interrupt {
			return "", editor.ErrInterrupt
		}
		return in.line, nil
	}
}

func (t *wsTerm) Say(format string, args ...any) {
	t.output("info", fmt.Sprintf(format, args...))
}

func (t *wsTerm) Warn(format string, args ...any) {
	t.output("warn", fmt.Sprintf(format, args...))
}

func (t *wsTerm) Err(format string, args ...any) {
	t.output("error", fmt.Sprintf(format, args...))
}

func (t *wsTerm) Table(headers []string, rows [][]string) {
	t.write(ServerMessage{Type: "table", RequestID: t.requestID, Data: TableData{Headers: headers, Rows: rows}})
}

func (t *wsTerm) output(level, message string) {
	t.write(ServerMessage{Type: "output", RequestID: t.requestID, Data: OutputData{Level: level, Message: message}})
}

func (t *wsTerm) write(msg ServerMessage) {
	if err := wsjson.Write(t.ctx, t.conn, msg); err != nil {
		t.log.Debug("write failed", zap.Error(err))
	}
}
