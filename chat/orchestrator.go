package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"newsrag/rag"
)

type answerer interface {
	Answer(ctx context.Context, query string) rag.Answer
}

type broadcaster interface {
	Broadcast(sessionID, event string, data any)
}

const (
	laneQueueSize   = 64
	laneIdleTimeout = time.Minute
	handleTimeout   = 2 * time.Minute
)

// errorEvent is the payload broadcast when a message cannot be answered.
type errorEvent struct {
	Message string `json:"message"`
}

// Orchestrator serializes message handling per session: each session id
// gets one lane that processes messages strictly in arrival order, while
// distinct sessions run fully concurrently. Idle lanes are reaped.
type Orchestrator struct {
	store  *Store
	rag    answerer
	hub    broadcaster
	logger *zap.Logger

	mu    sync.Mutex
	lanes map[string]*lane
	done  chan struct{}
	wg    sync.WaitGroup
}

type lane struct {
	queue chan string
}

func NewOrchestrator(store *Store, answer answerer, hub broadcaster, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:  store,
		rag:    answer,
		hub:    hub,
		logger: logger,
		lanes:  make(map[string]*lane),
		done:   make(chan struct{}),
	}
}

// SendMessage enqueues a user message for its session's lane, creating
// the lane on first use. If the lane's queue is full the message is
// rejected with an error event rather than blocking other sessions.
func (o *Orchestrator) SendMessage(sessionID, message string) {
	o.mu.Lock()
	l, ok := o.lanes[sessionID]
	if !ok {
		l = &lane{queue: make(chan string, laneQueueSize)}
		o.lanes[sessionID] = l
		o.wg.Add(1)
		go o.run(sessionID, l)
	}

	select {
	case l.queue <- message:
		o.mu.Unlock()
	default:
		o.mu.Unlock()
		o.logger.Warn("Session lane saturated, rejecting message",
			zap.String("session_id", sessionID))
		o.hub.Broadcast(sessionID, EventError, errorEvent{Message: "Too many pending messages. Please wait."})
	}
}

func (o *Orchestrator) run(sessionID string, l *lane) {
	defer o.wg.Done()

	idle := time.NewTimer(laneIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case message := <-l.queue:
			o.handle(sessionID, message)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(laneIdleTimeout)
		case <-idle.C:
			o.mu.Lock()
			if len(l.queue) == 0 {
				delete(o.lanes, sessionID)
				o.mu.Unlock()
				return
			}
			o.mu.Unlock()
			idle.Reset(laneIdleTimeout)
		case <-o.done:
			return
		}
	}
}

// handle runs one full turn: persist the user message, answer it,
// persist the bot message, broadcast to the group. A failure after the
// user turn persisted is reported to the group without rolling the user
// turn back.
func (o *Orchestrator) handle(sessionID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	userTurn := Turn{
		Type:      TurnTypeUser,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := o.store.Append(ctx, sessionID, userTurn); err != nil {
		o.logger.Error("Failed to persist user turn",
			zap.String("session_id", sessionID),
			zap.Error(err))
		o.hub.Broadcast(sessionID, EventError, errorEvent{Message: "Failed to process your message. Please try again."})
		return
	}

	answer := o.rag.Answer(ctx, message)

	botTurn := Turn{
		Type:      TurnTypeBot,
		Message:   answer.Message,
		Timestamp: answer.Timestamp,
	}
	if err := o.store.Append(ctx, sessionID, botTurn); err != nil {
		o.logger.Error("Failed to persist bot turn",
			zap.String("session_id", sessionID),
			zap.Error(err))
		o.hub.Broadcast(sessionID, EventError, errorEvent{Message: "Failed to process your message. Please try again."})
		return
	}

	o.hub.Broadcast(sessionID, EventBotMessage, answer)
}

// Close stops all lanes. Queued messages that have not started
// processing are dropped.
func (o *Orchestrator) Close() {
	close(o.done)
	o.wg.Wait()
}
