package player

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/playback"
)

// eventCallback receives raw mpv events: property changes carry the property
// name and its new value, other events carry the event name and the decoded
// payload.
type eventCallback func(name string, data interface{})

// eventListener provides real-time mpv event monitoring via observe_property
// over a dedicated persistent connection.
type eventListener struct {
	socketPath string
	conn       net.Conn
	callback   eventCallback
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool
}

func newEventListener(socketPath string, callback eventCallback) *eventListener {
	return &eventListener{
		socketPath: socketPath,
		callback:   callback,
		stopCh:     make(chan struct{}),
	}
}

// Start sets up the property observers and starts the read loop.
func (el *eventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	// observe_property <id> <property>: mpv pushes a notification whenever
	// the value changes.
	properties := []struct {
		id   int
		name string
	}{
		{1, "pause"},            // playing/paused edges
		{2, "seeking"},          // seek in flight
		{3, "paused-for-cache"}, // buffering stall detection
		{4, "eof-reached"},      // end-of-media detection
	}

	for _, prop := range properties {
		_, err := roundTrip(el.socketPath, []interface{}{"observe_property", prop.id, prop.name})
		if err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}
	el.conn = conn
	el.listening = true

	go el.readLoop()

	log.Infof("mpv event listener started on %s (observing: pause, seeking, paused-for-cache, eof-reached)", el.socketPath)
	return nil
}

// Stop terminates the event listener.
func (el *eventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	if el.conn != nil {
		el.conn.Close()
	}
	el.listening = false
}

// readLoop continuously reads newline-delimited JSON events from the
// persistent connection.
func (el *eventListener) readLoop() {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	buf := make([]byte, 4096)
	var remainder []byte

	for {
		select {
		case <-el.stopCh:
			return
		default:
		}

		// Read deadline keeps the loop responsive to Stop.
		if err := el.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := el.conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue
			}
			log.Warnf("event listener read error: %v", err)
			return
		}

		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Last incomplete line goes to remainder for the next read.
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			el.processEvent(line)
		}
	}
}

// processEvent parses and dispatches a single event line.
func (el *eventListener) processEvent(line string) {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return // skip unparseable lines
	}

	eventType, ok := event["event"].(string)
	if !ok || el.callback == nil {
		return
	}

	switch eventType {
	case "property-change":
		name, _ := event["name"].(string)
		if name != "" {
			el.callback(name, event["data"])
		}
	default:
		// file-loaded, playback-restart, end-file, ...
		el.callback(eventType, event)
	}
}

// handleEvent translates raw mpv notifications into the engine event stream.
// It runs on the listener goroutine; the orchestrator marshals everything
// onto its own dispatch goroutine, so only the derived-state flags need
// locking here.
func (m *MPV) handleEvent(name string, data interface{}) {
	switch name {
	case "pause":
		if v, ok := data.(bool); ok {
			m.updateState(func(s *mpvState) { s.paused = v })
		}
	case "seeking":
		if v, ok := data.(bool); ok {
			m.updateState(func(s *mpvState) { s.seeking = v })
		}
	case "paused-for-cache":
		if v, ok := data.(bool); ok {
			m.updateState(func(s *mpvState) { s.pausedForCache = v })
		}
	case "eof-reached":
		if v, ok := data.(bool); ok && v {
			m.emit(playback.EngineEvent{Kind: playback.EventMediaEnded})
		}
	case "file-loaded":
		m.updateState(func(s *mpvState) { s.loaded = true })
		m.emit(playback.EngineEvent{Kind: playback.EventMediaOpened})
	case "playback-restart":
		// Fires when playback resumes after a seek: the seek has landed.
		pos := m.Position().OrElse(0)
		m.emit(playback.EngineEvent{Kind: playback.EventSeekCompleted, Position: pos})
	case "end-file":
		m.handleEndFile(data)
	}
}

func (m *MPV) handleEndFile(data interface{}) {
	event, _ := data.(map[string]interface{})
	reason, _ := event["reason"].(string)
	switch reason {
	case "error":
		msg, _ := event["file_error"].(string)
		if msg == "" {
			msg = "unknown playback error"
		}
		m.emit(playback.EngineEvent{
			Kind: playback.EventMediaFailed,
			Err:  fmt.Errorf("mpv: %s", msg),
		})
	case "eof":
		m.emit(playback.EngineEvent{Kind: playback.EventMediaEnded})
	default:
		// stop/quit/redirect: the controller initiated it, nothing to report
	}
}

// updateState applies a flag mutation, re-derives the playback state, and
// emits a state-changed event on every transition.
func (m *MPV) updateState(mutate func(*mpvState)) {
	m.stateMu.Lock()
	mutate(&m.state)
	next := m.state.derive()
	changed := next != m.state.current
	m.state.current = next
	m.stateMu.Unlock()

	if changed {
		m.emit(playback.EngineEvent{Kind: playback.EventStateChanged, State: next})
	}
}

// derive maps the observed mpv flags to a playback state. paused-for-cache
// wins over pause: a stalled stream is buffering even though mpv also
// reports it as paused.
func (s *mpvState) derive() playback.State {
	switch {
	case !s.loaded:
		return playback.StateOpening
	case s.pausedForCache:
		return playback.StateBuffering
	case s.paused:
		return playback.StatePaused
	default:
		return playback.StatePlaying
	}
}

// emit drops events rather than blocking the listener goroutine when the
// consumer is saturated.
func (m *MPV) emit(ev playback.EngineEvent) {
	select {
	case m.events <- ev:
	default:
		log.Debugf("engine event dropped: %v", ev.Kind)
	}
}
