package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// ipcRequest is one command frame on the engine's JSON-IPC socket.
type ipcRequest struct {
	Command []interface{} `json:"command"`
}

// ipcReply is the engine's answer to a request. mpv pushes event frames to
// every connected client on the same socket; those carry an "event" field
// and are skipped here, the dedicated listener connection consumes them.
type ipcReply struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
	Event string      `json:"event"`
}

const (
	ipcAttempts     = 3
	ipcRetryDelay   = 100 * time.Millisecond
	ipcReadDeadline = time.Second
)

// command sends one request to the engine, retrying transient connection
// failures. Requests are serialized so replies cannot interleave.
func (m *MPV) command(args ...interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < ipcAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(ipcRetryDelay)
		}

		data, err := roundTrip(m.socketPath, args)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", ipcAttempts, lastErr)
}

// roundTrip performs a single request/reply exchange on a fresh connection.
func roundTrip(socketPath string, args []interface{}) (interface{}, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(ipcRequest{Command: args})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(ipcReadDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var reply ipcReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if reply.Event != "" {
			continue
		}
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", reply.Error)
		}
		return reply.Data, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, fmt.Errorf("connection closed before reply")
}
