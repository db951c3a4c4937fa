package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/playback"
	"github.com/samber/mo"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// MPV implements playback.Engine on top of mpv's JSON-IPC protocol.
//
// Property getters return optionals rather than errors: mpv reports
// "property unavailable" while a stream is (re)opening, and on adaptive
// streams that happens mid-playback whenever the server regenerates the
// manifest. A missing value is a normal transient, not a failure.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits
	listener   *eventListener
	events     chan playback.EngineEvent
	mu         sync.Mutex // protects socket writes

	stateMu sync.Mutex
	state   mpvState
}

// mpvState mirrors the observed mpv flags the playback state derives from.
type mpvState struct {
	loaded         bool
	paused         bool
	seeking        bool
	pausedForCache bool
	current        playback.State
}

// NewMPV creates an engine instance without starting the process; the
// process launches on the first Load.
func NewMPV() *MPV {
	return &MPV{
		exited: make(chan struct{}),
		events: make(chan playback.EngineEvent, 32),
	}
}

// Load starts mpv (if needed) and opens the stream source. Media-opened is
// reported through Events once mpv finishes loading the file.
func (m *MPV) Load(src *media.StreamSource) error {
	safeURL, err := sanitizeMediaTarget(src.URL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}
	safeTitle := sanitizeTitle(src.Item.Name)

	if m.socketPath != "" && m.IsRunning() {
		// Reuse the running instance: load the new file over IPC. mpv fires
		// end-file for the previous item and file-loaded for the new one.
		m.resetState()
		_, err := m.command("loadfile", safeURL, "replace")
		if err != nil {
			return fmt.Errorf("load file: %w", err)
		}
		return m.Set("force-media-title", safeTitle)
	}

	// Random socket under os.TempDir() for cross-platform support
	// (macOS $TMPDIR is /var/folders/... not /tmp/).
	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Gelatinarm, randomBytes))
	}

	// Pass ONLY the socket, title, and URL. Do NOT pass --vo, --profile,
	// --hwdec: respect the user's mpv.conf.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--force-media-title=%s", safeTitle),
		fmt.Sprintf("--title=%s", safeTitle), // some mpv builds only respect --title
		"--force-window=yes",
		"--idle=yes",
	}
	if hs := headerString(src.Headers); hs != "" {
		args = append(args, fmt.Sprintf("--http-header-fields=%s", hs))
	}
	args = append(args, safeURL)

	m.cmd = exec.Command("mpv", args...)

	// Detach from the parent process group so a shell panic cannot cascade.
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// Reap the process to prevent zombies.
	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		if m.cmd.Process != nil {
			select {
			case <-m.exited:
			default:
				log.Warnf("killing mpv: socket never became ready")
				_ = m.cmd.Process.Kill()
			}
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.resetState()
	m.listener = newEventListener(m.socketPath, m.handleEvent)
	if err := m.listener.Start(); err != nil {
		return fmt.Errorf("event listener: %w", err)
	}

	return nil
}

func headerString(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	var b strings.Builder
	for k, v := range headers {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		val := strings.ReplaceAll(v, ",", "%2C")
		fmt.Fprintf(&b, "%s: %s", k, val)
	}
	return b.String()
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// Play resumes playback.
func (m *MPV) Play() error {
	return m.Set("pause", false)
}

// Pause suspends playback.
func (m *MPV) Pause() error {
	return m.Set("pause", true)
}

// SeekTo moves to an absolute position on mpv's own timeline.
func (m *MPV) SeekTo(pos time.Duration) error {
	_, err := m.command("seek", pos.Seconds(), "absolute")
	return err
}

// SetMuted controls audio output.
func (m *MPV) SetMuted(muted bool) error {
	return m.Set("mute", muted)
}

// SetVideoVisible controls video output. mpv has no visibility flag; cycling
// the video track off blanks the window and keeps the demuxer running.
func (m *MPV) SetVideoVisible(visible bool) error {
	value := "no"
	if visible {
		value = "auto"
	}
	return m.Set("vid", value)
}

// Position returns the current zero-based playback position.
func (m *MPV) Position() mo.Option[time.Duration] {
	return m.durationProperty("time-pos")
}

// Duration returns mpv's natural duration of the loaded media. On adaptive
// streams this tracks the current manifest, not the whole item.
func (m *MPV) Duration() mo.Option[time.Duration] {
	return m.durationProperty("duration")
}

// BufferingProgress reports the demuxer cache fill in percent.
func (m *MPV) BufferingProgress() mo.Option[float64] {
	data, err := m.command("get_property", "cache-buffering-state")
	if err != nil {
		return mo.None[float64]()
	}
	val, ok := data.(float64)
	if !ok {
		return mo.None[float64]()
	}
	return mo.Some(val)
}

// CanSeek reports whether the loaded media accepts seeks.
func (m *MPV) CanSeek() mo.Option[bool] {
	data, err := m.command("get_property", "seekable")
	if err != nil {
		return mo.None[bool]()
	}
	val, ok := data.(bool)
	if !ok {
		return mo.None[bool]()
	}
	return mo.Some(val)
}

// State returns the current derived playback state.
func (m *MPV) State() playback.State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state.current
}

// Events delivers engine events. The channel closes on Close.
func (m *MPV) Events() <-chan playback.EngineEvent {
	return m.events
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.command("get_property", "pid")
	return err == nil
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	if m.listener != nil {
		m.listener.Stop()
		m.listener = nil
	}

	if m.socketPath != "" {
		// Try graceful quit via IPC first.
		_, _ = m.command("quit")

		select {
		case <-m.exited:
		case <-time.After(3 * time.Second):
			_ = killProcess(m.cmd)
		}

		_ = os.Remove(m.socketPath)
	}

	close(m.events)
	return nil
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

// Set assigns an mpv property.
func (m *MPV) Set(property string, value interface{}) error {
	_, err := m.command("set_property", property, value)
	return err
}

func (m *MPV) resetState() {
	m.stateMu.Lock()
	m.state = mpvState{current: playback.StateOpening}
	m.stateMu.Unlock()
}

// durationProperty reads a float property and converts seconds to a duration.
func (m *MPV) durationProperty(name string) mo.Option[time.Duration] {
	data, err := m.command("get_property", name)
	if err != nil {
		return mo.None[time.Duration]()
	}
	val, ok := data.(float64)
	if !ok {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(val * float64(time.Second)))
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
// Prevents flag injection from untrusted sources.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// URLs must not start with - (looks like a flag)
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	// Treat as local file path
	return filepath.Clean(l), nil
}

// sanitizeTitle cleans up the title for mpv.
func sanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	t = strings.ReplaceAll(t, "\x00", "")
	return strings.TrimSpace(t)
}
