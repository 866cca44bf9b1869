// Package portal resolves the capture target through the XDG Desktop
// Portal ScreenCast interface: it drives the selection dialog (or restores
// a previous selection from a token) and yields the PipeWire remote fd and
// stream node to capture.
package portal

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/visiona/screengrab/internal/pw"
)

const (
	portalDest   = "org.freedesktop.portal.Desktop"
	portalPath   = "/org/freedesktop/portal/desktop"
	screencastIF = "org.freedesktop.portal.ScreenCast"
	requestIF    = "org.freedesktop.portal.Request"

	// Source types: monitor | window.
	sourceTypes = uint32(1 | 2)

	cursorModeHidden   = uint32(1)
	cursorModeEmbedded = uint32(2)

	// Persist across restarts, so the restore token keeps working.
	persistModePersistent = uint32(2)

	// The Start call waits on the user in the selection dialog.
	dialogTimeout = 2 * time.Minute
	replyTimeout  = 30 * time.Second
)

// Selector selects capture targets through the session D-Bus.
type Selector struct{}

// New returns a portal-backed target selector.
func New() *Selector {
	return &Selector{}
}

// Select resolves a capture target. When restorePath names a file with a
// valid restore token the previous selection is reused without prompting;
// otherwise the portal shows the selection dialog and, if restorePath is
// non-empty, the new token is persisted there for next time.
func (s *Selector) Select(restorePath string, showCursor bool) (pw.Target, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return pw.Target{}, fmt.Errorf("portal: failed to connect to session bus: %w", err)
	}

	obj := conn.Object(portalDest, dbus.ObjectPath(portalPath))

	sessionToken := newToken()
	results, err := request(conn, obj, screencastIF+".CreateSession", replyTimeout,
		map[string]dbus.Variant{
			"session_handle_token": dbus.MakeVariant(sessionToken),
		})
	if err != nil {
		return pw.Target{}, fmt.Errorf("portal: CreateSession failed: %w", err)
	}

	sessionHandle, err := sessionHandleFrom(results)
	if err != nil {
		return pw.Target{}, err
	}

	cursorMode := cursorModeHidden
	if showCursor {
		cursorMode = cursorModeEmbedded
	}
	selectOpts := map[string]dbus.Variant{
		"types":        dbus.MakeVariant(sourceTypes),
		"multiple":     dbus.MakeVariant(false),
		"cursor_mode":  dbus.MakeVariant(cursorMode),
		"persist_mode": dbus.MakeVariant(persistModePersistent),
	}
	if token := loadRestoreToken(restorePath); token != "" {
		selectOpts["restore_token"] = dbus.MakeVariant(token)
	}

	if _, err := request(conn, obj, screencastIF+".SelectSources", replyTimeout,
		sessionHandle, selectOpts); err != nil {
		return pw.Target{}, fmt.Errorf("portal: SelectSources failed: %w", err)
	}

	startResults, err := request(conn, obj, screencastIF+".Start", dialogTimeout,
		sessionHandle, "", map[string]dbus.Variant{})
	if err != nil {
		return pw.Target{}, fmt.Errorf("portal: Start failed: %w", err)
	}

	node, err := streamNodeFrom(startResults)
	if err != nil {
		return pw.Target{}, err
	}

	if v, ok := startResults["restore_token"]; ok {
		if token, ok := v.Value().(string); ok && token != "" {
			saveRestoreToken(restorePath, token)
		}
	}

	var fd dbus.UnixFD
	call := obj.Call(screencastIF+".OpenPipeWireRemote", 0,
		sessionHandle, map[string]dbus.Variant{})
	if call.Err != nil {
		return pw.Target{}, fmt.Errorf("portal: OpenPipeWireRemote failed: %w", call.Err)
	}
	if err := call.Store(&fd); err != nil {
		return pw.Target{}, fmt.Errorf("portal: unexpected OpenPipeWireRemote reply: %w", err)
	}

	slog.Info("portal: capture target selected", "node", node, "fd", int(fd))
	return pw.Target{FD: int(fd), Node: node}, nil
}

// request performs a portal request method call and waits for the matching
// Response signal. Portal requests reply asynchronously: the method returns
// a request object path and the result arrives as a signal on it.
func request(conn *dbus.Conn, obj dbus.BusObject, method string, timeout time.Duration, args ...interface{}) (map[string]dbus.Variant, error) {
	token := newToken()
	expected := expectedRequestPath(conn, token)

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(expected),
		dbus.WithMatchInterface(requestIF),
		dbus.WithMatchMember("Response"),
	); err != nil {
		return nil, fmt.Errorf("failed to subscribe for response: %w", err)
	}
	defer conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(expected),
		dbus.WithMatchInterface(requestIF),
		dbus.WithMatchMember("Response"),
	)

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	// The handle_token rides in the last options argument.
	opts, ok := args[len(args)-1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("last argument of %s is not an options map", method)
	}
	opts["handle_token"] = dbus.MakeVariant(token)

	var requestPath dbus.ObjectPath
	call := obj.Call(method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	if err := call.Store(&requestPath); err != nil {
		return nil, fmt.Errorf("unexpected reply: %w", err)
	}
	// Older portals may return a path differing from the token-derived
	// one; match on whichever the portal handed back.
	if requestPath == "" {
		requestPath = expected
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case sig := <-signals:
			if sig.Path != requestPath && sig.Path != expected {
				continue
			}
			if len(sig.Body) < 2 {
				return nil, fmt.Errorf("malformed response to %s", method)
			}
			code, _ := sig.Body[0].(uint32)
			if code != 0 {
				return nil, fmt.Errorf("%s rejected (code %d)", method, code)
			}
			results, _ := sig.Body[1].(map[string]dbus.Variant)
			return results, nil
		case <-deadline.C:
			return nil, fmt.Errorf("timed out waiting for response to %s", method)
		}
	}
}

// expectedRequestPath derives the request object path from our unique bus
// name and the handle token, per the portal spec.
func expectedRequestPath(conn *dbus.Conn, token string) dbus.ObjectPath {
	sender := strings.TrimPrefix(conn.Names()[0], ":")
	sender = strings.ReplaceAll(sender, ".", "_")
	return dbus.ObjectPath("/org/freedesktop/portal/desktop/request/" + sender + "/" + token)
}

func newToken() string {
	return fmt.Sprintf("screengrab_%d", rand.Uint32())
}

func sessionHandleFrom(results map[string]dbus.Variant) (dbus.ObjectPath, error) {
	v, ok := results["session_handle"]
	if !ok {
		return "", fmt.Errorf("portal: CreateSession response missing session_handle")
	}
	switch h := v.Value().(type) {
	case dbus.ObjectPath:
		return h, nil
	case string:
		return dbus.ObjectPath(h), nil
	default:
		return "", fmt.Errorf("portal: unexpected session_handle type %T", h)
	}
}

// streamNodeFrom pulls the PipeWire node id of the first stream out of the
// Start response (type a(ua{sv})).
func streamNodeFrom(results map[string]dbus.Variant) (uint32, error) {
	v, ok := results["streams"]
	if !ok {
		return 0, fmt.Errorf("portal: Start response missing streams")
	}
	streams, ok := v.Value().([][]interface{})
	if !ok || len(streams) == 0 || len(streams[0]) == 0 {
		return 0, fmt.Errorf("portal: Start response carries no stream")
	}
	node, ok := streams[0][0].(uint32)
	if !ok {
		return 0, fmt.Errorf("portal: unexpected stream node type %T", streams[0][0])
	}
	return node, nil
}

func loadRestoreToken(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("portal: no restore token", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveRestoreToken(path, token string) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		slog.Warn("portal: failed to persist restore token", "path", path, "error", err)
		return
	}
	slog.Debug("portal: restore token saved", "path", path)
}
