package unii

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/metrics"
)

// DefaultPort is the panel's factory TCP port.
const DefaultPort = 6502

const (
	dialTimeout     = 5 * time.Second
	writeTimeout    = 5 * time.Second
	readPoll        = 1 * time.Second
	bodyTimeout     = 1 * time.Second
	drainPoll       = 100 * time.Millisecond
	disconnectGrace = 200 * time.Millisecond

	keepaliveIdle     = 60 * time.Second
	keepaliveInterval = 10 * time.Second
	keepaliveCount    = 3

	maxResponseSkips     = 10
	maxArrangementBlocks = 100
)

// Options configures a Client.
type Options struct {
	Host string
	Port int // 0 selects DefaultPort

	// SharedKey enables the encrypted protocol when set; without it
	// the plaintext protocol id is used.
	SharedKey string

	// UserCode is the default access code for arm/disarm and bypass
	// commands when the caller does not supply one.
	UserCode string

	Variant      Variant
	SkipCRCCheck bool

	Metrics *metrics.Metrics
}

// Client speaks the panel protocol over a single TCP connection. All
// exchanges are serialized: one request/response at a time, and
// connect/disconnect never race an in-flight exchange.
type Client struct {
	log     *log.Logger
	metrics *metrics.Metrics

	host     string
	port     int
	userCode string
	variant  Variant
	codec    codec

	busyRetryDelay  time.Duration
	responseTimeout time.Duration
	blockTimeout    time.Duration

	mu            sync.Mutex
	conn          net.Conn
	session       Session
	connected     bool
	everConnected bool

	eventMu sync.Mutex
	events  map[int]Event
	eventCh chan Event
}

func NewClient(opts Options, logger *log.Logger) *Client {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	c := &Client{
		log:             logger,
		metrics:         opts.Metrics,
		host:            opts.Host,
		port:            port,
		userCode:        opts.UserCode,
		variant:         opts.Variant,
		codec:           newCodec(opts.SharedKey, !opts.SkipCRCCheck),
		busyRetryDelay:  3 * time.Second,
		responseTimeout: 5 * time.Second,
		blockTimeout:    3 * time.Second,
		events:          make(map[int]Event),
		eventCh:         make(chan Event, 100),
	}
	c.session.Reset()
	return c
}

// Connect dials the panel and performs the session handshake. A "slot
// busy" denial is retried once after a short backoff; any other
// failure is returned immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	for attempt := 1; attempt <= 2; attempt++ {
		c.log.Info("Connecting to %s:%d (attempt %d)", c.host, c.port, attempt)
		if c.everConnected {
			c.metrics.IncReconnects()
		}

		err := c.handshakeLocked(ctx)
		if err == nil {
			c.connected = true
			c.everConnected = true
			c.metrics.SetConnected(true)
			c.log.Info("Connected, session 0x%04X", c.session.ID)
			return nil
		}

		if errors.Is(err, ErrBusy) {
			if attempt == 1 {
				c.log.Warning("Panel denied connection (slot busy), retrying in %s", c.busyRetryDelay)
				select {
				case <-time.After(c.busyRetryDelay):
				case <-ctx.Done():
					return fmt.Errorf("%w: %v", ErrConnect, ctx.Err())
				}
				continue
			}
			return fmt.Errorf("%w: %w", ErrConnect, ErrBusy)
		}
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnect, ErrBusy)
}

// handshakeLocked opens the socket and runs the connection-request
// exchange. On failure the socket is closed and session state reset.
func (c *Client) handshakeLocked(ctx context.Context) error {
	dialer := net.Dialer{
		Timeout: dialTimeout,
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     keepaliveIdle,
			Interval: keepaliveInterval,
			Count:    keepaliveCount,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.host, c.port))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	c.conn = conn
	c.session.Reset()

	if err := c.send(CmdConnectionRequest, nil); err != nil {
		c.teardownLocked()
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	frame, err := c.readFrame(c.responseTimeout, bodyTimeout)
	if err != nil {
		c.teardownLocked()
		return fmt.Errorf("%w: handshake read: %v", ErrConnect, err)
	}

	switch frame.Command {
	case CmdConnectionAccepted:
		return nil
	case CmdConnectionRejected:
		c.teardownLocked()
		return fmt.Errorf("handshake denied: %w", ErrBusy)
	default:
		c.teardownLocked()
		return fmt.Errorf("%w: unexpected handshake response: %s", ErrConnect, frame.Command)
	}
}

// Disconnect sends a best-effort graceful disconnect so the panel
// frees its session slot, then closes the socket. Session state is
// reset unconditionally.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	if c.connected {
		if err := c.send(CmdNormalDisconnect, nil); err != nil {
			c.log.Debug("Graceful disconnect failed: %v", err)
		} else {
			time.Sleep(disconnectGrace)
		}
	}
	c.teardownLocked()
	c.log.Info("Disconnected from panel")
}

// Connected reports whether a session is established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Session returns a copy of the current session counters.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// teardownLocked closes the socket and resets all session state so no
// stale identifiers or counters survive into the next connection.
func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.session.Reset()
	c.metrics.SetConnected(false)
}

// send encodes and writes a single frame. The send counter increments
// only after a successful write.
func (c *Client) send(cmd Command, data []byte) error {
	if c.conn == nil {
		return ErrClosed
	}

	frame, err := c.codec.encode(&c.session, cmd, data)
	if err != nil {
		return err
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("failed to send %s: %v", cmd, err)
	}
	c.session.TxSeq++
	c.metrics.IncFramesTx()
	c.log.Trace("TX %s tx_seq=%d (%d bytes)", cmd, c.session.TxSeq, len(frame))
	return nil
}

// readFrame reads one frame off the socket. The header read carries
// its own deadline so callers can poll; a clean timeout there (no
// bytes read) is returned as-is for the caller to classify. Once the
// header is in, the rest of the frame must follow promptly or the
// stream is considered corrupt.
func (c *Client) readFrame(headerTimeout, bodyTimeout time.Duration) (*Frame, error) {
	hdr := make([]byte, headerLen)
	c.conn.SetReadDeadline(time.Now().Add(headerTimeout))
	n, err := io.ReadFull(c.conn, hdr)
	if err != nil {
		if n > 0 && isTimeout(err) {
			c.metrics.IncFrameErrors()
			return nil, fmt.Errorf("%w: short header read (%d of %d bytes)", ErrProtocol, n, headerLen)
		}
		return nil, err
	}

	h, err := parseHeader(hdr)
	if err != nil {
		c.metrics.IncFrameErrors()
		return nil, err
	}

	body := make([]byte, int(h.length)-headerLen)
	c.conn.SetReadDeadline(time.Now().Add(bodyTimeout))
	if _, err := io.ReadFull(c.conn, body); err != nil {
		c.metrics.IncFrameErrors()
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: timed out reading frame body", ErrProtocol)
		}
		return nil, err
	}

	frame, err := c.codec.decodeBody(h, body)
	if err != nil {
		c.metrics.IncFrameErrors()
		return nil, err
	}

	// Every inbound frame refreshes the session id and mirrors the
	// panel's send counter, unsolicited frames included.
	c.session.ID = h.sessionID
	c.session.RxSeq = h.txSeq
	c.metrics.IncFramesRx()
	c.log.Trace("RX %s rx_seq=%d (%d bytes)", frame.Command, c.session.RxSeq, h.length)
	return frame, nil
}

// execute runs one request/response exchange under the transaction
// lock. Unsolicited events arriving in between are diverted to the
// interpreter; a bounded number of other unexpected frames is skipped
// before giving up. Timeouts and stream errors tear the connection
// down so the next call starts clean.
func (c *Client) execute(ctx context.Context, cmd Command, payload []byte, want Command, timeout time.Duration) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrClosed
	}

	if err := c.send(cmd, payload); err != nil {
		c.teardownLocked()
		return nil, err
	}

	skips := 0
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			c.teardownLocked()
			return nil, err
		}

		poll := readPoll
		if remaining := time.Until(deadline); remaining < poll {
			poll = remaining
		}

		frame, err := c.readFrame(poll, bodyTimeout)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			c.teardownLocked()
			return nil, err
		}

		switch {
		case frame.Command == want:
			return frame, nil
		case isEventCommand(frame.Command):
			c.handleEventFrame(frame)
		default:
			skips++
			c.log.Debug("Skipping %s while waiting for %s (%d/%d)", frame.Command, want, skips, maxResponseSkips)
			if skips >= maxResponseSkips {
				c.teardownLocked()
				return nil, fmt.Errorf("%w: gave up waiting for %s after %d unexpected frames", ErrTimeout, want, skips)
			}
		}
	}

	c.teardownLocked()
	return nil, fmt.Errorf("%w: no %s within %s", ErrTimeout, want, timeout)
}

// DrainEvents reads any frames already buffered on the socket and
// dispatches the events among them, stopping at the first read
// timeout. It never waits for data that has not arrived yet.
func (c *Client) DrainEvents() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return 0, nil
	}

	found := 0
	for {
		frame, err := c.readFrame(drainPoll, bodyTimeout)
		if err != nil {
			if isTimeout(err) {
				return found, nil
			}
			c.teardownLocked()
			return found, err
		}
		if isEventCommand(frame.Command) {
			c.handleEventFrame(frame)
			found++
		} else {
			c.log.Debug("Discarding stray %s during drain", frame.Command)
		}
	}
}

// GetStatus polls the armed state of all sections.
func (c *Client) GetStatus(ctx context.Context) (map[int]SectionState, error) {
	frame, err := c.execute(ctx, CmdRequestSectionStatus, sectionStatusPayload(), CmdSectionStatusResponse, c.responseTimeout)
	if err != nil {
		c.metrics.IncCommand("get_status", "error")
		return nil, err
	}
	c.metrics.IncCommand("get_status", "ok")
	return decodeSectionStatus(c.variant, frame.Data), nil
}

// GetInputStatus polls the raw status byte of all inputs.
func (c *Client) GetInputStatus(ctx context.Context) (map[int]InputStatus, error) {
	frame, err := c.execute(ctx, CmdRequestInputStatus, inputStatusPayload(), CmdInputStatusResponse, c.responseTimeout)
	if err != nil {
		c.metrics.IncCommand("get_input_status", "error")
		return nil, err
	}
	c.metrics.IncCommand("get_input_status", "ok")
	return decodeInputStatus(c.variant, frame.Data), nil
}

// GetInputArrangement downloads the provisioned inputs block by block.
// The scan ends at the first block without records, on a failed
// exchange, or at the hard block cap; whatever was collected up to
// that point is returned.
func (c *Client) GetInputArrangement(ctx context.Context) (map[int]Input, error) {
	inputs := make(map[int]Input)
	for block := 1; block <= maxArrangementBlocks; block++ {
		frame, err := c.execute(ctx, CmdRequestInputArrangement, arrangementPayload(block), CmdInputArrangementResponse, c.blockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return inputs, ctx.Err()
			}
			c.log.Warning("Arrangement scan stopped at block %d: %v", block, err)
			c.metrics.IncCommand("get_input_arrangement", "error")
			return inputs, nil
		}

		found, records := decodeArrangementBlock(block, frame.Data)
		if records == 0 {
			break
		}
		for _, in := range found {
			inputs[in.Number] = in
		}
	}

	c.metrics.IncCommand("get_input_arrangement", "ok")
	c.log.Info("Input arrangement scan found %d inputs", len(inputs))
	return inputs, nil
}

// ArmSection arms a section. An empty code falls back to the
// configured default access code.
func (c *Client) ArmSection(ctx context.Context, section int, code string) error {
	return c.controlSection(ctx, CmdArmSection, CmdArmSectionResponse, "arm_section", section, code)
}

// DisarmSection disarms a section. An empty code falls back to the
// configured default access code.
func (c *Client) DisarmSection(ctx context.Context, section int, code string) error {
	return c.controlSection(ctx, CmdDisarmSection, CmdDisarmSectionResponse, "disarm_section", section, code)
}

func (c *Client) controlSection(ctx context.Context, cmd, want Command, name string, section int, code string) error {
	payload, err := controlSectionPayload(c.accessCode(code), section)
	if err != nil {
		c.metrics.IncCommand(name, "error")
		return err
	}

	frame, err := c.execute(ctx, cmd, payload, want, c.responseTimeout)
	if err != nil {
		c.metrics.IncCommand(name, "error")
		return err
	}

	if len(frame.Data) >= 2 && Result(frame.Data[1]) == ResultSuccess {
		c.metrics.IncCommand(name, "ok")
		return nil
	}

	var result Result
	if len(frame.Data) >= 2 {
		result = Result(frame.Data[1])
	}
	c.metrics.IncCommand(name, "failure")
	return &CommandFailure{Command: cmd, Result: result}
}

// BypassInput bypasses an input. An empty code falls back to the
// configured default access code.
func (c *Client) BypassInput(ctx context.Context, input int, code string) error {
	return c.controlInput(ctx, CmdBypassInput, CmdBypassInputResponse, "bypass_input", input, code)
}

// UnbypassInput clears the bypass on an input.
func (c *Client) UnbypassInput(ctx context.Context, input int, code string) error {
	return c.controlInput(ctx, CmdUnbypassInput, CmdUnbypassInputResponse, "unbypass_input", input, code)
}

func (c *Client) controlInput(ctx context.Context, cmd, want Command, name string, input int, code string) error {
	payload, err := controlInputPayload(c.accessCode(code), input)
	if err != nil {
		c.metrics.IncCommand(name, "error")
		return err
	}

	frame, err := c.execute(ctx, cmd, payload, want, c.responseTimeout)
	if err != nil {
		c.metrics.IncCommand(name, "error")
		return err
	}

	// The response carries the input number followed by a result code.
	if len(frame.Data) < 3 {
		c.metrics.IncCommand(name, "error")
		return fmt.Errorf("%w: short %s response (%d bytes)", ErrProtocol, want, len(frame.Data))
	}
	if result := Result(frame.Data[2]); result != ResultSuccess {
		c.metrics.IncCommand(name, "failure")
		return &CommandFailure{Command: cmd, Result: result}
	}
	c.metrics.IncCommand(name, "ok")
	return nil
}

func (c *Client) accessCode(code string) string {
	if code != "" {
		return code
	}
	return c.userCode
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
