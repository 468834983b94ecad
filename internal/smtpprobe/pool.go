// Package smtpprobe speaks the SMTP protocol to candidate mail exchangers
// to test whether a mailbox exists. Connections are pooled per MX host and
// reused via the RSET command so that probing an address and then its
// catch-all forgery costs a single TCP session.
package smtpprobe

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Config configures the SMTP probe pool.
type Config struct {
	HeloDomain      string // hostname sent in EHLO
	MailFrom        string // address declared in MAIL FROM
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	Port            string
	MaxConnsPerHost int           // max idle connections per MX host (default: 3)
	MaxUsesPerConn  int           // max probes per connection before reconnect (default: 100)
	MaxConnAge      time.Duration // max lifetime of a connection (default: 5m)
	// Dial is injectable for testing. Defaults to net.DialTimeout.
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// Result is the outcome of one mailbox probe against one MX host.
type Result struct {
	Code    int    // SMTP response code of the decisive command
	Message string // response text
	Method  string // "vrfy" when the server verified directly, else "rcpt"
}

// Accepted reports whether the server accepted the mailbox.
func (r Result) Accepted() bool {
	return r.Code >= 200 && r.Code < 300
}

// Rejected reports a definitive mailbox rejection (450-453, 550-553).
// Anything else that is not an acceptance is inconclusive for the host.
func (r Result) Rejected() bool {
	return (r.Code >= 450 && r.Code <= 453) || (r.Code >= 550 && r.Code <= 553)
}

// Pool manages SMTP connections per MX host.
type Pool struct {
	cfg    Config
	mu     sync.Mutex
	hosts  map[string][]*conn
	closed bool
}

type conn struct {
	netConn      net.Conn
	reader       *bufio.Reader
	writer       *bufio.Writer
	createdAt    time.Time
	uses         int
	supportsVRFY bool // advertised in the EHLO extension list
}

// New creates a new SMTP probe pool.
func New(cfg Config) *Pool {
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 3
	}
	if cfg.MaxUsesPerConn <= 0 {
		cfg.MaxUsesPerConn = 100
	}
	if cfg.MaxConnAge <= 0 {
		cfg.MaxConnAge = 5 * time.Minute
	}
	return &Pool{
		cfg:   cfg,
		hosts: make(map[string][]*conn),
	}
}

// Probe tests whether the given address is deliverable via the given MX
// host. If the server advertises VRFY, a positive verification answer
// short-circuits; otherwise delivery is simulated with MAIL FROM and
// RCPT TO. Network and protocol failures are returned as errors; the
// caller treats them as "try next host".
func (p *Pool) Probe(mxHost, email string) (Result, error) {
	c, isNew, err := p.get(mxHost)
	if err != nil {
		return Result{}, err
	}

	res, err := p.doProbe(c, email, isNew)
	if err != nil {
		// Connection is broken, discard it
		_ = c.netConn.Close()
		return Result{}, err
	}

	p.put(mxHost, c)
	return res, nil
}

// Close closes all connections in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for host, conns := range p.hosts {
		for _, c := range conns {
			sendQuit(c)
			_ = c.netConn.Close()
		}
		delete(p.hosts, host)
	}
	return nil
}

// get retrieves an existing connection from the pool or creates a new one.
func (p *Pool) get(mxHost string) (*conn, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, errors.New("smtpprobe: pool is closed")
	}

	conns := p.hosts[mxHost]

	// Try to find a reusable connection (LIFO for better locality)
	for i := len(conns) - 1; i >= 0; i-- {
		c := conns[i]
		if c.uses >= p.cfg.MaxUsesPerConn || time.Since(c.createdAt) > p.cfg.MaxConnAge {
			// Too old or too many uses, close and remove
			sendQuit(c)
			_ = c.netConn.Close()
			conns = append(conns[:i], conns[i+1:]...)
			continue
		}
		// Take this connection out of the pool
		conns = append(conns[:i], conns[i+1:]...)
		p.hosts[mxHost] = conns
		return c, false, nil
	}
	p.hosts[mxHost] = conns

	// No reusable connection, create a new one
	c, err := p.dial(mxHost)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// put returns a connection to the pool for reuse.
func (p *Pool) put(mxHost string, c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.hosts[mxHost]) >= p.cfg.MaxConnsPerHost {
		sendQuit(c)
		_ = c.netConn.Close()
		return
	}

	p.hosts[mxHost] = append(p.hosts[mxHost], c)
}

// dial creates a new TCP connection to the MX host.
func (p *Pool) dial(mxHost string) (*conn, error) {
	address := net.JoinHostPort(mxHost, p.cfg.Port)
	netConn, err := p.cfg.Dial("tcp", address, p.cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	return &conn{
		netConn:   netConn,
		reader:    bufio.NewReader(netConn),
		writer:    bufio.NewWriter(netConn),
		createdAt: time.Now(),
	}, nil
}

// doProbe runs the SMTP conversation on a connection.
// For new connections: Banner → EHLO → [VRFY] → MAIL FROM → RCPT TO.
// For reused connections: RSET → [VRFY] → MAIL FROM → RCPT TO.
func (p *Pool) doProbe(c *conn, email string, isNew bool) (Result, error) {
	deadline := time.Now().Add(p.cfg.CommandTimeout)
	if err := c.netConn.SetDeadline(deadline); err != nil {
		return Result{}, fmt.Errorf("set deadline: %w", err)
	}

	if isNew {
		// Read banner
		code, msg, err := readResponse(c.reader)
		if err != nil {
			return Result{}, fmt.Errorf("read banner: %w", err)
		}
		if code >= 500 {
			return Result{}, fmt.Errorf("server rejected connection: %d %s", code, msg)
		}

		// EHLO; the extension list tells us whether VRFY is on offer
		code, msg, err = command(c, fmt.Sprintf("EHLO %s\r\n", p.cfg.HeloDomain))
		if err != nil {
			return Result{}, fmt.Errorf("EHLO failed: %w", err)
		}
		if code >= 400 {
			return Result{}, fmt.Errorf("EHLO rejected: %d %s", code, msg)
		}
		c.supportsVRFY = advertisesVRFY(msg)
	} else {
		// RSET to start a fresh transaction on the reused connection
		code, msg, err := command(c, "RSET\r\n")
		if err != nil {
			return Result{}, fmt.Errorf("RSET failed: %w", err)
		}
		if code >= 400 {
			return Result{}, fmt.Errorf("RSET rejected: %d %s", code, msg)
		}
	}

	// Direct mailbox verification when the server offers it. A positive
	// answer is proof; anything else falls through to the RCPT simulation.
	if c.supportsVRFY {
		code, msg, err := command(c, fmt.Sprintf("VRFY %s\r\n", email))
		if err != nil {
			return Result{}, fmt.Errorf("VRFY failed: %w", err)
		}
		if code == 250 {
			c.uses++
			return Result{Code: code, Message: msg, Method: "vrfy"}, nil
		}
	}

	// MAIL FROM
	code, msg, err := command(c, fmt.Sprintf("MAIL FROM:<%s>\r\n", p.cfg.MailFrom))
	if err != nil {
		return Result{}, fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if code >= 500 {
		return Result{Code: code, Message: msg, Method: "rcpt"}, nil
	}
	if code >= 400 {
		return Result{}, fmt.Errorf("MAIL FROM temporary failure: %d %s", code, msg)
	}

	// RCPT TO
	code, msg, err = command(c, fmt.Sprintf("RCPT TO:<%s>\r\n", email))
	if err != nil {
		return Result{}, fmt.Errorf("RCPT TO failed: %w", err)
	}

	c.uses++
	return Result{Code: code, Message: msg, Method: "rcpt"}, nil
}

// advertisesVRFY reports whether an EHLO response lists the VRFY extension.
// Lines arrive as "250-VRFY" / "250 VRFY" with optional parameters.
func advertisesVRFY(ehloResponse string) bool {
	for _, line := range strings.Split(ehloResponse, " | ") {
		if len(line) > 4 {
			line = line[4:] // strip "250-" / "250 "
		}
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.EqualFold(fields[0], "VRFY") {
			return true
		}
	}
	return false
}

// command sends an SMTP command and reads the response.
func command(c *conn, cmd string) (int, string, error) {
	if _, err := c.writer.WriteString(cmd); err != nil {
		return 0, "", err
	}
	if err := c.writer.Flush(); err != nil {
		return 0, "", err
	}
	return readResponse(c.reader)
}

// sendQuit sends a QUIT command (best-effort, ignores errors).
func sendQuit(c *conn) {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.writer.WriteString("QUIT\r\n")
	_ = c.writer.Flush()
}

// readResponse reads a (possibly multi-line) SMTP response.
func readResponse(r *bufio.Reader) (code int, full string, err error) {
	var lines []string
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil {
			return 0, "", fmt.Errorf("read SMTP response: %w", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, "", errors.New("SMTP response line too short")
		}
		lines = append(lines, line)
		// If the 4th character is not '-', this is the last line
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	lastLine := lines[len(lines)-1]
	if _, err := fmt.Sscanf(lastLine[:3], "%d", &code); err != nil {
		return 0, "", fmt.Errorf("invalid SMTP response code %q: %w", lastLine[:3], err)
	}
	return code, strings.Join(lines, " | "), nil
}
