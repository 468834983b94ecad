package check

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/mailscout/internal/disposable"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/internal/smtpprobe"
)

// serveSMTP answers a probe conversation on a net.Pipe connection,
// accepting exactly the addresses in the accept set ("*" accepts all).
func serveSMTP(server net.Conn, accept map[string]bool) {
	defer func() { _ = server.Close() }()

	_, _ = fmt.Fprintf(server, "220 mock.smtp ESMTP\r\n")

	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "RSET"), strings.HasPrefix(cmd, "MAIL FROM"):
			_, _ = fmt.Fprintf(server, "250 OK\r\n")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			addr := strings.Trim(strings.TrimSpace(strings.TrimPrefix(cmd, "RCPT TO:")), "<>")
			if accept["*"] || accept[addr] {
				_, _ = fmt.Fprintf(server, "250 OK\r\n")
			} else {
				_, _ = fmt.Fprintf(server, "550 User unknown\r\n")
			}
		case strings.HasPrefix(cmd, "QUIT"):
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		default:
			_, _ = fmt.Fprintf(server, "500 Unrecognized command\r\n")
		}
	}
}

// testPool builds a probe pool whose dialer routes to in-memory servers:
// one accept set per MX host, with hosts in down refusing the connection.
func testPool(hosts map[string]map[string]bool, down map[string]bool) *smtpprobe.Pool {
	return smtpprobe.New(smtpprobe.Config{
		HeloDomain:     "verifier.test",
		MailFrom:       "verify@verifier.test",
		ConnectTimeout: time.Second,
		CommandTimeout: 5 * time.Second,
		Port:           "25",
		Dial: func(network, address string, timeout time.Duration) (net.Conn, error) {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return nil, err
			}
			if down[host] {
				return nil, fmt.Errorf("connect to %s: connection refused", address)
			}
			client, server := net.Pipe()
			go serveSMTP(server, hosts[host])
			return client, nil
		},
	})
}

func newTestChecker(pool *smtpprobe.Pool, detector *disposable.Detector, maxHosts int) *SMTPChecker {
	checker := NewSMTPChecker(pool, detector, maxHosts)
	checker.randomLocal = func() string { return "xq7k2m9p4w" }
	return checker
}

func TestSMTPChecker_MailboxExists(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx.example.com": {"user@example.com": true},
	}, nil)
	defer func() { _ = pool.Close() }()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("user@example.com"), []string{"mx.example.com"})

	require.True(t, outcome.Valid, outcome.Message)
	assert.False(t, outcome.IsCatchAll) // forged address was rejected
	assert.Equal(t, "mx.example.com", outcome.Details["mx_host"])
	assert.Equal(t, 250, outcome.Details["smtp_code"])
	assert.Equal(t, "rcpt", outcome.Details["method"])
}

func TestSMTPChecker_CatchAllDomain(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx.example.com": {"*": true},
	}, nil)
	defer func() { _ = pool.Close() }()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("anything@example.com"), []string{"mx.example.com"})

	// Catch-all is advisory: the outcome stays valid.
	require.True(t, outcome.Valid)
	assert.True(t, outcome.IsCatchAll)
}

func TestSMTPChecker_FallsToNextHost(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx2.example.com": {"user@example.com": true},
	}, map[string]bool{"mx1.example.com": true})
	defer func() { _ = pool.Close() }()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("user@example.com"),
		[]string{"mx1.example.com", "mx2.example.com"})

	require.True(t, outcome.Valid, outcome.Message)
	assert.Equal(t, "mx2.example.com", outcome.Details["mx_host"])
}

func TestSMTPChecker_MailboxNotFound(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx1.example.com": {},
		"mx2.example.com": {},
	}, nil)
	defer func() { _ = pool.Close() }()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("nobody@example.com"),
		[]string{"mx1.example.com", "mx2.example.com"})

	assert.False(t, outcome.Valid)
	assert.Equal(t, "mailbox_not_found", outcome.Details["error_type"])
	assert.Contains(t, outcome.Details["last_failure"], "User unknown")
}

func TestSMTPChecker_NoMXHosts(t *testing.T) {
	pool := testPool(nil, nil)
	defer func() { _ = pool.Close() }()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("user@example.com"), nil)

	assert.False(t, outcome.Valid)
	assert.Equal(t, "no_mx_records", outcome.Details["error_type"])
}

func TestSMTPChecker_MaxHostsLimit(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx2.example.com": {"*": true},
	}, map[string]bool{"mx1.example.com": true})
	defer func() { _ = pool.Close() }()

	// Only the first (down) host may be tried.
	checker := newTestChecker(pool, nil, 1)
	outcome := checker.Check(context.Background(), parse.NewEmail("user@example.com"),
		[]string{"mx1.example.com", "mx2.example.com"})

	assert.False(t, outcome.Valid)
	assert.Equal(t, "mailbox_not_found", outcome.Details["error_type"])
}

func TestSMTPChecker_DisposableAnnotation(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx.mailinator.com": {"user@mailinator.com": true},
	}, nil)
	defer func() { _ = pool.Close() }()

	detector := disposable.New()
	checker := newTestChecker(pool, detector, 0)
	outcome := checker.Check(context.Background(), parse.NewEmail("user@mailinator.com"),
		[]string{"mx.mailinator.com"})

	require.True(t, outcome.Valid)
	assert.True(t, outcome.IsDisposable)
}

func TestSMTPChecker_ContextCancelled(t *testing.T) {
	pool := testPool(map[string]map[string]bool{
		"mx.example.com": {"*": true},
	}, nil)
	defer func() { _ = pool.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := newTestChecker(pool, nil, 0)
	outcome := checker.Check(ctx, parse.NewEmail("user@example.com"), []string{"mx.example.com"})

	assert.False(t, outcome.Valid)
	assert.Equal(t, "smtp_error", outcome.Details["error_type"])
}
