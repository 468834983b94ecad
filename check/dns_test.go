package check_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/mailscout/check"
	"github.com/optimode/mailscout/internal/dnscache"
	"github.com/optimode/mailscout/internal/parse"
)

// mockResolver serves canned DNS answers per domain.
type mockResolver struct {
	mx      map[string][]*net.MX
	hosts   map[string][]string
	mxErr   map[string]error
	hostErr map[string]error
}

func (m *mockResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if err, ok := m.mxErr[name]; ok {
		return nil, err
	}
	return m.mx[name], nil
}

func (m *mockResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if err, ok := m.hostErr[host]; ok {
		return nil, err
	}
	if hosts, ok := m.hosts[host]; ok {
		return hosts, nil
	}
	return []string{"192.0.2.1"}, nil
}

func newDNSChecker(r dnscache.Resolver) *check.DNSChecker {
	cache := dnscache.NewWithResolver(2*time.Second, time.Minute, r)
	return check.NewDNSChecker(cache)
}

func TestDNSChecker_MXRecordsFound(t *testing.T) {
	checker := newDNSChecker(&mockResolver{
		mx: map[string][]*net.MX{
			"example.com": {
				{Host: "mx2.example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 10},
			},
		},
	})

	outcome, hosts := checker.Check(context.Background(), parse.NewEmail("user@example.com"))
	require.True(t, outcome.Valid, outcome.Message)

	// Resolver order is preserved, dots trimmed; no re-sorting by Pref.
	assert.Equal(t, []string{"mx2.example.com", "mx1.example.com"}, hosts)
	assert.Equal(t, hosts, outcome.Details["mx_records"])
	assert.Equal(t, 2, outcome.Details["mx_count"])
}

func TestDNSChecker_DomainNotFound(t *testing.T) {
	checker := newDNSChecker(&mockResolver{
		hostErr: map[string]error{
			"nosuchdomain.example": &net.DNSError{Err: "no such host", IsNotFound: true},
		},
	})

	outcome, hosts := checker.Check(context.Background(), parse.NewEmail("user@nosuchdomain.example"))
	assert.False(t, outcome.Valid)
	assert.Nil(t, hosts)
	assert.Equal(t, "domain_not_found", outcome.Details["error_type"])
}

func TestDNSChecker_Timeout(t *testing.T) {
	checker := newDNSChecker(&mockResolver{
		hostErr: map[string]error{
			"slow.example": &net.DNSError{Err: "i/o timeout", IsTimeout: true},
		},
	})

	outcome, _ := checker.Check(context.Background(), parse.NewEmail("user@slow.example"))
	assert.False(t, outcome.Valid)
	assert.Equal(t, "dns_timeout", outcome.Details["error_type"])
}

func TestDNSChecker_MXTimeout(t *testing.T) {
	checker := newDNSChecker(&mockResolver{
		mxErr: map[string]error{
			"slowmx.example": &net.DNSError{Err: "i/o timeout", IsTimeout: true},
		},
	})

	outcome, _ := checker.Check(context.Background(), parse.NewEmail("user@slowmx.example"))
	assert.False(t, outcome.Valid)
	assert.Equal(t, "dns_timeout", outcome.Details["error_type"])
}

func TestDNSChecker_NoMXRecords(t *testing.T) {
	checker := newDNSChecker(&mockResolver{
		mx: map[string][]*net.MX{"nomail.example": {}},
	})

	outcome, hosts := checker.Check(context.Background(), parse.NewEmail("user@nomail.example"))
	assert.False(t, outcome.Valid)
	assert.Nil(t, hosts)
	assert.Equal(t, "no_mx_records", outcome.Details["error_type"])
}

func TestDNSChecker_ProviderClassification(t *testing.T) {
	tests := []struct {
		name         string
		mxHost       string
		wantProvider string
		wantType     string
	}{
		{"free gmail", "gmail-smtp-in.l.gmail.com.", "Gmail", "free"},
		{"free outlook", "outlook-com.olc.protection.outlook.com.", "Outlook", "free"},
		{"business workspace", "aspmx.l.google.com.", "Google Workspace", "business"},
		{"business m365", "contoso-com.mail.protection.outlook.com.", "Microsoft 365", "business"},
		{"custom", "mail.smallbiz.example.", "Custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newDNSChecker(&mockResolver{
				mx: map[string][]*net.MX{
					"domain.test": {{Host: tt.mxHost, Pref: 10}},
				},
			})

			outcome, _ := checker.Check(context.Background(), parse.NewEmail("user@domain.test"))
			require.True(t, outcome.Valid)
			assert.Equal(t, tt.wantProvider, outcome.EmailProvider)
			assert.Equal(t, tt.wantType, outcome.Details["provider_type"])
		})
	}
}

func TestDNSChecker_UnparseableEmail(t *testing.T) {
	checker := newDNSChecker(&mockResolver{})

	outcome, hosts := checker.Check(context.Background(), parse.NewEmail("not-an-email"))
	assert.False(t, outcome.Valid)
	assert.Nil(t, hosts)
	assert.Equal(t, "dns_error", outcome.Details["error_type"])
}
