package mailscout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/mailscout/internal/cache"
	"github.com/optimode/mailscout/internal/parse"
	"github.com/optimode/mailscout/types"
)

type fakeSyntax struct{ out types.StageOutcome }

func (f fakeSyntax) Check(context.Context, parse.Email) types.StageOutcome { return f.out }

type fakeDNS struct {
	out   types.StageOutcome
	hosts []string
}

func (f fakeDNS) Check(context.Context, parse.Email) (types.StageOutcome, []string) {
	return f.out, f.hosts
}

type fakeSMTP struct {
	out   types.StageOutcome
	calls int
}

func (f *fakeSMTP) Check(_ context.Context, _ parse.Email, hosts []string) types.StageOutcome {
	f.calls++
	return f.out
}

func pass() types.StageOutcome { return types.StageOutcome{Valid: true, Message: "ok"} }

func fail(errorType string) types.StageOutcome {
	return types.StageOutcome{Valid: false, Details: map[string]any{"error_type": errorType}}
}

func newTestValidator(syntax types.StageOutcome, dns types.StageOutcome, hosts []string, smtp *fakeSMTP) *Validator {
	return &Validator{
		syntax:   fakeSyntax{out: syntax},
		dns:      fakeDNS{out: dns, hosts: hosts},
		smtp:     smtp,
		store:    cache.New(time.Minute),
		cacheTTL: time.Minute,
		logger:   testLogger(),
	}
}

func TestValidator_AllStagesPass(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	res, err := v.Validate(context.Background(), "user@example.com", types.LevelAdvanced)
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, 0.0, res.RiskScore)
	assert.False(t, res.Cached)
	assert.Len(t, res.ValidationResults, 3)
	assert.Equal(t, 1, smtp.calls)
}

func TestValidator_BasicLevelSkipsSMTP(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	res, err := v.Validate(context.Background(), "user@example.com", types.LevelBasic)
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, 0, smtp.calls)
	assert.NotContains(t, res.ValidationResults, types.StageSMTP)
}

func TestValidator_SMTPSkippedWhenDNSFails(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), fail("no_mx_records"), nil, smtp)

	res, err := v.Validate(context.Background(), "user@example.com", types.LevelAdvanced)
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, 0, smtp.calls)
	assert.InDelta(t, 0.3, res.RiskScore, 1e-9)
}

func TestValidator_SyntaxFailureStillRunsDNS(t *testing.T) {
	v := newTestValidator(fail("syntax_error"), pass(), []string{"mx.example.com"}, &fakeSMTP{out: pass()})

	res, err := v.Validate(context.Background(), "bad-address", types.LevelBasic)
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.InDelta(t, 0.5, res.RiskScore, 1e-9)
	require.Contains(t, res.ValidationResults, types.StageDNS)
	assert.True(t, res.ValidationResults[types.StageDNS].Valid)
}

func TestValidator_SyntaxAndDNSFailure(t *testing.T) {
	v := newTestValidator(fail("syntax_error"), fail("domain_not_found"), nil, &fakeSMTP{out: pass()})

	res, err := v.Validate(context.Background(), "user@nonexistent-tld-xyz123.test", types.LevelBasic)
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.InDelta(t, 0.8, res.RiskScore, 1e-9)
	assert.Equal(t, "domain_not_found",
		res.ValidationResults[types.StageDNS].Details["error_type"])
}

func TestValidator_SMTPFailurePenalty(t *testing.T) {
	smtp := &fakeSMTP{out: fail("mailbox_not_found")}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	res, err := v.Validate(context.Background(), "nobody@example.com", types.LevelAdvanced)
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.InDelta(t, 0.2, res.RiskScore, 1e-9)
}

func TestValidator_SecondCallIsCached(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	first, err := v.Validate(context.Background(), "user@example.com", types.LevelAdvanced)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := v.Validate(context.Background(), "user@example.com", types.LevelAdvanced)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Valid, second.Valid)
	assert.Equal(t, 1, smtp.calls, "cached call must not probe again")
}

func TestValidator_LevelsCacheSeparately(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	_, err := v.Validate(context.Background(), "user@example.com", types.LevelBasic)
	require.NoError(t, err)

	res, err := v.Validate(context.Background(), "user@example.com", types.LevelAdvanced)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, smtp.calls)
}

func TestValidator_InvalidLevel(t *testing.T) {
	v := newTestValidator(pass(), pass(), nil, &fakeSMTP{out: pass()})

	_, err := v.Validate(context.Background(), "user@example.com", "turbo")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestValidator_EmptyLevelDefaultsToAdvanced(t *testing.T) {
	smtp := &fakeSMTP{out: pass()}
	v := newTestValidator(pass(), pass(), []string{"mx.example.com"}, smtp)

	res, err := v.Validate(context.Background(), "user@example.com", "")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, smtp.calls)
	assert.Contains(t, res.ValidationResults, types.StageSMTP)
}
