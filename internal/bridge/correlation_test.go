package bridge

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestResolveByID(t *testing.T) {
	table := NewTable(testLogger())
	pending := table.Register("req-1", RespNavigateAck, time.Second)

	payload := json.RawMessage(`{"type":"navigate-ack","requestId":"req-1","url":"https://example.com"}`)
	require.True(t, table.Resolve("req-1", payload))

	got, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
	assert.Equal(t, 0, table.Len())
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	table := NewTable(testLogger())
	table.Register("req-1", RespNavigateAck, time.Second)

	assert.False(t, table.Resolve("req-2", json.RawMessage(`{}`)))
	assert.Equal(t, 1, table.Len())
}

func TestDoubleResolveSettlesOnce(t *testing.T) {
	table := NewTable(testLogger())
	pending := table.Register("req-1", RespClickAck, time.Second)

	first := json.RawMessage(`{"seq":1}`)
	second := json.RawMessage(`{"seq":2}`)
	require.True(t, table.Resolve("req-1", first))
	assert.False(t, table.Resolve("req-1", second))

	got, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(got))
}

func TestResolveByTypeMatchesOldestFirst(t *testing.T) {
	table := NewTable(testLogger())
	first := table.Register("req-1", RespClickAck, time.Second)
	second := table.Register("req-2", RespClickAck, time.Second)

	require.True(t, table.ResolveByType(RespClickAck, json.RawMessage(`{"seq":1}`)))
	require.True(t, table.ResolveByType(RespClickAck, json.RawMessage(`{"seq":2}`)))

	got1, err := first.Wait(context.Background())
	require.NoError(t, err)
	got2, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1}`, string(got1))
	assert.JSONEq(t, `{"seq":2}`, string(got2))
}

func TestResolveByTypeIgnoresOtherTypes(t *testing.T) {
	table := NewTable(testLogger())
	table.Register("req-1", RespNavigateAck, time.Second)

	assert.False(t, table.ResolveByType(RespClickAck, json.RawMessage(`{}`)))
	assert.Equal(t, 1, table.Len())
}

func TestIDResolutionDoesNotDisturbTypeOrder(t *testing.T) {
	table := NewTable(testLogger())
	first := table.Register("req-1", RespClickAck, time.Second)
	second := table.Register("req-2", RespClickAck, time.Second)

	// Settling the newer request by id must leave the older one as the
	// next FIFO candidate.
	require.True(t, table.Resolve("req-2", json.RawMessage(`{"seq":2}`)))
	require.True(t, table.ResolveByType(RespClickAck, json.RawMessage(`{"seq":1}`)))

	got1, err := first.Wait(context.Background())
	require.NoError(t, err)
	got2, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1}`, string(got1))
	assert.JSONEq(t, `{"seq":2}`, string(got2))
}

func TestTimeoutRejectsPending(t *testing.T) {
	table := NewTable(testLogger())
	budget := 20 * time.Millisecond
	start := time.Now()
	pending := table.Register("req-1", RespEvaluateResult, budget)

	_, err := pending.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	// The rejection must not fire before the budget elapses.
	assert.GreaterOrEqual(t, time.Since(start), budget)
	assert.Equal(t, 0, table.Len())
}

func TestZeroTimeoutStillRejects(t *testing.T) {
	table := NewTable(testLogger())
	// An already-expired budget fires the timer during registration; the
	// entry must still be found and rejected rather than left dangling.
	pending := table.Register("req-1", RespEvaluateResult, 0)

	_, err := pending.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 0, table.Len())
}

func TestResolveAfterTimeoutIsDropped(t *testing.T) {
	table := NewTable(testLogger())
	pending := table.Register("req-1", RespEvaluateResult, 10*time.Millisecond)

	_, err := pending.Wait(context.Background())
	require.True(t, IsTimeout(err))
	assert.False(t, table.Resolve("req-1", json.RawMessage(`{}`)))
}

func TestRejectAllDrainsTable(t *testing.T) {
	table := NewTable(testLogger())
	first := table.Register("req-1", RespNavigateAck, time.Minute)
	second := table.Register("req-2", RespClickAck, time.Minute)

	count := table.RejectAll(NewConnectionLostError("", ""))
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, table.Len())

	for _, p := range []*Pending{first, second} {
		_, err := p.Wait(context.Background())
		require.Error(t, err)
		assert.True(t, IsConnectionLost(err))
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	table := NewTable(testLogger())
	pending := table.Register("req-1", RespAuditResult, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pending.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
