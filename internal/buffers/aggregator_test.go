package buffers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/tabbridge/pkg/events"
	"github.com/standardbeagle/tabbridge/pkg/filters"
)

func TestRingEvictsOldestBeyondCapacity(t *testing.T) {
	ring := NewRing[int](5)
	for i := 0; i < 5+3; i++ {
		ring.Append(i)
	}

	got := ring.Snapshot()
	require.Len(t, got, 5)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, got)
}

func TestRingSnapshotIsACopy(t *testing.T) {
	ring := NewRing[int](4)
	ring.Append(1)

	snap := ring.Snapshot()
	snap[0] = 99
	assert.Equal(t, []int{1}, ring.Snapshot())
}

func TestAggregatorBoundedUnderOverflow(t *testing.T) {
	a := NewAggregator(10)
	for i := 0; i < 10+7; i++ {
		a.consoleLogs.Append(Entry{
			Timestamp: time.Now(),
			Level:     "log",
			Message:   fmt.Sprintf("line %d", i),
		})
	}

	got := a.ConsoleLogs(Query{})
	require.Len(t, got, 10)
	assert.Equal(t, "line 7", got[0].Message)
	assert.Equal(t, "line 16", got[len(got)-1].Message)
}

func TestQueryLevelAndLimit(t *testing.T) {
	a := NewAggregator(100)
	for i := 0; i < 6; i++ {
		level := "log"
		if i%2 == 0 {
			level = "warn"
		}
		a.consoleLogs.Append(Entry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   fmt.Sprintf("line %d", i),
		})
	}

	warns := a.ConsoleLogs(Query{Level: "warn"})
	require.Len(t, warns, 3)

	limited := a.ConsoleLogs(Query{Limit: 2})
	require.Len(t, limited, 2)
	assert.Equal(t, "line 4", limited[0].Message)
	assert.Equal(t, "line 5", limited[1].Message)
}

func TestQueryFilterMatchesMessage(t *testing.T) {
	a := NewAggregator(100)
	a.consoleErrors.Append(Entry{Level: "error", Message: "TypeError: x is undefined"})
	a.consoleErrors.Append(Entry{Level: "error", Message: "fetch aborted"})

	f, err := filters.NewFilter("type-errors", filters.FilterTypeContains, "TypeError", false)
	require.NoError(t, err)

	got := a.ConsoleErrors(Query{Filter: f})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "TypeError")
}

func TestClearConsoleLeavesNetworkErrors(t *testing.T) {
	a := NewAggregator(100)
	a.consoleLogs.Append(Entry{Message: "log"})
	a.consoleErrors.Append(Entry{Message: "err"})
	a.networkErrors.Append(Entry{Message: "net", URL: "https://example.com", Status: 500})

	a.ClearConsole()

	logs, consoleErrs, netErrs := a.Counts()
	assert.Equal(t, 0, logs)
	assert.Equal(t, 0, consoleErrs)
	assert.Equal(t, 1, netErrs)
}

func TestOversizedMessageTruncated(t *testing.T) {
	long := make([]byte, maxMessageLen*2)
	for i := range long {
		long[i] = 'a'
	}
	entry := entryFromFields(map[string]interface{}{"level": "log", "message": string(long)})
	assert.LessOrEqual(t, len(entry.Message), maxMessageLen+len("... [truncated]"))
	assert.Contains(t, entry.Message, "[truncated]")
}

func TestHandlePushRoutesByEventType(t *testing.T) {
	a := NewAggregator(100)
	a.HandlePush(events.ConsoleLog, map[string]interface{}{"message": "plain"})
	a.HandlePush(events.ConsoleError, map[string]interface{}{"level": "error", "message": "boom"})
	a.HandlePush(events.NetworkError, map[string]interface{}{"message": "fetch failed", "url": "https://example.com", "status": float64(502)})

	logs, consoleErrs, netErrs := a.Counts()
	assert.Equal(t, 1, logs)
	assert.Equal(t, 1, consoleErrs)
	assert.Equal(t, 1, netErrs)

	net := a.NetworkErrors(Query{})
	require.Len(t, net, 1)
	assert.Equal(t, 502, net[0].Status)
}
