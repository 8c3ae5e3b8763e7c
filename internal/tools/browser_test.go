package tools

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 10*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, 2*time.Second, cfg.PingTimeout)
	assert.Equal(t, 100000, cfg.MaxContentLength)

	custom := Config{DefaultTimeout: 2 * time.Second, PingTimeout: 500 * time.Millisecond, MaxContentLength: 64}.withDefaults()
	assert.Equal(t, 2*time.Second, custom.DefaultTimeout)
	assert.Equal(t, 500*time.Millisecond, custom.PingTimeout)
	assert.Equal(t, 64, custom.MaxContentLength)
}

func TestToolBudgetsScaleFromConfig(t *testing.T) {
	cfg := Config{DefaultTimeout: 2 * time.Second}

	assert.Equal(t, 2000, NewNavigateTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 1000, NewClickTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 1000, NewTypeTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 6000, NewWaitTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 3000, NewEvaluateTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 3000, NewContentTool(nil, cfg).Capabilities().TimeoutMs)
	assert.Equal(t, 9000, NewAuditTool(nil, cfg).Capabilities().TimeoutMs)
}

func TestToolBudgetsFallBackToDefault(t *testing.T) {
	assert.Equal(t, 10000, NewNavigateTool(nil, Config{}).Capabilities().TimeoutMs)
	assert.Equal(t, 30000, NewWaitTool(nil, Config{}).Capabilities().TimeoutMs)
	assert.Equal(t, 45000, NewAuditTool(nil, Config{}).Capabilities().TimeoutMs)
}

func TestCapabilitiesAdvertiseAuth(t *testing.T) {
	// None of the built-in tools require auth, but the flag must still
	// show up in descriptors so callers can rely on its presence.
	raw, err := json.Marshal(NewNavigateTool(nil, Config{}).Capabilities())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"requiresAuth":false`)
}
