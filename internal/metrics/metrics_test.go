package metrics

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.ConnectionAccepted()
	c.ConnectionAccepted()
	c.SessionCreated()
	c.SessionAttached()
	c.SessionBusy()
	c.SessionBusy()

	s := c.Snapshot()
	assert.EqualValues(t, 2, s.ConnectionsTotal)
	assert.EqualValues(t, 1, s.SessionsCreated)
	assert.EqualValues(t, 1, s.Attaches)
	assert.EqualValues(t, 2, c.BusyRejections())
	assert.EqualValues(t, 2, c.TotalConnections())
}

func TestCollector_Pumps(t *testing.T) {
	c := New()

	c.PumpStarted()
	c.PumpStarted()
	c.PumpStopped()
	assert.EqualValues(t, 1, c.ActivePumps())

	c.BytesToShell(1024)
	c.BytesToClient(512)
	c.BytesToShell(100)
	assert.EqualValues(t, 1124, c.TotalBytesToShell())
	assert.EqualValues(t, 512, c.TotalBytesToClient())
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	assert.EqualValues(t, 2, c.ErrorCount())
	s := c.Snapshot()
	assert.Equal(t, "second error", s.LastErrorMessage)
	assert.NotEmpty(t, s.LastError)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ConnectionAccepted()
		c.SessionCreated()
		c.SessionAttached()
		c.SessionBusy()
		c.PumpStarted()
		c.PumpStopped()
		c.BytesToShell(1)
		c.BytesToClient(1)
		c.RecordError("x")
	})
	assert.Zero(t, c.ActivePumps())
	assert.Zero(t, c.ErrorCount())
	assert.Equal(t, Snapshot{}, c.Snapshot())
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionCreated()
	c.BytesToClient(42)

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(c.JSON()), &s))
	assert.EqualValues(t, 1, s.SessionsCreated)
	assert.EqualValues(t, 42, s.BytesToClient)
	assert.Empty(t, s.LastError)
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.PumpStarted()
			c.BytesToShell(10)
			c.PumpStopped()
		}()
	}
	wg.Wait()

	assert.Zero(t, c.ActivePumps())
	assert.EqualValues(t, 500, c.TotalBytesToShell())
}
