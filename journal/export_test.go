package journal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSessionOrg(t *testing.T) {
	s := testSession("alice", "alice_sma-cross")
	s.OptValues = map[string]float64{"short_period": 5}

	var buf bytes.Buffer
	require.NoError(t, WriteSessionOrg(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "* SESSION: alice_sma-cross sma-cross AAPL")
	assert.Contains(t, out, ":RUN_ID:      run-1")
	assert.Contains(t, out, ":START_DATE:  2020-01-01")
	assert.Contains(t, out, ":EQUITY:      11000.00")
	assert.Contains(t, out, "| long_period | 30 |")
	assert.Contains(t, out, "** Optimized Values")
	assert.Contains(t, out, "| 1 | SHORT | 2020-01-10 | 2020-01-21 | 100.00 | EndOfData |")

	// sessions without stats or trades still render
	s.Stats, s.Trades, s.OptValues = nil, nil, nil
	buf.Reset()
	require.NoError(t, WriteSessionOrg(&buf, s))
	assert.NotContains(t, buf.String(), "Performance Summary")
	assert.NotContains(t, buf.String(), "** Trades")
}
