package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/mixaill76/ai-firewall/internal/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConns(n int) []connection.Connection {
	conns := make([]connection.Connection, n)
	for i := range conns {
		conns[i] = connection.Connection{
			ConnectionID:    "c",
			SourceIP:        "1.1.1.1",
			DestinationIP:   "8.8.8.8",
			DestinationPort: 80,
			Protocol:        connection.ProtocolTCP,
		}
	}
	return conns
}

func TestMockAnalyzeEmptyBatch(t *testing.T) {
	m := NewMock(0, 0, nil)
	scores, err := m.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestMockAnalyzeReturnsScoresInRange(t *testing.T) {
	m := NewMock(0, 0, nil)
	scores, err := m.Analyze(context.Background(), testConns(5))
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestMockAnalyzeAlwaysErrors(t *testing.T) {
	m := NewMock(0, 1.0, nil)
	_, err := m.Analyze(context.Background(), testConns(1))
	assert.Error(t, err)
}

func TestMockAnalyzeRespectsContextCancellation(t *testing.T) {
	m := NewMock(time.Second, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Analyze(ctx, testConns(1))
	assert.Error(t, err)
}
