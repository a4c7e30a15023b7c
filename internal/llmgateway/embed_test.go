package llmgateway

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	calls int32
}

func (e *countingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *countingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *countingEngine) Dimensions() int { return 3 }
func (e *countingEngine) Name() string    { return "counting-engine" }

func TestEmbeddingGatewayCachesRepeatedText(t *testing.T) {
	s := openTestStore(t)
	engine := &countingEngine{}
	eg := NewEmbeddingGateway(s, engine, time.Hour, nil)

	v1, err := eg.Embed(context.Background(), "repeated chunk text")
	require.NoError(t, err)
	v2, err := eg.Embed(context.Background(), "repeated chunk text")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&engine.calls))
}

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.125}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
