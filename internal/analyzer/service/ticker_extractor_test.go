package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFindsUppercaseToken(t *testing.T) {
	ai := &stubAI{extractFn: func(ctx context.Context, text string) (string, error) {
		t.Fatal("fallback must not be called when pattern matching succeeds")
		return "", nil
	}}
	extractor := NewTickerExtractor(testLogger(t), ai)

	candidate, err := extractor.Extract(context.Background(), "What's happening with PLTR?")
	require.NoError(t, err)
	assert.Equal(t, "PLTR", candidate.Symbol)
	assert.False(t, candidate.FromModel)
}

func TestExtractSkipsCommonWords(t *testing.T) {
	ai := &stubAI{}
	extractor := NewTickerExtractor(testLogger(t), ai)

	candidate, err := extractor.Extract(context.Background(), "BUY AAPL NOW")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", candidate.Symbol)
}

func TestExtractAllowsDigitsInSymbol(t *testing.T) {
	ai := &stubAI{}
	extractor := NewTickerExtractor(testLogger(t), ai)

	candidate, err := extractor.Extract(context.Background(), "thoughts on BF2?")
	require.NoError(t, err)
	assert.Equal(t, "BF2", candidate.Symbol)
}

func TestExtractFallsBackToModel(t *testing.T) {
	ai := &stubAI{extractFn: func(ctx context.Context, text string) (string, error) {
		return "TSLA", nil
	}}
	extractor := NewTickerExtractor(testLogger(t), ai)

	candidate, err := extractor.Extract(context.Background(), "how is the electric car maker founded by elon doing")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", candidate.Symbol)
	assert.True(t, candidate.FromModel)
}

func TestExtractFailsWhenBothMethodsMiss(t *testing.T) {
	ai := &stubAI{extractFn: func(ctx context.Context, text string) (string, error) {
		return "", fmt.Errorf("no ticker symbol identified in text")
	}}
	extractor := NewTickerExtractor(testLogger(t), ai)

	_, err := extractor.Extract(context.Background(), "what should i do with my savings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ticker candidate")
}
