package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/detective-go/internal/models"
	"github.com/raphaelgruber/detective-go/internal/service"
)

// fakeModel replays scripted responses; the last one repeats once the
// script runs out.
type fakeModel struct {
	responses []*llms.ContentResponse
	err       error
	calls     int
	histories [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.histories = append(f.histories, messages)
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func toolCallResponse(text string, calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text, ToolCalls: calls}}}
}

func newAgent(model ModelClient, search Searcher, graphQuerier GraphQuerier, opts Options) *Service {
	return NewService(model, search, &fakeDocStore{}, &fakeEntityStore{}, graphQuerier, nil, slog.Default(), opts)
}

func TestChatDirectAnswer(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		textResponse("Start by reading the briefing."),
	}}
	s := newAgent(model, &fakeSearcher{}, nil, Options{HintBudget: 3})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "Where do I start?"})
	require.NoError(t, err)

	assert.Equal(t, "Start by reading the briefing.", resp.Message)
	assert.Empty(t, resp.Citations)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, 3, resp.HintsRemaining)
	assert.Equal(t, 1, model.calls)

	// No tools were used, so every slot nudges toward one
	assert.Len(t, resp.SuggestedActions, 3)
	assert.Contains(t, resp.SuggestedActions[0], "searching")
}

func TestChatPreservesConversationID(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	s := newAgent(model, &fakeSearcher{}, nil, Options{})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{
		Message:        "hello",
		ConversationID: "conv-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-42", resp.ConversationID)
}

func TestChatToolLoopProducesCitations(t *testing.T) {
	search := &fakeSearcher{results: []service.SearchResult{
		{ChunkID: "ch1", DocumentID: "d1", Text: "Invoice 442 was edited after approval.",
			Score: 0.93, DocType: models.DocInvoice, TS: time.Now()},
		{ChunkID: "ch2", DocumentID: "d2", Text: "Payment went to a new account.",
			Score: 0.81, DocType: models.DocEmail, TS: time.Now()},
	}}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("", toolCall(toolSearchDocs, `{"query":"invoice edits"}`)),
		textResponse("Two documents look suspicious."),
	}}
	s := newAgent(model, search, nil, Options{HintBudget: 3})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "Any tampered invoices?"})
	require.NoError(t, err)

	assert.Equal(t, "Two documents look suspicious.", resp.Message)
	assert.Equal(t, 2, model.calls)

	require.Len(t, resp.Citations, 2)
	assert.Equal(t, "d1", resp.Citations[0].DocID)
	assert.Equal(t, "Invoice 442 was edited after approval.", resp.Citations[0].Quote)
	assert.Contains(t, resp.Citations[0].Relevance, "search_docs")
	assert.Contains(t, resp.Citations[0].Relevance, "0.93")
	assert.Equal(t, "d2", resp.Citations[1].DocID)

	// The second model call must see the tool result in history
	require.Len(t, model.histories, 2)
	last := model.histories[1][len(model.histories[1])-1]
	assert.Equal(t, llms.ChatMessageTypeTool, last.Role)

	// search was used, so the first suggestion skips it
	for _, s := range resp.SuggestedActions {
		assert.NotContains(t, s, "searching the evidence")
	}
}

func TestChatCitationDedupByDocument(t *testing.T) {
	search := &fakeSearcher{results: []service.SearchResult{
		{ChunkID: "ch1", DocumentID: "d1", Text: "First mention of the altered total.",
			Score: 0.9, DocType: models.DocEmail, TS: time.Now()},
		{ChunkID: "ch2", DocumentID: "d1", Text: "Second mention, different wording.",
			Score: 0.7, DocType: models.DocEmail, TS: time.Now()},
	}}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("", toolCall(toolSearchDocs, `{"query":"altered total"}`)),
		textResponse("done"),
	}}
	s := newAgent(model, search, nil, Options{})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "q"})
	require.NoError(t, err)

	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "d1", resp.Citations[0].DocID)
	assert.Equal(t, "First mention of the altered total.", resp.Citations[0].Quote)
	require.NotNil(t, resp.Citations[0].ChunkID)
	assert.Equal(t, "ch1", *resp.Citations[0].ChunkID)
}

func TestChatQuoteTruncation(t *testing.T) {
	longQuote := strings.Repeat("x", 500)
	search := &fakeSearcher{results: []service.SearchResult{
		{ChunkID: "ch1", DocumentID: "d1", Text: longQuote,
			Score: 0.9, DocType: models.DocEmail, TS: time.Now()},
	}}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("", toolCall(toolSearchDocs, `{"query":"q"}`)),
		textResponse("done"),
	}}
	s := newAgent(model, search, nil, Options{})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "q"})
	require.NoError(t, err)

	require.Len(t, resp.Citations, 1)
	assert.LessOrEqual(t, len(resp.Citations[0].Quote), maxQuoteLen+3)
}

func TestChatIterationCeiling(t *testing.T) {
	// The model never stops asking for tools
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("Still digging.", toolCall(toolSearchDocs, `{"query":"more"}`)),
	}}
	s := newAgent(model, &fakeSearcher{}, nil, Options{MaxIterations: 3})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "q"})
	require.NoError(t, err)

	assert.Equal(t, 3, model.calls)
	assert.Contains(t, resp.Message, "Still digging.")
	assert.Contains(t, resp.Message, "cut short")
}

func TestChatModelFailureDegrades(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream: rate limit exceeded")}
	s := newAgent(model, &fakeSearcher{}, nil, Options{HintBudget: 2})

	resp, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "q", ConversationID: "conv-9"})
	require.NoError(t, err)

	assert.Equal(t, genericFailureMessage, resp.Message)
	assert.NotContains(t, resp.Message, "rate limit")
	assert.Empty(t, resp.Citations)
	assert.Equal(t, "conv-9", resp.ConversationID)
	assert.Equal(t, 2, resp.HintsRemaining)
}

func TestChatSystemPromptCarriesLanguage(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	s := newAgent(model, &fakeSearcher{}, nil, Options{})

	_, err := s.Chat(context.Background(), "c1", models.ChatRequest{Message: "q", Language: "de"})
	require.NoError(t, err)

	require.NotEmpty(t, model.histories)
	first := model.histories[0][0]
	assert.Equal(t, llms.ChatMessageTypeSystem, first.Role)
	text := first.Parts[0].(llms.TextContent).Text
	assert.Contains(t, text, "German")
}

func TestSuggestActions(t *testing.T) {
	// Nothing used, graph available: all three capability nudges
	got := suggestActions(map[string]bool{}, true)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "searching")
	assert.Contains(t, got[1], "knowledge graph")
	assert.Contains(t, got[2], "person or organization")

	// Everything used: generic fallbacks fill all slots
	used := map[string]bool{
		toolSearchDocs: true, toolGetEntity: true, toolGraphQuery: true,
	}
	got = suggestActions(used, true)
	require.Len(t, got, 3)
	assert.Equal(t, genericSuggestions, got)

	// Partial use: one capability nudge, then fallbacks, still capped at 3
	got = suggestActions(map[string]bool{toolSearchDocs: true}, false)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "person or organization")
}
