// Package agent drives the investigation assistant: a bounded tool-calling
// loop that lets a language model search evidence, look up records and walk
// the knowledge graph before answering the player.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/detective-go/internal/metrics"
	"github.com/raphaelgruber/detective-go/internal/models"
)

// genericFailureMessage is all a player sees when the model call fails.
// Internal error text never reaches the conversation.
const genericFailureMessage = "I could not process your request. Please try again."

// cutShortNote is appended when the loop hits its iteration ceiling.
const cutShortNote = "(The investigation was cut short before all leads could be followed.)"

// DefaultMaxIterations bounds the reasoning/tool-execution cycle.
const DefaultMaxIterations = 8

// ModelClient is the language model surface the agent needs.
type ModelClient interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Options configures an agent service.
type Options struct {
	MaxIterations int
	HintBudget    int
}

// Service runs one conversation turn at a time. It holds no per-turn state;
// everything a turn needs travels in the RequestContext and locals.
type Service struct {
	model    ModelClient
	search   Searcher
	docs     DocumentStore
	entities EntityStore
	graph    GraphQuerier
	metrics  *metrics.Collector
	log      *slog.Logger

	maxIterations int
	hintBudget    int
}

// NewService creates an agent service. The graph querier and metrics
// collector are optional; without a graph the graph_query tool is withheld
// from the model.
func NewService(model ModelClient, search Searcher, docs DocumentStore, entities EntityStore, graphQuerier GraphQuerier, collector *metrics.Collector, log *slog.Logger, opts Options) *Service {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		model:         model,
		search:        search,
		docs:          docs,
		entities:      entities,
		graph:         graphQuerier,
		metrics:       collector,
		log:           log,
		maxIterations: opts.MaxIterations,
		hintBudget:    opts.HintBudget,
	}
}

// Chat runs one conversation turn for a case. The turn is self-contained:
// history, retrieved evidence and citations live only for this call.
func (s *Service) Chat(ctx context.Context, caseID string, req models.ChatRequest) (*models.ChatResponse, error) {
	rc := RequestContext{
		CaseID:         caseID,
		Language:       req.Language,
		ConversationID: req.ConversationID,
	}
	if rc.Language == "" {
		rc.Language = "en"
	}
	if rc.ConversationID == "" {
		rc.ConversationID = uuid.NewString()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(rc.Language)),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Message),
	}
	tools := s.toolDefinitions()

	var cited []citedItem
	usedTools := make(map[string]bool)
	var finalAnswer string
	var lastText string
	answered := false

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		genStart := time.Now()
		resp, err := s.model.GenerateContent(ctx, messages, llms.WithTools(tools))
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpLLMGenerate, time.Since(genStart))
		}
		if err != nil {
			s.log.Error("model call failed", "case", caseID,
				"conversation", rc.ConversationID, "iteration", iteration, "error", err)
			return s.failureResponse(rc), nil
		}
		if len(resp.Choices) == 0 {
			s.log.Error("model returned no choices", "case", caseID, "conversation", rc.ConversationID)
			return s.failureResponse(rc), nil
		}

		choice := resp.Choices[0]
		if choice.Content != "" {
			lastText = choice.Content
		}

		if len(choice.ToolCalls) == 0 {
			finalAnswer = choice.Content
			answered = true
			break
		}

		// Echo the assistant turn, tool calls included, back into history.
		assistantMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistantMsg.Parts = append(assistantMsg.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range choice.ToolCalls {
			assistantMsg.Parts = append(assistantMsg.Parts, call)
		}
		messages = append(messages, assistantMsg)

		for _, call := range choice.ToolCalls {
			start := time.Now()
			payload := s.executeTool(ctx, rc, call, &cited)
			if s.metrics != nil {
				s.metrics.RecordTiming(metrics.OpAgentTool, time.Since(start))
			}
			if call.FunctionCall != nil {
				usedTools[call.FunctionCall.Name] = true
				s.log.Debug("tool executed", "case", caseID, "tool", call.FunctionCall.Name)
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       toolName(call),
					Content:    payload,
				}},
			})
		}
	}

	if !answered {
		// Iteration ceiling reached: answer with whatever the model said
		// last, flagged as incomplete.
		s.log.Warn("agent loop hit iteration ceiling", "case", caseID,
			"conversation", rc.ConversationID, "iterations", s.maxIterations)
		if lastText != "" {
			finalAnswer = lastText + "\n\n" + cutShortNote
		} else {
			finalAnswer = cutShortNote
		}
	}

	return &models.ChatResponse{
		Message:          finalAnswer,
		Citations:        buildCitations(cited),
		ConversationID:   rc.ConversationID,
		SuggestedActions: suggestActions(usedTools, s.graph != nil),
		HintsRemaining:   s.hintBudget,
	}, nil
}

func (s *Service) failureResponse(rc RequestContext) *models.ChatResponse {
	return &models.ChatResponse{
		Message:          genericFailureMessage,
		Citations:        []models.Citation{},
		ConversationID:   rc.ConversationID,
		SuggestedActions: []string{},
		HintsRemaining:   s.hintBudget,
	}
}

func toolName(call llms.ToolCall) string {
	if call.FunctionCall == nil {
		return ""
	}
	return call.FunctionCall.Name
}
