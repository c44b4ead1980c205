// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Services are the stateful collaborators behind the profile tools.
// Any of them may be nil, in which case the tools that need it report an error.
type Services struct {
	Profiles   contract.ProfileStore
	Aggregator contract.MetricsAggregator
	Writer     contract.ProfileWriter
}

// wordTimingSchema describes one element of a word-timing array.
var wordTimingSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"word":  map[string]any{"type": "string"},
		"start": map[string]any{"type": "number", "description": "Start offset in seconds."},
		"end":   map[string]any{"type": "number", "description": "End offset in seconds."},
	},
	"required": []string{"word", "start", "end"},
}

// NewMCPServer initializes and configures the fluentgate MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"Fluentgate Assessment Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		svc:     svc,
	}

	// --- 1. Tool: analyze_confidence ---
	s.AddTool(mcp.NewTool("analyze_confidence",
		mcp.WithDescription("Score speaking confidence from word timestamps only (pauses, pace, recovery)."),
		mcp.WithArray("words", mcp.Description("Ordered word timings."), mcp.Items(wordTimingSchema), mcp.Required()),
		mcp.WithNumber("duration_seconds", mcp.Description("Total speaking duration. Defaults to the span of the words.")),
	), h.handleAnalyzeConfidence)

	// --- 2. Tool: detect_lexical_ceiling ---
	s.AddTool(mcp.NewTool("detect_lexical_ceiling",
		mcp.WithDescription("Find overused vocabulary that keeps a speaker below the tiers above their current one."),
		mcp.WithString("transcript", mcp.Description("Transcript text to scan."), mcp.Required()),
		mcp.WithString("current_tier", mcp.Description("Speaker's current CEFR tier. Defaults to the configured default tier."),
			mcp.Enum("A1", "A2", "B1", "B2", "C1", "C2")),
	), h.handleDetectLexicalCeiling)

	// --- 3. Tool: analyze_transcript ---
	s.AddTool(mcp.NewTool("analyze_transcript",
		mcp.WithDescription("Run the full offline analysis of a transcript: confidence, fluency estimate, weaknesses and lexical blockers."),
		mcp.WithArray("words", mcp.Description("Ordered word timings."), mcp.Items(wordTimingSchema), mcp.Required()),
		mcp.WithString("text", mcp.Description("Transcript text. Defaults to the joined words.")),
		mcp.WithNumber("duration_seconds", mcp.Description("Total speaking duration. Defaults to the span of the words.")),
		mcp.WithString("current_tier", mcp.Description("Speaker's current CEFR tier."), mcp.Enum("A1", "A2", "B1", "B2", "C1", "C2")),
	), h.handleAnalyzeTranscript)

	// --- 4. Tool: evaluate_promotion ---
	s.AddTool(mcp.NewTool("evaluate_promotion",
		mcp.WithDescription("Evaluate every promotion gate for a user against their recent practice without changing the profile."),
		mcp.WithString("user_id", mcp.Description("Canonical user id."), mcp.Required()),
		mcp.WithBoolean("advise_demotion", mcp.Description("Also report the advisory inactivity demotion check.")),
	), h.handleEvaluatePromotion)

	// --- 5. Tool: get_profile ---
	s.AddTool(mcp.NewTool("get_profile",
		mcp.WithDescription("Fetch the stored fluency profile of a user, including the audit trail."),
		mcp.WithString("user_id", mcp.Description("Canonical user id."), mcp.Required()),
	), h.handleGetProfile)

	// --- 6. Tool: update_profile ---
	s.AddTool(mcp.NewTool("update_profile",
		mcp.WithDescription("Submit a finished practice result through the gated profile write path."),
		mcp.WithString("user_id", mcp.Description("Caller user id; resolved to the canonical id."), mcp.Required()),
		mcp.WithString("modality", mcp.Description("Practice modality."), mcp.Enum("live", "interactive", "drill"), mcp.Required()),
		mcp.WithNumber("word_count", mcp.Description("Words spoken in the practice."), mcp.Required()),
		mcp.WithString("raw_tier", mcp.Description("Caller's tier estimate. Recorded for audit only.")),
		mcp.WithNumber("raw_score", mcp.Description("Caller's fluency score.")),
		mcp.WithNumber("confidence_score", mcp.Description("Confidence score 0-100.")),
		mcp.WithString("confidence_band", mcp.Description("Confidence band."), mcp.Enum("Low", "Medium", "High")),
		mcp.WithString("confidence_explanation", mcp.Description("Human-readable confidence explanation.")),
		mcp.WithString("session_ref", mcp.Description("Reference of the practice session.")),
	), h.handleUpdateProfile)

	return s
}

// StartMCPServer starts the fluentgate MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, svc Services) error {
	s := NewMCPServer(baseCfg, svc)
	return server.ServeStdio(s)
}
