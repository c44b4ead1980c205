package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/fluentgate/core"
	"github.com/huangsam/fluentgate/core/algo"
	"github.com/huangsam/fluentgate/internal/contract"
	"github.com/huangsam/fluentgate/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	svc     Services
}

// jsonResult renders data as indented JSON text.
func jsonResult(data any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(data, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

// tierArg parses an optional tier argument, defaulting to the configured tier.
func (h *toolHandler) tierArg(request mcp.CallToolRequest) (schema.Tier, error) {
	raw := request.GetString("current_tier", "")
	if raw == "" {
		return h.baseCfg.DefaultTier, nil
	}
	return schema.ParseTier(raw)
}

func (h *toolHandler) handleAnalyzeConfidence(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Words           []schema.WordTiming `json:"words"`
		DurationSeconds float64             `json:"duration_seconds"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	duration := args.DurationSeconds
	if duration <= 0 && len(args.Words) > 1 {
		duration = args.Words[len(args.Words)-1].End - args.Words[0].Start
	}
	return jsonResult(algo.AnalyzeConfidence(args.Words, duration)), nil
}

func (h *toolHandler) handleDetectLexicalCeiling(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcript, err := request.RequireString("transcript")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tier, err := h.tierArg(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid current_tier: %v", err)), nil
	}
	detections := algo.DetectAll(transcript, schema.TriggerTiersAbove(tier))
	if detections == nil {
		detections = []schema.LexicalDetection{}
	}
	return jsonResult(detections), nil
}

func (h *toolHandler) handleAnalyzeTranscript(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var t schema.Transcript
	if err := request.BindArguments(&t); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	tier, err := h.tierArg(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid current_tier: %v", err)), nil
	}
	return jsonResult(core.AnalyzeTranscript(t, tier)), nil
}

func (h *toolHandler) handleEvaluatePromotion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.svc.Profiles == nil || h.svc.Aggregator == nil {
		return mcp.NewToolResultError("profile store is not configured"), nil
	}
	userID, err := request.RequireString("user_id")
	if err != nil || userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	report, err := core.BuildPromotionReport(ctx, h.svc.Profiles, h.svc.Aggregator, userID,
		h.baseCfg.DefaultTier, time.Now().UTC(), request.GetBool("advise_demotion", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("promotion evaluation failed: %v", err)), nil
	}
	return jsonResult(report), nil
}

func (h *toolHandler) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.svc.Profiles == nil {
		return mcp.NewToolResultError("profile store is not configured"), nil
	}
	userID, err := request.RequireString("user_id")
	if err != nil || userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	profile, err := h.svc.Profiles.GetProfile(ctx, userID)
	if errors.Is(err, contract.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no profile for %s", userID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("profile lookup failed: %v", err)), nil
	}
	return jsonResult(profile), nil
}

func (h *toolHandler) handleUpdateProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.svc.Writer == nil {
		return mcp.NewToolResultError("profile store is not configured"), nil
	}
	var u schema.ProfileUpdate
	if err := request.BindArguments(&u); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if u.UserID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	if !slices.Contains(schema.AllModalities, u.Modality) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid modality %q", u.Modality)), nil
	}
	return jsonResult(h.svc.Writer.Update(ctx, u)), nil
}
