package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ChainSummary is one driving chain as sent to Claude.
type ChainSummary struct {
	Index    int      `json:"index"` // 1-based
	Selected bool     `json:"selected"`
	Tasks    []string `json:"tasks"` // "ID: name" in chain order
	Duration float64  `json:"duration_days"`
}

// TaskFloat is a near-critical task and its float to the critical path.
type TaskFloat struct {
	Task  string  `json:"task"`
	Float float64 `json:"float_days"`
}

// ScheduleSummary is the analysis context sent to Claude for a narrative.
type ScheduleSummary struct {
	Mode         string         `json:"mode"`
	FinishTask   string         `json:"finish_task,omitempty"`
	TotalTasks   int            `json:"total_tasks"`
	Critical     int            `json:"critical"`
	Threshold    float64        `json:"near_critical_threshold_days"`
	Chains       []ChainSummary `json:"chains"`
	NearCritical []TaskFloat    `json:"near_critical,omitempty"`
}

// OpenEnd is a task missing predecessor or successor logic.
type OpenEnd struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Start          string `json:"start,omitempty"`
	Finish         string `json:"finish,omitempty"`
	NoPredecessors bool   `json:"no_predecessors"`
	NoSuccessors   bool   `json:"no_successors"`
}

// SuggestedLink is a single proposed relationship.
type SuggestedLink struct {
	Predecessor string `json:"predecessor"`
	Successor   string `json:"successor"`
	Type        string `json:"type"` // FS, SS, FF, SF
	Reason      string `json:"reason"`
}

// SuggestLinksResult holds the full response from Claude.
type SuggestLinksResult struct {
	Links   []SuggestedLink `json:"links"`
	Summary string          `json:"summary"`
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to Claude Sonnet.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.ModelClaudeSonnet4_6
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{inner: inner, model: m}, nil
}

const narratePrompt = `You are an experienced project scheduler explaining a critical path analysis to a project manager.

You will receive a JSON summary of the analysis: the calculation mode, the project finish task, every driving chain (the selected one is marked), and any near-critical tasks with their float in days.

Write a short narrative covering:
- What drives the project finish date, following the selected chain from start to finish.
- How the other driving chains differ and why they matter.
- Which near-critical tasks could become critical and how much slack they have.

Keep it to a few short paragraphs. Refer to tasks by ID and name. Do not invent tasks, dates or floats that are not in the summary.
`

// buildNarrativePrompt renders the user message for a narrative request.
func buildNarrativePrompt(s ScheduleSummary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return "## Analysis Summary\n\n" + string(data), nil
}

// NarrateChains sends the analysis summary to Claude and returns a
// human-readable explanation of what drives the schedule.
func (c *Client) NarrateChains(ctx context.Context, s ScheduleSummary) (string, error) {
	prompt, err := buildNarrativePrompt(s)
	if err != nil {
		return "", err
	}

	text, err := c.complete(ctx, narratePrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

const suggestLinksPrompt = `You are an expert project scheduler reviewing a schedule for missing logic. Every task except the project start should have a predecessor and every task except the project finish should have a successor.

Given the open-ended tasks below and the full task list for context, propose relationships that close the open ends.

Rules:
- Only propose a relationship when there is a strong practical reason.
- Prefer finish-to-start (FS) unless another type is clearly more appropriate.
- Do not create cycles.
- Only use task IDs from the provided lists.
- A task cannot depend on itself.

Return your answer as JSON with this exact structure:
{
  "links": [
    {"predecessor": "<task id>", "successor": "<task id>", "type": "FS|SS|FF|SF", "reason": "<short explanation>"}
  ],
  "summary": "<one paragraph summary of the missing logic>"
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.
`

// buildSuggestPrompt constructs the user message for link suggestions.
func buildSuggestPrompt(openEnds []OpenEnd, all []OpenEnd) (string, error) {
	ends, err := json.MarshalIndent(openEnds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal open ends: %w", err)
	}
	tasks, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tasks: %w", err)
	}
	return "## Open-ended tasks\n\n" + string(ends) + "\n\n## All tasks\n\n" + string(tasks), nil
}

// SuggestLinks asks Claude to propose relationships for open-ended tasks.
func (c *Client) SuggestLinks(ctx context.Context, openEnds []OpenEnd, all []OpenEnd) (*SuggestLinksResult, error) {
	prompt, err := buildSuggestPrompt(openEnds, all)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, suggestLinksPrompt, prompt)
	if err != nil {
		return nil, err
	}
	text = stripJSONFences(text)

	var result SuggestLinksResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}
	return &result, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(4096),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
