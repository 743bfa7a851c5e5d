package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// promptArgs reads prompt arguments. Missing and blank values are equivalent.
type promptArgs map[string]string

func (a promptArgs) get(name, fallback string) string {
	if v := strings.TrimSpace(a[name]); v != "" {
		return a[name]
	}
	return fallback
}

func (a promptArgs) list(name, fallback string) string {
	items := listArg(a[name])
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

// stagePrompt is a stage-specific prompt template.
type stagePrompt struct {
	name        string
	description string
	persona     string
	args        []*mcp.PromptArgument
	render      func(promptArgs) (string, error)
}

var stagePrompts = []stagePrompt{
	{
		name:        "scoping_prompt",
		description: "Keeps scoping thoughts grounded.",
		persona: "You are a planning assistant who ensures coding work starts with a clear scope, " +
			"definition of done, and success metrics.",
		args: []*mcp.PromptArgument{
			{Name: "problem_statement", Description: "The problem to scope", Required: true},
			{Name: "constraints", Description: "Known constraints"},
		},
		render: func(a promptArgs) (string, error) {
			return "Problem Statement:\n" +
				a["problem_statement"] + "\n\n" +
				"Known constraints: " + a.get("constraints", "n/a") + "\n" +
				"Clarify:\n" +
				"1. Desired outcome and non-goals.\n" +
				"2. Risks or unknowns that require spikes.\n" +
				"3. Metrics or signals that prove the work is finished.", nil
		},
	},
	{
		name:        "research_prompt",
		description: "Accelerates research and spike stages.",
		persona: "You are a technical researcher providing lightweight spikes and references " +
			"before implementation begins.",
		args: []*mcp.PromptArgument{
			{Name: "hypothesis", Description: "Hypothesis or question to investigate", Required: true},
			{Name: "repo_context", Description: "Relevant repository context"},
			{Name: "blocking_dependencies", Description: "Known blockers or dependencies"},
		},
		render: func(a promptArgs) (string, error) {
			return "Hypothesis/Question:\n" + a["hypothesis"] + "\n\n" +
				"Repo context: " + a.get("repo_context", "not provided") + "\n" +
				"Known blockers/dependencies: " + a.get("blocking_dependencies", "none") + "\n" +
				"Respond with:\n" +
				"- Key docs or code paths to inspect\n" +
				"- Proof-of-concept notes or pseudocode\n" +
				"- Open questions to answer before coding", nil
		},
	},
	{
		name:        "implementation_prompt",
		description: "Focuses implementation planning.",
		persona:     "You help Codex map implementation steps into sequenced commits.",
		args: []*mcp.PromptArgument{
			{Name: "plan_outline", Description: "Outline of the implementation plan", Required: true},
			{Name: "files_targeted", Description: "Files or areas targeted, comma separated or a JSON array"},
			{Name: "risk_level", Description: "Risk level: low, medium or high"},
		},
		render: func(a promptArgs) (string, error) {
			return "Implementation outline:\n" +
				a["plan_outline"] + "\n\n" +
				"Files/areas targeted: " + a.list("files_targeted", "not specified") + "\n" +
				"Risk level: " + a.get("risk_level", "medium") + "\n" +
				"Return:\n" +
				"- Ordered sub-tasks with owners/LLM tools\n" +
				"- Tests to run at the end\n" +
				"- Instrumentation/logging hooks if risk is high", nil
		},
	},
	{
		name:        "testing_prompt",
		description: "Keeps testing thoughts thorough.",
		persona:     "You are a test strategist ensuring coverage for recent changes.",
		args: []*mcp.PromptArgument{
			{Name: "feature_summary", Description: "Summary of the feature under test", Required: true},
			{Name: "tests_to_run", Description: "Planned tests, comma separated or a JSON array"},
			{Name: "risk_level", Description: "Risk level: low, medium or high"},
		},
		render: func(a promptArgs) (string, error) {
			return "Feature summary:\n" +
				a["feature_summary"] + "\n\n" +
				"Planned tests: " + a.list("tests_to_run", "derive from implementation diff") + "\n" +
				"Risk level: " + a.get("risk_level", "medium") + "\n" +
				"Deliver:\n" +
				"- Targeted unit/integration tests to execute now\n" +
				"- Regression areas to watch\n" +
				"- Data or fixtures needed for reproduction", nil
		},
	},
	{
		name:        "review_prompt",
		description: "Helps finalize the review stage.",
		persona:     "You conduct code reviews and bake in lessons for future Codex runs.",
		args: []*mcp.PromptArgument{
			{Name: "diff_summary", Description: "Summary of the diff under review", Required: true},
			{Name: "confidence_score", Description: "Confidence between 0 and 1 (default 0.5)"},
			{Name: "follow_up_items", Description: "Follow-up items"},
		},
		render: func(a promptArgs) (string, error) {
			score := 0.5
			if raw := strings.TrimSpace(a["confidence_score"]); raw != "" {
				f, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return "", fmt.Errorf("%w: confidence_score must be a number, got %q", ErrInvalidArgument, raw)
				}
				score = f
			}
			return "Diff summary:\n" +
				a["diff_summary"] + "\n\n" +
				"Confidence score: " + formatScore(score) + "\n" +
				"Follow-up items: " + a.get("follow_up_items", "none logged") + "\n" +
				"Summarize:\n" +
				"- Checklist for reviewers (tests, docs, migration notes)\n" +
				"- Items to carry into the next iteration (tech debt, monitoring)\n" +
				"- Final go/no-go recommendation", nil
		},
	},
}

func (s *Server) registerPrompts() {
	for _, p := range stagePrompts {
		s.mcp.AddPrompt(&mcp.Prompt{
			Name:        p.name,
			Description: p.description,
			Arguments:   p.args,
		}, s.promptHandler(p))
	}
}

func (s *Server) promptHandler(p stagePrompt) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		ctx, done := s.begin(ctx, p.name, "")

		text, err := p.renderRequest(req)
		done(err)
		if err != nil {
			return nil, err
		}
		s.logger.Debug(ctx, "prompt rendered", zap.Int("length", len(text)))

		return &mcp.GetPromptResult{
			Description: p.persona,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text}},
			},
		}, nil
	}
}

func (p stagePrompt) renderRequest(req *mcp.GetPromptRequest) (string, error) {
	var args promptArgs
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}
	for _, a := range p.args {
		if a.Required && strings.TrimSpace(args[a.Name]) == "" {
			return "", fmt.Errorf("%w: %s is required", ErrMissingArgument, a.Name)
		}
	}
	return p.render(args)
}

// formatScore renders whole numbers with one decimal place, so 1 prints
// as "1.0" and 0.75 as "0.75".
func formatScore(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
