package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/analysis"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// Tool names.
const (
	ToolProcessThought     = "process_thought"
	ToolGenerateSummary    = "generate_summary"
	ToolClearHistory       = "clear_history"
	ToolExportSession      = "export_session"
	ToolImportSession      = "import_session"
	ToolGetThoughtsByStage = "get_thoughts_by_stage"
)

// processThoughtInput documents the process_thought arguments. Only thought
// is typed: the rest accept strings, numbers or lists and are coerced by
// parseProcessArgs.
type processThoughtInput struct {
	Thought               string `json:"thought" jsonschema:"The content of the thought"`
	ThoughtNumber         any    `json:"thought_number,omitempty" jsonschema:"Position in the sequence, starting at 1"`
	TotalThoughts         any    `json:"total_thoughts,omitempty" jsonschema:"Expected total number of thoughts"`
	NextThoughtNeeded     any    `json:"next_thought_needed,omitempty" jsonschema:"Whether more thoughts are needed after this one"`
	Stage                 any    `json:"stage,omitempty" jsonschema:"Coding stage: Scoping, Research & Spike, Implementation, Testing or Review"`
	Tags                  any    `json:"tags,omitempty" jsonschema:"Keywords or categories for the thought"`
	AxiomsUsed            any    `json:"axioms_used,omitempty" jsonschema:"Principles or axioms applied"`
	AssumptionsChallenged any    `json:"assumptions_challenged,omitempty" jsonschema:"Assumptions being questioned"`
	FilesTouched          any    `json:"files_touched,omitempty" jsonschema:"Files or modules referenced"`
	TestsToRun            any    `json:"tests_to_run,omitempty" jsonschema:"Tests to execute for this step"`
	Dependencies          any    `json:"dependencies,omitempty" jsonschema:"Blocking dependencies or prerequisites"`
	RiskLevel             any    `json:"risk_level,omitempty" jsonschema:"Risk level: low, medium or high"`
	ConfidenceScore       any    `json:"confidence_score,omitempty" jsonschema:"Confidence between 0 and 1"`
	ProjectID             any    `json:"project_id,omitempty" jsonschema:"Project to record into; also becomes the default project"`
	LegacyKwargs          any    `json:"legacy_kwargs,omitempty" jsonschema:"camelCase arguments from older clients, as an object or JSON string"`
	ExtraKwargs           any    `json:"extra_kwargs,omitempty" jsonschema:"Additional camelCase arguments, as an object or JSON string"`
}

// ProjectInput selects a project; empty means the default project.
type ProjectInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project to operate on (default: the current default project)"`
}

// FileInput names a file for export or import.
type FileInput struct {
	FilePath  string `json:"file_path" jsonschema:"Path of the session file"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project to operate on (default: the current default project)"`
}

// StageInput selects a stage.
type StageInput struct {
	Stage     string `json:"stage" jsonschema:"Coding stage to filter by"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project to operate on (default: the current default project)"`
}

// StatusOutput is returned by tools that only report success.
type StatusOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StageOutput lists the thoughts recorded in one stage.
type StageOutput struct {
	Stage    string           `json:"stage"`
	Count    int              `json:"count"`
	Thoughts []thought.Record `json:"thoughts"`
}

type errorOutput struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func processThoughtSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[processThoughtInput](nil)
	if err != nil {
		return nil, err
	}
	// Undeclared keys are legacy arguments.
	schema.AdditionalProperties = nil
	return schema, nil
}

func (s *Server) registerTools() error {
	schema, err := processThoughtSchema()
	if err != nil {
		return fmt.Errorf("process_thought schema: %w", err)
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolProcessThought,
		Description: "Add a sequential thought with its coding metadata and return an analysis " +
			"of it against the project history. Accepts camelCase legacy arguments.",
		InputSchema: schema,
	}, s.handleProcessThought)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGenerateSummary,
		Description: "Generate a summary of the thinking process for a project.",
	}, s.handleGenerateSummary)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolClearHistory,
		Description: "Clear the thought history for a project.",
	}, s.handleClearHistory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolExportSession,
		Description: "Export a project's thinking session to a file.",
	}, s.handleExportSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolImportSession,
		Description: "Import a thinking session from a file, replacing the project's history.",
	}, s.handleImportSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGetThoughtsByStage,
		Description: "List the thoughts recorded in one coding stage.",
	}, s.handleGetThoughtsByStage)

	return nil
}

func (s *Server) handleProcessThought(ctx context.Context, req *mcp.CallToolRequest, raw map[string]any) (*mcp.CallToolResult, any, error) {
	args, parseErr := parseProcessArgs(raw)
	ctx, done := s.begin(ctx, ToolProcessThought, args.ProjectID)

	out, err := s.processThought(ctx, req, args, parseErr)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}
	return nil, out, nil
}

func (s *Server) processThought(ctx context.Context, req *mcp.CallToolRequest, args processArgs, parseErr error) (*analysis.Analysis, error) {
	if parseErr != nil {
		return nil, parseErr
	}

	s.notifyProgress(ctx, req, args.Params.Number-1, args.Params.Total)

	if args.ProjectID != "" {
		if err := s.store.SetDefaultProject(ctx, args.ProjectID); err != nil {
			return nil, err
		}
	}

	t, err := thought.New(args.Params)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, t, args.ProjectID); err != nil {
		return nil, err
	}
	all, err := s.store.All(ctx, args.ProjectID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "thought processed",
		zap.Int("thought_number", t.Number),
		zap.String("stage", t.Stage.String()),
		zap.Int("history", len(all)),
	)
	return analysis.Analyze(t, all), nil
}

func (s *Server) handleGenerateSummary(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, ToolGenerateSummary, in.ProjectID)

	all, err := s.store.All(ctx, in.ProjectID)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}

	result := analysis.Summarize(all)
	if result.Degraded() {
		s.logger.Warn(ctx, "summary degraded", zap.Int("thoughts", result.TotalThoughts), zap.String("error", result.Error))
	}
	return nil, result, nil
}

func (s *Server) handleClearHistory(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, ToolClearHistory, in.ProjectID)

	err := s.store.Clear(ctx, in.ProjectID)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}
	return nil, StatusOutput{Status: "success", Message: "Thought history cleared"}, nil
}

func (s *Server) handleExportSession(ctx context.Context, _ *mcp.CallToolRequest, in FileInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, ToolExportSession, in.ProjectID)

	err := s.store.Export(ctx, in.FilePath, in.ProjectID)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}
	return nil, StatusOutput{Status: "success", Message: "Session exported to " + in.FilePath}, nil
}

func (s *Server) handleImportSession(ctx context.Context, _ *mcp.CallToolRequest, in FileInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, ToolImportSession, in.ProjectID)

	err := s.store.Import(ctx, in.FilePath, in.ProjectID)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}
	return nil, StatusOutput{Status: "success", Message: "Session imported from " + in.FilePath}, nil
}

func (s *Server) handleGetThoughtsByStage(ctx context.Context, _ *mcp.CallToolRequest, in StageInput) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, ToolGetThoughtsByStage, in.ProjectID)

	out, err := s.thoughtsByStage(ctx, in)
	done(err)
	if err != nil {
		return toolError(err), nil, nil
	}
	return nil, out, nil
}

func (s *Server) thoughtsByStage(ctx context.Context, in StageInput) (*StageOutput, error) {
	stage, err := thought.ParseStage(in.Stage)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.ByStage(ctx, stage, in.ProjectID)
	if err != nil {
		return nil, err
	}
	records := make([]thought.Record, len(matches))
	for i, t := range matches {
		records[i] = t.Record()
	}
	return &StageOutput{Stage: stage.String(), Count: len(records), Thoughts: records}, nil
}

// notifyProgress reports progress when the client asked for it. Failures
// are logged and otherwise ignored.
func (s *Server) notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total int) {
	if req == nil || req.Session == nil || req.Params == nil {
		return
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return
	}
	err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      float64(progress),
		Total:         float64(total),
	})
	if err != nil {
		s.logger.Debug(ctx, "progress notification failed", zap.Error(err))
	}
}

// toolError renders err as a failed tool result.
func toolError(err error) *mcp.CallToolResult {
	body, mErr := json.Marshal(errorOutput{Error: err.Error(), Status: "failed"})
	if mErr != nil {
		body = []byte(`{"status":"failed"}`)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}
