// Package thought defines the thought record and its vocabularies.
//
// A Thought is one step of an agent's reasoning: free text plus a position in
// a planned sequence, a workflow Stage, a RiskLevel, a confidence score, and
// cross-reference lists (tags, files, tests, dependencies). Records are
// validated on construction and never mutated afterwards.
//
// Stages and risk levels accept loose input through ParseStage and
// ParseRiskLevel:
//
//	stage, err := thought.ParseStage("qa")        // StageTesting
//	risk, err := thought.ParseRiskLevel("HIGH")   // RiskHigh
//
// Record is the camelCase JSON form used by session files, exports, and
// tool responses.
package thought
