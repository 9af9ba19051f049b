package pipeline

import (
	"encoding/json"

	"github.com/fyrsmithlabs/researchd/internal/gh"
	"github.com/fyrsmithlabs/researchd/internal/proposal"
	"github.com/fyrsmithlabs/researchd/internal/search"
)

// PriorArt captures the outcome of the prior art search.
type PriorArt struct {
	Queries    []string     `json:"queries"`
	Findings   []gh.Finding `json:"findings"`
	Verdict    string       `json:"verdict"`
	Reasoning  string       `json:"reasoning"`
	TotalFound int          `json:"total_found"`
}

// State is the full run state threaded through the pipeline. Stages
// never mutate a State; they return an Update and the driver applies it
// to produce the next State.
type State struct {
	RunID       string `json:"run_id"`
	Idea        string `json:"idea"`
	AlphaOnly   bool   `json:"alpha_only"`
	Slug        string `json:"slug"`
	Instruments string `json:"instruments,omitempty"`

	CurrentStage StageName `json:"current_stage"`

	PlanningIteration     int    `json:"planning_iteration"`
	ShouldRestartPlanning bool   `json:"should_restart_planning"`
	RestartReason         string `json:"restart_reason,omitempty"`

	QualityScore  *float64 `json:"quality_score,omitempty"`
	FindingsCount *int     `json:"findings_count,omitempty"`

	ValidationErrors []string `json:"validation_errors,omitempty"`
	ValidationReport string   `json:"validation_report,omitempty"`
	RepairAttempts   int      `json:"repair_attempts"`

	ResearchPlan     string          `json:"research_plan,omitempty"`
	SearchQueries    []string        `json:"search_queries,omitempty"`
	WebResults       []search.Result `json:"web_results,omitempty"`
	PriorArt         *PriorArt       `json:"prior_art,omitempty"`
	CriticismSummary string          `json:"criticism_summary,omitempty"`

	RawProposal json.RawMessage    `json:"raw_proposal,omitempty"`
	Document    *proposal.Document `json:"document,omitempty"`

	ProposalPath string `json:"proposal_path,omitempty"`
	StatePath    string `json:"state_path,omitempty"`
	IssueURL     string `json:"issue_url,omitempty"`

	Error string `json:"error,omitempty"`
}

// Update is the delta a stage (or the router) returns. Nil fields leave
// the corresponding State field untouched; pointer fields allow setting
// a field to its zero value.
type Update struct {
	CurrentStage *StageName

	PlanningIteration     *int
	ShouldRestartPlanning *bool
	RestartReason         *string

	QualityScore  *float64
	FindingsCount *int

	ValidationErrors *[]string
	ValidationReport *string
	RepairAttempts   *int

	ResearchPlan     *string
	SearchQueries    []string
	WebResults       []search.Result
	PriorArt         *PriorArt
	CriticismSummary *string

	RawProposal json.RawMessage
	Document    *proposal.Document

	ProposalPath *string
	StatePath    *string
	IssueURL     *string

	Error *string
}

// Apply merges an update into a copy of the state and returns it. The
// receiver is never modified.
func (s State) Apply(u Update) State {
	next := s

	if u.CurrentStage != nil {
		next.CurrentStage = *u.CurrentStage
	}
	if u.PlanningIteration != nil {
		next.PlanningIteration = *u.PlanningIteration
	}
	if u.ShouldRestartPlanning != nil {
		next.ShouldRestartPlanning = *u.ShouldRestartPlanning
	}
	if u.RestartReason != nil {
		next.RestartReason = *u.RestartReason
	}
	if u.QualityScore != nil {
		next.QualityScore = u.QualityScore
	}
	if u.FindingsCount != nil {
		next.FindingsCount = u.FindingsCount
	}
	if u.ValidationErrors != nil {
		next.ValidationErrors = append([]string(nil), (*u.ValidationErrors)...)
	}
	if u.ValidationReport != nil {
		next.ValidationReport = *u.ValidationReport
	}
	if u.RepairAttempts != nil {
		next.RepairAttempts = *u.RepairAttempts
	}
	if u.ResearchPlan != nil {
		next.ResearchPlan = *u.ResearchPlan
	}
	if u.SearchQueries != nil {
		next.SearchQueries = append([]string(nil), u.SearchQueries...)
	}
	if u.WebResults != nil {
		next.WebResults = append([]search.Result(nil), u.WebResults...)
	}
	if u.PriorArt != nil {
		next.PriorArt = u.PriorArt
	}
	if u.CriticismSummary != nil {
		next.CriticismSummary = *u.CriticismSummary
	}
	if u.RawProposal != nil {
		next.RawProposal = append(json.RawMessage(nil), u.RawProposal...)
	}
	if u.Document != nil {
		next.Document = u.Document
	}
	if u.ProposalPath != nil {
		next.ProposalPath = *u.ProposalPath
	}
	if u.StatePath != nil {
		next.StatePath = *u.StatePath
	}
	if u.IssueURL != nil {
		next.IssueURL = *u.IssueURL
	}
	if u.Error != nil {
		next.Error = *u.Error
	}

	return next
}

// Pointer helpers for building updates.

func String(s string) *string      { return &s }
func Int(i int) *int               { return &i }
func Bool(b bool) *bool            { return &b }
func Float(f float64) *float64     { return &f }
func Strings(s []string) *[]string { return &s }
