// Package analyst drives the AI collaborator: entity extraction from
// business documents, compliance diagnosis against the rule base, and
// interpretation of regulation text into structured rules.
package analyst

import "errors"

// EntityType classifies an extracted compliance element.
type EntityType string

const (
	EntityOrg      EntityType = "ORG"
	EntityDate     EntityType = "DATE"
	EntityMoney    EntityType = "MONEY"
	EntityClause   EntityType = "CLAUSE"
	EntityMetric   EntityType = "METRIC"
	EntityDecision EntityType = "DECISION"
	EntityRisk     EntityType = "RISK"
)

// Valid reports whether t is one of the seven recognized entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityOrg, EntityDate, EntityMoney, EntityClause, EntityMetric, EntityDecision, EntityRisk:
		return true
	}
	return false
}

// ExtractedEntity is one compliance-relevant fact pulled from a document.
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Context    string     `json:"context"`
	Confidence float64    `json:"confidence"`
}

// RiskLevel grades a diagnosed finding.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// Valid reports whether l is a recognized risk level.
func (l RiskLevel) Valid() bool {
	return l == RiskHigh || l == RiskMedium || l == RiskLow
}

// DiagnosisResult is a single finding in a compliance diagnosis.
type DiagnosisResult struct {
	RiskTitle       string    `json:"riskTitle"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	CurrentStatus   string    `json:"currentStatus"`
	ComplianceBasis string    `json:"complianceBasis"`
	GapAnalysis     string    `json:"gapAnalysis"`
	ImpactAnalysis  string    `json:"impactAnalysis"`
	Suggestion      string    `json:"suggestion"`
	Roadmap         []string  `json:"roadmap"`
}

// HeatmapCell is one category score in the risk heatmap.
type HeatmapCell struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Diagnosis is the complete output of a compliance diagnosis run.
type Diagnosis struct {
	Score       float64           `json:"score"`
	Summary     string            `json:"summary"`
	RiskHeatmap []HeatmapCell     `json:"riskHeatmap,omitempty"`
	Results     []DiagnosisResult `json:"results"`
}

// Rule is a structured knowledge-base entry. The interpreter produces
// these from raw regulation text; the rule store keeps them.
type Rule struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Source   string `json:"source"`
}

// Complete reports whether every field of the rule is populated.
func (r *Rule) Complete() bool {
	return r.ID != "" && r.Category != "" && r.Title != "" && r.Content != "" && r.Source != ""
}

// Typed analyst failures. Each wraps the underlying provider or parse
// error so callers can log the cause while mapping on the sentinel.
var (
	ErrExtractionFailed     = errors.New("entity extraction failed")
	ErrDiagnosisFailed      = errors.New("compliance diagnosis failed")
	ErrInterpretationFailed = errors.New("document interpretation failed")
)

// Code returns the wire identifier for a typed analyst error, or "".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrExtractionFailed):
		return "ExtractionFailed"
	case errors.Is(err, ErrDiagnosisFailed):
		return "DiagnosisFailed"
	case errors.Is(err, ErrInterpretationFailed):
		return "InterpretationFailed"
	default:
		return ""
	}
}
