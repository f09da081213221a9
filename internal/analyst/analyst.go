package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sfecr/compliagent/internal/ingest"
	"github.com/sfecr/compliagent/internal/llm"
)

// Analyst wraps an LLM provider with the three compliance operations.
type Analyst struct {
	provider llm.Provider
	model    string
}

// New creates an Analyst backed by the given provider and model.
func New(provider llm.Provider, model string) *Analyst {
	return &Analyst{provider: provider, model: model}
}

// ExtractEntities pulls compliance elements from an ingested document.
// PDF payloads are attached inline for multimodal reading; extracted text
// goes into the prompt directly.
func (a *Analyst) ExtractEntities(ctx context.Context, payload *ingest.Payload) ([]ExtractedEntity, error) {
	var parts []llm.Part
	if payload.IsBinary() {
		parts = append(parts,
			llm.Part{InlineData: &llm.InlineData{Data: payload.Data, MIMEType: payload.MIMEType}},
			llm.Part{Text: binaryDocumentPrompt},
		)
	} else {
		parts = append(parts, llm.Part{Text: textDocumentPrompt(payload.Text)})
	}
	parts = append(parts, llm.Part{Text: extractionTaskPrompt})

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Parts: parts}},
		MaxTokens:   8192,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var entities []ExtractedEntity
	if err := parseJSON(resp.Content, &entities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := validateEntities(entities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return entities, nil
}

// Diagnose benchmarks the confirmed evidence against the rule base and
// returns a graded diagnosis. userInput may carry free-form supplementary
// instructions from the reviewer.
func (a *Analyst) Diagnose(ctx context.Context, userInput string, entities []ExtractedEntity, rules []Rule) (*Diagnosis, error) {
	entitiesContext := userInput
	if len(entities) > 0 {
		raw, err := json.Marshal(entities)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding evidence: %v", ErrDiagnosisFailed, err)
		}
		entitiesContext = "【确认的审计事实证据】：\n" + string(raw)
		if userInput != "" {
			entitiesContext += "\n" + userInput
		}
	}

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    []llm.Message{llm.TextMessage(llm.RoleUser, diagnosisPrompt(rulesContext(rules), entitiesContext))},
		MaxTokens:   8192,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosisFailed, err)
	}

	var diag Diagnosis
	if err := parseJSON(resp.Content, &diag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosisFailed, err)
	}
	if err := validateDiagnosis(&diag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosisFailed, err)
	}
	return &diag, nil
}

// InterpretRule reads regulation text and structures it as a rule entry.
func (a *Analyst) InterpretRule(ctx context.Context, text string) (*Rule, error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    []llm.Message{llm.TextMessage(llm.RoleUser, interpretationPrompt(text))},
		MaxTokens:   2048,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterpretationFailed, err)
	}

	var rule Rule
	if err := parseJSON(resp.Content, &rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterpretationFailed, err)
	}
	if !rule.Complete() {
		return nil, fmt.Errorf("%w: response missing required fields", ErrInterpretationFailed)
	}
	return &rule, nil
}

// parseJSON decodes an LLM JSON response, tolerating markdown code fences.
func parseJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		lines := strings.Split(raw, "\n")
		if len(lines) >= 2 {
			start := 1
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			raw = strings.Join(lines[start:end], "\n")
		}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("json parse: %w", err)
	}
	return nil
}

func validateEntities(entities []ExtractedEntity) error {
	for i, e := range entities {
		if !e.Type.Valid() {
			return fmt.Errorf("entity %d: unknown type %q", i, e.Type)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("entity %d: confidence %v out of range", i, e.Confidence)
		}
		if e.Value == "" {
			return fmt.Errorf("entity %d: empty value", i)
		}
	}
	return nil
}

func validateDiagnosis(d *Diagnosis) error {
	if d.Score < 0 || d.Score > 100 {
		return fmt.Errorf("score %v out of range", d.Score)
	}
	if d.Summary == "" {
		return fmt.Errorf("empty summary")
	}
	for i, r := range d.Results {
		if !r.RiskLevel.Valid() {
			return fmt.Errorf("result %d: unknown risk level %q", i, r.RiskLevel)
		}
		if r.RiskTitle == "" {
			return fmt.Errorf("result %d: empty risk title", i)
		}
	}
	if d.Results == nil {
		d.Results = []DiagnosisResult{}
	}
	return nil
}
