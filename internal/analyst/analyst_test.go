package analyst

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sfecr/compliagent/internal/ingest"
	"github.com/sfecr/compliagent/internal/llm"
)

// cannedProvider returns a fixed response and records the last request.
type cannedProvider struct {
	content string
	err     error
	last    llm.CompletionRequest
	calls   int
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.last = req
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.content, Model: req.Model}, nil
}

func TestExtractEntitiesFromText(t *testing.T) {
	provider := &cannedProvider{content: `[
		{"type":"ORG","value":"华东子公司","context":"合同甲方","confidence":0.95},
		{"type":"MONEY","value":"1.2亿元","context":"投资总额","confidence":0.9}
	]`}
	a := New(provider, "gemini-3-pro-preview")

	entities, err := a.ExtractEntities(context.Background(), &ingest.Payload{
		FileName: "contract.txt",
		Text:     "投资合作协议正文",
	})
	if err != nil {
		t.Fatalf("ExtractEntities: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Type != EntityOrg || entities[1].Type != EntityMoney {
		t.Errorf("unexpected entity types: %+v", entities)
	}

	if !provider.last.JSONMode {
		t.Error("extraction must request JSON mode")
	}
	prompt := provider.last.Messages[0].Text()
	if !strings.Contains(prompt, "投资合作协议正文") {
		t.Error("document text missing from prompt")
	}
	if !strings.Contains(prompt, "深度提取任务") {
		t.Error("extraction task missing from prompt")
	}
}

func TestExtractEntitiesAttachesPDF(t *testing.T) {
	provider := &cannedProvider{content: `[]`}
	a := New(provider, "gemini-3-pro-preview")

	_, err := a.ExtractEntities(context.Background(), &ingest.Payload{
		FileName: "report.pdf",
		Data:     "JVBERi0=",
		MIMEType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("ExtractEntities: %v", err)
	}
	if !provider.last.Messages[0].HasInlineData() {
		t.Error("pdf payload should be sent as inline data")
	}
}

func TestExtractEntitiesRejectsBadResponse(t *testing.T) {
	cases := map[string]string{
		"not json":       `the document mentions several organizations`,
		"unknown type":   `[{"type":"PERSON","value":"x","context":"y","confidence":0.5}]`,
		"bad confidence": `[{"type":"ORG","value":"x","context":"y","confidence":1.5}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			a := New(&cannedProvider{content: content}, "m")
			_, err := a.ExtractEntities(context.Background(), &ingest.Payload{Text: "x"})
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("expected ErrExtractionFailed, got %v", err)
			}
		})
	}
}

func TestExtractEntitiesStripsCodeFences(t *testing.T) {
	provider := &cannedProvider{content: "```json\n[{\"type\":\"RISK\",\"value\":\"越权审批\",\"context\":\"第三条\",\"confidence\":0.8}]\n```"}
	a := New(provider, "m")

	entities, err := a.ExtractEntities(context.Background(), &ingest.Payload{Text: "x"})
	if err != nil {
		t.Fatalf("ExtractEntities: %v", err)
	}
	if len(entities) != 1 || entities[0].Type != EntityRisk {
		t.Errorf("unexpected entities: %+v", entities)
	}
}

func TestDiagnoseBuildsContext(t *testing.T) {
	provider := &cannedProvider{content: `{
		"score": 62,
		"summary": "存在程序性违规",
		"riskHeatmap": [{"category":"投资决策","value":80}],
		"results": [{
			"riskTitle": "未经董事会审议",
			"riskLevel": "HIGH",
			"currentStatus": "已签署",
			"complianceBasis": "[SASAC-001]",
			"gapAnalysis": "缺少决议",
			"impactAnalysis": "合同效力存疑",
			"suggestion": "补充审议",
			"roadmap": ["召开董事会", "备案"]
		}]
	}`}
	a := New(provider, "m")

	rules := []Rule{{ID: "SASAC-001", Title: "三重一大决策", Content: "重大事项须经集体决策"}}
	entities := []ExtractedEntity{{Type: EntityDecision, Value: "总经理单独签批", Context: "审批单", Confidence: 0.9}}

	diag, err := a.Diagnose(context.Background(), "", entities, rules)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diag.Score != 62 {
		t.Errorf("Score = %v", diag.Score)
	}
	if len(diag.Results) != 1 || diag.Results[0].RiskLevel != RiskHigh {
		t.Errorf("unexpected results: %+v", diag.Results)
	}

	prompt := provider.last.Messages[0].Text()
	if !strings.Contains(prompt, "[SASAC-001] 三重一大决策: 重大事项须经集体决策") {
		t.Error("rule base missing from prompt")
	}
	if !strings.Contains(prompt, "确认的审计事实证据") {
		t.Error("confirmed evidence missing from prompt")
	}
	if !strings.Contains(prompt, "总经理单独签批") {
		t.Error("entity value missing from prompt")
	}
}

func TestDiagnoseRejectsInvalidRiskLevel(t *testing.T) {
	provider := &cannedProvider{content: `{
		"score": 50, "summary": "s",
		"results": [{"riskTitle":"x","riskLevel":"CRITICAL","currentStatus":"","complianceBasis":"","gapAnalysis":"","impactAnalysis":"","suggestion":"","roadmap":[]}]
	}`}
	a := New(provider, "m")

	_, err := a.Diagnose(context.Background(), "input", nil, nil)
	if !errors.Is(err, ErrDiagnosisFailed) {
		t.Errorf("expected ErrDiagnosisFailed, got %v", err)
	}
}

func TestInterpretRule(t *testing.T) {
	provider := &cannedProvider{content: `{
		"id": "FIN-009",
		"category": "财务管理",
		"title": "资金集中管理",
		"content": "子公司资金须归集至集团财务公司",
		"source": "集团资金管理办法"
	}`}
	a := New(provider, "m")

	rule, err := a.InterpretRule(context.Background(), "集团资金管理办法全文")
	if err != nil {
		t.Fatalf("InterpretRule: %v", err)
	}
	if rule.ID != "FIN-009" || rule.Category != "财务管理" {
		t.Errorf("unexpected rule: %+v", rule)
	}
}

func TestInterpretRuleRequiresAllFields(t *testing.T) {
	provider := &cannedProvider{content: `{"id":"X-1","category":"风险控制","title":"t","content":"c","source":""}`}
	a := New(provider, "m")

	_, err := a.InterpretRule(context.Background(), "text")
	if !errors.Is(err, ErrInterpretationFailed) {
		t.Errorf("expected ErrInterpretationFailed, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("规", 10)
	if got := truncateRunes(s, 4); got != "规规规规" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("short", 100); got != "short" {
		t.Errorf("truncateRunes = %q", got)
	}
}

func TestErrorCodes(t *testing.T) {
	if Code(ErrExtractionFailed) != "ExtractionFailed" {
		t.Error("ExtractionFailed code mismatch")
	}
	if Code(errors.New("other")) != "" {
		t.Error("unrelated errors must map to empty code")
	}
}
