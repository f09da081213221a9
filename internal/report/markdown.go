package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/sfecr/compliagent/internal/analyst"
)

// riskLabels maps risk levels to the Chinese grading labels used in the
// rendered report.
var riskLabels = map[analyst.RiskLevel]string{
	analyst.RiskHigh:   "严重违规",
	analyst.RiskMedium: "管理瑕疵",
	analyst.RiskLow:    "优化建议",
}

// RenderMarkdown produces the report document for a snapshot.
func RenderMarkdown(snap *Snapshot) string {
	var sb strings.Builder

	sb.WriteString("# 合规诊断报告\n\n")
	if snap.FileName != "" {
		fmt.Fprintf(&sb, "- 分析对象：%s\n", snap.FileName)
	}
	fmt.Fprintf(&sb, "- 报告编号：%s\n", snap.ID)
	fmt.Fprintf(&sb, "- 生成时间：%s\n\n", snap.Timestamp.Format("2006-01-02 15:04:05"))

	d := snap.Diagnosis
	if d == nil {
		sb.WriteString("本次分析未产生诊断结果。\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "## 综合合规得分：%.0f / 100\n\n%s\n\n", d.Score, d.Summary)

	if len(d.RiskHeatmap) > 0 {
		sb.WriteString("## 风险热力分布\n\n")
		sb.WriteString("| 风险领域 | 风险值 |\n| --- | --- |\n")
		for _, cell := range d.RiskHeatmap {
			fmt.Fprintf(&sb, "| %s | %.0f |\n", cell.Category, cell.Value)
		}
		sb.WriteString("\n")
	}

	if len(d.Results) > 0 {
		sb.WriteString("## 诊断发现\n\n")
		for i, res := range d.Results {
			fmt.Fprintf(&sb, "### %d. %s（%s）\n\n", i+1, res.RiskTitle, riskLabels[res.RiskLevel])
			fmt.Fprintf(&sb, "- **现状**：%s\n", res.CurrentStatus)
			fmt.Fprintf(&sb, "- **合规依据**：%s\n", res.ComplianceBasis)
			fmt.Fprintf(&sb, "- **差距分析**：%s\n", res.GapAnalysis)
			fmt.Fprintf(&sb, "- **影响分析**：%s\n", res.ImpactAnalysis)
			fmt.Fprintf(&sb, "- **整改建议**：%s\n\n", res.Suggestion)
			if len(res.Roadmap) > 0 {
				sb.WriteString("整改路线图：\n\n")
				for j, step := range res.Roadmap {
					fmt.Fprintf(&sb, "%d. %s\n", j+1, step)
				}
				sb.WriteString("\n")
			}
		}
	}

	if len(snap.Entities) > 0 {
		sb.WriteString("## 确认的事实证据\n\n")
		sb.WriteString("| 类型 | 内容 | 原文线索 | 置信度 |\n| --- | --- | --- | --- |\n")
		for _, e := range snap.Entities {
			fmt.Fprintf(&sb, "| %s | %s | %s | %.2f |\n", e.Type, e.Value, e.Context, e.Confidence)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// RenderHTML converts a snapshot's markdown report to an HTML fragment.
func RenderHTML(snap *Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(snap)), &buf); err != nil {
		return "", fmt.Errorf("rendering report html: %w", err)
	}
	return buf.String(), nil
}
