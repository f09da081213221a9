package analyst

import (
	"fmt"
	"strings"
)

// Input bounds, in runes. Longer inputs are truncated before prompting so
// a single oversized document cannot blow the context window.
const (
	maxExtractionInput     = 35000
	maxInterpretationInput = 20000
)

const extractionTaskPrompt = `【深度提取任务】
请从文档中精准识别并分类以下合规要素：
1. ORG (组织机构): 涉及的子公司、关联方、供应商、监管机构。
2. DATE (时间节点): 合同签署/到期、审计期、会议日期。
3. MONEY (财务金额): 交易金额、投资额、研发强度、评估价值。
4. CLAUSE (核心条款): 法律红线、违约责任、一票否决权、排他性条款。
5. METRIC (监管指标): 资产负债率、研发投入占比、能源消耗指标。
6. DECISION (决策层级): 识别事项是否经过党委会、董事会或经理办公会，是否符合“三重一大”流程。
7. RISK (潜在风险点): 文档中暗示的程序瑕疵、越权审批、利益冲突或国有资产流失隐患。

【输出要求】
1. 以 JSON 数组格式返回。
2. 字段要求: type (大写枚举), value (具体事实), context (原文线索), confidence (0.0-1.0)。
3. 重点挖掘文档中隐含的合规冲突。`

const binaryDocumentPrompt = `请作为专业的国企合规审查专家，深度研读此文件，提取与经营管理合规相关的关键实体、核心条款、风险数据点，特别是涉及“三重一大”决策和国有资产安全的内容。`

func textDocumentPrompt(text string) string {
	return "分析以下文档文本内容并提取合规关键要素：\n" + truncateRunes(text, maxExtractionInput)
}

func diagnosisPrompt(rulesContext, entitiesContext string) string {
	return fmt.Sprintf(`你是一名服务于中国央国企的合规风险管理专家。请根据合规标准和提取的事实证据进行深度对标。

【对标标准库】：
%s

【审计事实】：
%s

【诊断要求】：
1. 必须穿透分析：挖掘表面数据背后的程序违规。
2. 风险定级：HIGH (严重违规), MEDIUM (瑕疵), LOW (建议)。
3. 必须给出具体整改路线图。

【输出要求】：
以 JSON 对象返回，字段为 score (0-100 数值), summary (字符串), riskHeatmap (数组，元素含 category 与 value), results (数组，元素含 riskTitle, riskLevel, currentStatus, complianceBasis, gapAnalysis, impactAnalysis, suggestion, roadmap)。`,
		rulesContext, entitiesContext)
}

func interpretationPrompt(text string) string {
	return fmt.Sprintf(`解读以下文件并结构化为规则条目。分类：'风险控制', '财务管理', '投资决策', '安全生产', '科技创新'。
以 JSON 对象返回，字段为 id, category, title, content, source。

%s`, truncateRunes(text, maxInterpretationInput))
}

// rulesContext renders the rule base as one line per rule for prompting.
func rulesContext(rules []Rule) string {
	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", r.ID, r.Title, r.Content))
	}
	return strings.Join(lines, "\n")
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
