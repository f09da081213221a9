package rulebase

import "github.com/sfecr/compliagent/internal/analyst"

// Categories lists the rule categories in display order. The first entry
// is the pseudo-category that matches everything.
var Categories = []string{CategoryAll, "风险控制", "财务管理", "投资决策", "安全生产", "科技创新"}

// CategoryAll matches every category when filtering.
const CategoryAll = "全部"

// SeedRules returns the built-in regulatory baseline the store starts
// with. Imported rules are layered on top of these.
func SeedRules() []analyst.Rule {
	return []analyst.Rule{
		{
			ID:       "SASAC-001",
			Category: "风险控制",
			Title:    "“三重一大”决策制度",
			Content:  "重大决策事项、重要人事任免、重大项目安排、大额资金运作必须经党委会前置研究讨论，并由董事会或经理办公会集体决策，严禁个人或少数人单独决定。",
			Source:   "《关于进一步推进国有企业贯彻落实“三重一大”决策制度的意见》",
		},
		{
			ID:       "SC-SASAC-003",
			Category: "投资决策",
			Title:    "省属企业投资项目负面清单管理",
			Content:  "省属企业开展非主业投资须履行专项核准程序，列入负面清单的禁止类项目一律不得投资，特别监管类项目须报国资监管机构履行出资人审核把关程序。",
			Source:   "《省属企业投资监督管理办法》",
		},
		{
			ID:       "FIN-002",
			Category: "财务管理",
			Title:    "资产负债率分类管控红线",
			Content:  "工业企业资产负债率预警线为65%、管控线为70%；超过管控线的企业原则上不得新增有息负债，须制定降杠杆减负债专项方案并按季度报告执行情况。",
			Source:   "《关于加强国有企业资产负债约束的指导意见》",
		},
		{
			ID:       "FIN-005",
			Category: "财务管理",
			Title:    "大额资金支付审批与资金集中管理",
			Content:  "子企业单笔超过500万元或年度累计超过净资产10%的资金支付，须经集团财务部门复核并履行集体决策程序；货币资金原则上归集至集团资金管理平台统一调度。",
			Source:   "《中央企业财务决算管理办法》及集团资金管理制度",
		},
		{
			ID:       "INV-004",
			Category: "投资决策",
			Title:    "投资项目后评价与责任追究",
			Content:  "重大投资项目投产运营满一年后须开展后评价；对违反规定程序决策造成国有资产损失的，依法依规追究相关责任人员的赔偿责任与纪律责任。",
			Source:   "《中央企业违规经营投资责任追究实施办法（试行）》",
		},
		{
			ID:       "SAFE-001",
			Category: "安全生产",
			Title:    "全员安全生产责任制",
			Content:  "企业应当建立覆盖全员的安全生产责任制，主要负责人是本单位安全生产第一责任人；高危作业场所须落实风险分级管控与隐患排查治理双重预防机制。",
			Source:   "《中华人民共和国安全生产法》",
		},
		{
			ID:       "TECH-001",
			Category: "科技创新",
			Title:    "研发投入强度刚性考核",
			Content:  "国有工业企业研发经费投入强度原则上不低于营业收入的3%，研发投入在经营业绩考核中视同利润加回，严禁通过调节研发费用归集口径虚增投入。",
			Source:   "《关于深化国有企业科技创新考核激励的通知》",
		},
		{
			ID:       "RISK-007",
			Category: "风险控制",
			Title:    "关联交易合规审查",
			Content:  "与控股股东、实际控制人及其关联方发生的交易须履行前置合规审查，定价应当公允并完整披露；关联董事在董事会审议相关议案时应当回避表决。",
			Source:   "《企业国有资产交易监督管理办法》",
		},
	}
}
