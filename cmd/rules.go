package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sfecr/compliagent/internal/rulebase"
)

var (
	rulesCategory string
	rulesQuery    string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in compliance rule base",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := rulebase.NewStore(rulebase.SeedRules())

		rules := store.Filter(rulesQuery, rulesCategory)
		if len(rules) == 0 {
			fmt.Println("No rules match.")
			return nil
		}

		for _, rule := range rules {
			fmt.Printf("[%s] %s（%s）\n", rule.ID, rule.Title, rule.Category)
			fmt.Printf("    %s\n", rule.Content)
			fmt.Printf("    来源：%s\n\n", rule.Source)
		}
		fmt.Printf("%d rules.\n", len(rules))
		return nil
	},
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesCategory, "category", "c", "", "filter by category (e.g. 财务管理)")
	rulesCmd.Flags().StringVarP(&rulesQuery, "query", "q", "", "substring match on title and content")
	rootCmd.AddCommand(rulesCmd)
}
