package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "compliagent",
	Short: "AI-assisted compliance document intake and diagnosis",
	Long: `Compliagent ingests compliance documents, extracts the operational
facts they contain with an LLM, and diagnoses them against a knowledge
base of regulatory rules. It runs as a web service with a staged
review workflow, or as a one-shot analyzer from the command line.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".compliagent.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
