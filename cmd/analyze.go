package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/ingest"
	"github.com/sfecr/compliagent/internal/llm"
	"github.com/sfecr/compliagent/internal/progress"
	"github.com/sfecr/compliagent/internal/report"
	"github.com/sfecr/compliagent/internal/rulebase"
)

var (
	analyzeOutDir string
	analyzeHTML   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pattern>...",
	Short: "Run a one-shot compliance diagnosis over local documents",
	Long: `Analyzes the documents matching the given glob patterns without the
review workflow: each file is ingested, its operational facts are
extracted, and a diagnosis against the built-in rule base is rendered
as a markdown report.

Patterns support doublestar globs, e.g. "contracts/**/*.docx".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
		if err != nil {
			return fmt.Errorf("creating llm provider: %w", err)
		}
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)

		files, err := expandPatterns(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files match the given patterns")
		}

		if analyzeOutDir != "" {
			if err := os.MkdirAll(analyzeOutDir, 0755); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
		}

		a := analyst.New(provider, cfg.Model)
		rules := rulebase.SeedRules()

		reporter := progress.NewReporter()
		reporter.Start(len(files))

		ctx := cmd.Context()
		var failed int
		for i, path := range files {
			reporter.Update(i, filepath.Base(path))
			if err := analyzeFile(ctx, a, rules, path); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			}
			reporter.Update(i+1, filepath.Base(path))
		}
		reporter.Finish()

		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(files))
		}
		return nil
	},
}

// analyzeFile runs the full ingest, extract, diagnose pipeline for one
// document and writes the rendered report.
func analyzeFile(ctx context.Context, a *analyst.Analyst, rules []analyst.Rule, path string) error {
	payload, err := ingest.IngestFile(path, nil)
	if err != nil {
		return err
	}

	entities, err := a.ExtractEntities(ctx, payload)
	if err != nil {
		return err
	}

	diagnosis, err := a.Diagnose(ctx, "基于合规文件: "+payload.FileName, entities, rules)
	if err != nil {
		return err
	}

	snap := &report.Snapshot{
		FileName:  payload.FileName,
		Status:    report.StatusCompleted,
		Entities:  entities,
		Diagnosis: diagnosis,
	}

	var rendered string
	ext := ".md"
	if analyzeHTML {
		rendered, err = report.RenderHTML(snap)
		if err != nil {
			return err
		}
		ext = ".html"
	} else {
		rendered = report.RenderMarkdown(snap)
	}

	if analyzeOutDir == "" {
		fmt.Println(rendered)
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(analyzeOutDir, base+ext)
	if err := os.WriteFile(out, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// expandPatterns resolves glob patterns to a deduplicated file list,
// passing through plain paths untouched.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out", "o", "", "directory for rendered reports (default: stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeHTML, "html", false, "render reports as HTML instead of markdown")
	rootCmd.AddCommand(analyzeCmd)
}
