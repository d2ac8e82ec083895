package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantwright/internal/pipeline"
	"grantwright/internal/types"
)

var (
	generateGrantID    string
	generateSections   []string
	generateQuery      string
	generateMatchCount int
	generateEngine     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate proposal sections for a grant",
	Long: `Runs the full pipeline for each requested section: retrieve context for the
query, build the section prompt, generate content, and persist the results.

Sections always assemble in canonical order (executive_summary,
needs_statement, program_description, budget_overview); --sections filters
that order, and unknown section names run after the canonical ones.

Example:
  grantwright generate --grant 4f1c... --query "youth STEM program funding" --sections executive_summary,budget_overview`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateGrantID, "grant", "", "Grant id (a new grant record is created when omitted)")
	generateCmd.Flags().StringSliceVar(&generateSections, "sections", nil, "Comma-separated section names (default: all canonical sections)")
	generateCmd.Flags().StringVarP(&generateQuery, "query", "q", "", "User request driving retrieval and generation")
	generateCmd.Flags().IntVar(&generateMatchCount, "match-count", 0, "Maximum context chunks per section")
	generateCmd.Flags().StringVar(&generateEngine, "engine", "", "Generation strategy override: direct, debate, or none")
	generateCmd.MarkFlagRequired("query")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(generateEngine)
	if err != nil {
		return err
	}
	defer a.Close()

	req := pipeline.Request{
		UserRequest: generateQuery,
		GrantID:     generateGrantID,
		Sections:    parseSectionKinds(generateSections),
		MatchCount:  generateMatchCount,
	}

	logger.Info("starting proposal generation",
		zap.String("grant", req.GrantID),
		zap.Int("sections", len(req.Sections)))

	start := time.Now()
	result := pipeline.GenerateProposal(cmd.Context(), pipeline.Deps{
		Store:      a.store,
		Retriever:  a.retriever,
		Engine:     a.engine,
		MatchCount: a.cfg.Retrieval.MatchCount,
	}, req)
	elapsed := time.Since(start)

	printProposal(result)
	printSummary(result, elapsed)

	if allSectionsFailed(result) {
		return fmt.Errorf("all %d sections failed", len(result.Sections))
	}
	return nil
}

func parseSectionKinds(names []string) []types.SectionKind {
	var kinds []types.SectionKind
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			kinds = append(kinds, types.SectionKind(name))
		}
	}
	return kinds
}

func printProposal(result *pipeline.ProposalResult) {
	if result.FinalGrant != "" {
		fmt.Println(result.FinalGrant)
		fmt.Println()
	}

	// Failed sections don't appear in the document; report them explicitly.
	var failed []string
	for kind, sec := range result.Sections {
		if sec.Status == types.StatusError {
			msg := "unknown error"
			if sec.Err != nil {
				msg = sec.Err.Message
			}
			failed = append(failed, fmt.Sprintf("  %s: %s", kind, msg))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		fmt.Println("Failed sections:")
		for _, line := range failed {
			fmt.Println(line)
		}
		fmt.Println()
	}
}

func printSummary(result *pipeline.ProposalResult, elapsed time.Duration) {
	fmt.Println("=== SUMMARY ===")
	fmt.Printf("Sections: %d\n", len(result.Sections))
	fmt.Printf("Duration: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Context chunks: %d\n", len(result.ContextChunks))
	fmt.Printf("Warnings: %d\n", len(result.Warnings))
	for _, w := range result.Warnings {
		fmt.Printf("  - %s\n", w)
	}
}

func allSectionsFailed(result *pipeline.ProposalResult) bool {
	if len(result.Sections) == 0 {
		return false
	}
	for _, sec := range result.Sections {
		if sec.Status != types.StatusError {
			return false
		}
	}
	return true
}
