package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantwright/internal/pipeline"
	"grantwright/internal/types"
)

var (
	simulateGrantID  string
	simulateQuery    string
	simulateSections []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run retrieval and generation without persisting anything",
	Long: `Runs the retrieval and generation phases against the configured engine and
prints the result. No section or telemetry rows are written, so this is safe
for trying queries and prompt changes against live data.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateGrantID, "grant", "", "Grant id to retrieve context for")
	simulateCmd.Flags().StringVarP(&simulateQuery, "query", "q", "", "User request driving retrieval and generation")
	simulateCmd.Flags().StringSliceVar(&simulateSections, "sections", nil, "Comma-separated section names (default: all canonical sections)")
	simulateCmd.MarkFlagRequired("query")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	gc, err := a.retriever.Retrieve(ctx, simulateQuery, simulateGrantID, a.cfg.Retrieval.MatchCount, nil)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	fmt.Printf("Retrieved %d context chunk(s)\n", len(gc.Chunks))
	for i, chunk := range gc.Chunks {
		score := "n/a"
		if chunk.RelevanceScore != nil {
			score = fmt.Sprintf("%.3f", *chunk.RelevanceScore)
		}
		fmt.Printf("  %d. %s [%s] score=%s\n", i+1, chunk.ID, chunk.SourceType, score)
	}

	sections := parseSectionKinds(simulateSections)
	if len(sections) == 0 {
		sections = types.CanonicalSections
	}

	if a.engine == nil {
		fmt.Println("\nGeneration engine not configured (strategy \"none\"); skipping generation.")
		fmt.Println(pipeline.StubContent)
		return nil
	}

	draft, err := a.engine.GenerateAll(ctx, gc.Grant, gc.Chunks, sections)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	for _, section := range sections {
		d, ok := draft.Sections[section]
		if !ok {
			continue
		}
		fmt.Printf("\n=== %s ===\n%s\n", section, d.Content)
	}

	warnings := append(append([]string{}, gc.Warnings...), draft.Warnings...)
	if len(warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	return nil
}
