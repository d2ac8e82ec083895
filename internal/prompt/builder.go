package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"grantwright/internal/types"
)

// Warnings the builder can add to a result.
const (
	WarnNoGrantMetadata = "Grant metadata unavailable; prompt will rely solely on context chunks."
	WarnNoContext       = "Prompt will be generated without supporting context chunks."
)

const (
	framingLine = "You are a grant-writing assistant. Produce clear, factual prose grounded in the supplied context. Cite source IDs inline where appropriate."

	deliverableLine = "Deliverable: Write the requested section in 3-5 paragraphs. Stay truthful to the context. If missing information, state the gap instead of guessing."
)

// BuildResult is the rendered prompt plus the chunk ids it actually used.
type BuildResult struct {
	Prompt       string
	UsedChunkIDs []string
	Warnings     []string
}

// Build renders a prompt with the default instruction corpus.
func Build(gc *types.GenerationContext, section types.SectionKind) BuildResult {
	return defaultCorpus.Build(gc, section)
}

// Build renders the prompt for one section. The result warnings start from
// the context's accumulated warnings and grow with any the builder adds, so
// callers can treat them as the complete warning set for the section so far.
func (c *Corpus) Build(gc *types.GenerationContext, section types.SectionKind) BuildResult {
	warnings := append([]string{}, gc.Warnings...)

	var header []string
	header = append(header, framingLine)

	if gc.Grant != nil {
		g := gc.Grant
		header = append(header, "Grant metadata:")
		header = append(header, "- Organization: "+orNA(g.OrganizationName))
		header = append(header, "- Project title: "+orNA(g.ProjectTitle))
		header = append(header, "- Grantor: "+orNA(g.GrantorName))
		header = append(header, "- Funding amount: "+fundingOrNA(g.FundingAmount))
		if g.ProjectDescription != "" {
			header = append(header, "- Project description: "+g.ProjectDescription)
		}
	} else {
		warnings = append(warnings, WarnNoGrantMetadata)
	}

	chunkLines := renderChunks(gc.Chunks)
	if len(chunkLines) == 0 {
		warnings = append(warnings, WarnNoContext)
	}

	prompt := strings.Join([]string{
		strings.Join(header, "\n"),
		"",
		"Task: " + c.Instruction(section),
		"",
		"Context: ",
		strings.Join(chunkLines, "\n"),
		"",
		deliverableLine,
	}, "\n")

	return BuildResult{
		Prompt:       prompt,
		UsedChunkIDs: gc.ChunkIDs(),
		Warnings:     warnings,
	}
}

func renderChunks(chunks []types.ContextChunk) []string {
	lines := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		ref := ""
		if chunk.SourceRef != "" {
			ref = " (" + chunk.SourceRef + ")"
		}
		score := ""
		if chunk.RelevanceScore != nil {
			score = fmt.Sprintf(" [score: %.3f]", *chunk.RelevanceScore)
		}
		lines = append(lines, fmt.Sprintf("Chunk %d [%s%s]%s:\n%s", i+1, chunk.ID, ref, score, chunk.Content))
	}
	return lines
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func fundingOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
