package pipeline

import (
	"context"
	"strings"

	"grantwright/internal/logging"
	"grantwright/internal/types"
)

// WarnGrantCreateFailed is appended when a new grant record cannot be created;
// the proposal still runs against an empty grant scope.
const WarnGrantCreateFailed = "Failed to create grant record."

// Request describes one proposal generation run.
type Request struct {
	UserRequest string
	GrantID     string
	Sections    []types.SectionKind
	MatchCount  int
	Overrides   []types.ContextChunk
}

// ProposalResult is the assembled outcome of a proposal run.
type ProposalResult struct {
	FinalGrant    string
	Sections      map[types.SectionKind]types.SectionResult
	ContextChunks []types.ContextChunk
	Warnings      []string
}

// GenerateProposal runs every requested section strictly in sequence and
// assembles the final document. Section failures never abort the run.
func GenerateProposal(ctx context.Context, deps Deps, req Request) *ProposalResult {
	timer := logging.StartTimer(logging.CategoryPipeline, "GenerateProposal")
	defer timer.Stop()

	result := &ProposalResult{
		Sections: make(map[types.SectionKind]types.SectionResult),
	}

	grantID := req.GrantID
	if grantID == "" {
		id, err := deps.Store.CreateGrant(ctx, types.GrantMetadata{})
		if err != nil {
			logging.Pipeline("Grant creation failed: %v", err)
			result.Warnings = append(result.Warnings, WarnGrantCreateFailed)
		} else {
			grantID = id
			logging.Pipeline("Created grant %s for proposal run", grantID)
		}
	}

	deps.Query = req.UserRequest
	if req.MatchCount > 0 {
		deps.MatchCount = req.MatchCount
	}

	order := planSections(req.Sections)
	for _, section := range order {
		res, gc := generateSection(ctx, deps, grantID, section, req.Overrides)
		result.Sections[section] = res
		result.Warnings = append(result.Warnings, res.Warnings...)
		if result.ContextChunks == nil && gc != nil {
			result.ContextChunks = gc.Chunks
		}
	}

	result.FinalGrant = assembleDocument(order, result.Sections)
	logging.Pipeline("Proposal run complete: %d sections, %d warnings", len(order), len(result.Warnings))
	return result
}

// planSections maps the requested kinds onto the canonical assembly order.
// Requested kinds act as a filter, never a sequence; kinds outside the
// canonical set are appended afterwards in first-requested order.
func planSections(requested []types.SectionKind) []types.SectionKind {
	if len(requested) == 0 {
		return append([]types.SectionKind{}, types.CanonicalSections...)
	}

	want := make(map[types.SectionKind]bool, len(requested))
	for _, s := range requested {
		want[s] = true
	}

	var order []types.SectionKind
	for _, s := range types.CanonicalSections {
		if want[s] {
			order = append(order, s)
			delete(want, s)
		}
	}
	for _, s := range requested {
		if want[s] {
			order = append(order, s)
			delete(want, s)
		}
	}
	return order
}

// assembleDocument concatenates non-empty section contents under uppercase
// headers. Empty or failed sections are omitted from the document but remain
// in the result map.
func assembleDocument(order []types.SectionKind, sections map[types.SectionKind]types.SectionResult) string {
	var parts []string
	for _, kind := range order {
		res, ok := sections[kind]
		if !ok || res.Content == nil || *res.Content == "" {
			continue
		}
		parts = append(parts, sectionHeader(kind)+"\n"+*res.Content)
	}
	return strings.Join(parts, "\n\n")
}

func sectionHeader(kind types.SectionKind) string {
	name := strings.ToUpper(strings.ReplaceAll(string(kind), "_", " "))
	return "== " + name + " =="
}
