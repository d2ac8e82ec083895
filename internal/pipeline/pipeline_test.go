package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"grantwright/internal/generation"
	"grantwright/internal/prompt"
	"grantwright/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleGC() *types.GenerationContext {
	score := 0.87
	return &types.GenerationContext{
		Grant: &types.GrantMetadata{ID: "g1", OrganizationName: "Test Org"},
		Chunks: []types.ContextChunk{
			{ID: "c1", Content: "chunk one", SourceType: types.SourceUploaded, RelevanceScore: &score},
			{ID: "c2", Content: "chunk two", SourceType: types.SourceScraped, RelevanceScore: &score},
		},
	}
}

func baseDeps(st *fakeStore, r *fakeRetriever, e *fakeEngine) Deps {
	d := Deps{
		Store:      st,
		Retriever:  r,
		Clock:      newFixedClock(),
		Query:      "write a proposal",
		MatchCount: 10,
	}
	if e != nil {
		d.Engine = e
	}
	return d
}

func TestGenerateSectionSuccess(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{content: "real content"}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, engine)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	require.NotNil(t, res.Content)
	assert.Equal(t, "real content [executive_summary]", *res.Content)
	assert.Equal(t, []string{"c1", "c2"}, res.ContextRefs)
	require.NotNil(t, res.TokensUsed)
	assert.Equal(t, 30, res.TokensUsed.Total)
	assert.Empty(t, res.Warnings)

	// Both persistence writes landed.
	require.Len(t, st.sections, 1)
	assert.Equal(t, "executive_summary", st.sections[0].SectionName)
	assert.Equal(t, 30, st.sections[0].TokensUsed)
	assert.Equal(t, "fake-model", st.sections[0].ModelUsed)
	require.Len(t, st.logs, 1)
	assert.Equal(t, []string{"c1", "c2"}, st.logs[0].ContextSources)

	// Fixed clock steps 250ms per Now call.
	assert.Equal(t, int64(250), res.Meta.DurationMs)
}

func TestGenerateSectionStubWhenEngineNil(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, nil)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionNeedsStatement, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	require.NotNil(t, res.Content)
	assert.Equal(t, StubContent, *res.Content)
	assert.Contains(t, res.Warnings, WarnEngineNotConfigured)
	// Stubbed runs still persist.
	assert.Len(t, st.sections, 1)
}

func TestGenerateSectionEngineErrorDegradesToStub(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{err: errors.New("provider down")}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, engine)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, StubContent, *res.Content)
	assert.Contains(t, res.Warnings, WarnGenerationFailed)
}

func TestGenerateSectionRetrievalFailureIsError(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{err: errors.New("embed service down")}, &fakeEngine{content: "x"})

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusError, res.Status)
	assert.Nil(t, res.Content)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "embed service down")
	// Refs serialize as an empty list, never null.
	assert.NotNil(t, res.ContextRefs)
	assert.Empty(t, res.ContextRefs)
	// Nothing persisted for a failed run.
	assert.Empty(t, st.sections)
}

func TestGenerateSectionEngineErrorKeepsDraftWarnings(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{
		err:      errors.New("provider down"),
		warnings: []string{prompt.WarnNoGrantMetadata},
	}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, engine)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, StubContent, *res.Content)
	assert.Contains(t, res.Warnings, prompt.WarnNoGrantMetadata)
	assert.Contains(t, res.Warnings, WarnGenerationFailed)
}

func TestGenerateSectionStubWarnsOnMissingGrant(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{gc: &types.GenerationContext{}}, nil)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionNeedsStatement, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, StubContent, *res.Content)
	assert.Contains(t, res.Warnings, prompt.WarnNoGrantMetadata)
	assert.Contains(t, res.Warnings, prompt.WarnNoContext)
	assert.Contains(t, res.Warnings, WarnEngineNotConfigured)
}

func TestGenerateSectionErrorResultKeepsContextRefs(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{err: &generation.GenerationExhaustedError{Section: types.SectionExecutiveSummary, Cycles: 3}}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, engine)

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, []string{"c1", "c2"}, res.ContextRefs)
}

func TestGenerateSectionPanicIsContained(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, &fakeEngine{panics: true})

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusError, res.Status)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "engine blew up")
}

func TestGenerateSectionPersistenceFailureStaysSuccess(t *testing.T) {
	st := &fakeStore{failSection: true, failLog: true}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, &fakeEngine{content: "real"})

	res := GenerateSection(context.Background(), deps, "g1", types.SectionExecutiveSummary, nil)

	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Contains(t, res.Warnings, WarnPersistSection)
	assert.Contains(t, res.Warnings, WarnPersistLog)
	assert.Equal(t, "real [executive_summary]", *res.Content)
}

func TestGenerateProposalDefaultsToCanonicalSections(t *testing.T) {
	st := &fakeStore{}
	retriever := &fakeRetriever{gc: sampleGC()}
	deps := baseDeps(st, retriever, &fakeEngine{content: "text"})

	res := GenerateProposal(context.Background(), deps, Request{UserRequest: "full proposal", GrantID: "g1"})

	require.Len(t, res.Sections, 4)
	assert.Equal(t, 4, retriever.calls)

	// Canonical document order.
	doc := res.FinalGrant
	idxExec := strings.Index(doc, "== EXECUTIVE SUMMARY ==")
	idxNeeds := strings.Index(doc, "== NEEDS STATEMENT ==")
	idxProg := strings.Index(doc, "== PROGRAM DESCRIPTION ==")
	idxBudget := strings.Index(doc, "== BUDGET OVERVIEW ==")
	require.True(t, idxExec >= 0 && idxNeeds > idxExec && idxProg > idxNeeds && idxBudget > idxProg, "document order wrong:\n%s", doc)

	assert.Equal(t, res.ContextChunks, sampleGC().Chunks)
}

func TestGenerateProposalRequestedSectionsActAsFilter(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, &fakeEngine{content: "text"})

	// Caller order is ignored; unknown kinds go last.
	res := GenerateProposal(context.Background(), deps, Request{
		UserRequest: "partial",
		GrantID:     "g1",
		Sections: []types.SectionKind{
			types.SectionBudgetOverview,
			types.SectionKind("sustainability_plan"),
			types.SectionExecutiveSummary,
		},
	})

	require.Len(t, res.Sections, 3)
	doc := res.FinalGrant
	idxExec := strings.Index(doc, "== EXECUTIVE SUMMARY ==")
	idxBudget := strings.Index(doc, "== BUDGET OVERVIEW ==")
	idxCustom := strings.Index(doc, "== SUSTAINABILITY PLAN ==")
	require.True(t, idxExec >= 0 && idxBudget > idxExec && idxCustom > idxBudget, "document order wrong:\n%s", doc)
}

func TestGenerateProposalCreatesGrantWhenMissing(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, &fakeEngine{content: "text"})

	GenerateProposal(context.Background(), deps, Request{UserRequest: "new grant run"})
	assert.Equal(t, 1, st.createdGrants)
}

func TestGenerateProposalGrantCreationFailureWarns(t *testing.T) {
	st := &fakeStore{failCreateGrant: true}
	deps := baseDeps(st, &fakeRetriever{gc: sampleGC()}, &fakeEngine{content: "text"})

	res := GenerateProposal(context.Background(), deps, Request{UserRequest: "new grant run"})
	assert.Contains(t, res.Warnings, WarnGrantCreateFailed)
	// Sections still ran.
	assert.Len(t, res.Sections, 4)
}

func TestGenerateProposalUnionsWarningsWithoutDedup(t *testing.T) {
	st := &fakeStore{}
	gc := &types.GenerationContext{Warnings: []string{"No context chunks available for this grant."}}
	deps := baseDeps(st, &fakeRetriever{gc: gc}, nil)

	res := GenerateProposal(context.Background(), deps, Request{UserRequest: "warn heavy", GrantID: "g1"})

	// One retrieval warning plus one stub warning per section, kept flat.
	count := 0
	for _, w := range res.Warnings {
		if w == "No context chunks available for this grant." {
			count++
		}
	}
	assert.Equal(t, 4, count)
}

func TestGenerateProposalOmitsEmptySectionsFromDocument(t *testing.T) {
	st := &fakeStore{}
	deps := baseDeps(st, &fakeRetriever{err: errors.New("down")}, &fakeEngine{content: "text"})

	res := GenerateProposal(context.Background(), deps, Request{UserRequest: "all fail", GrantID: "g1"})

	assert.Empty(t, res.FinalGrant)
	// Failed sections stay visible in the map.
	require.Len(t, res.Sections, 4)
	for _, sec := range res.Sections {
		assert.Equal(t, types.StatusError, sec.Status)
	}
}
