package generation

import (
	"context"
	"fmt"
	"strings"

	"grantwright/internal/config"
	"grantwright/internal/logging"
	"grantwright/internal/prompt"
	"grantwright/internal/types"
)

// debateState is the per-section state of the debate loop.
type debateState int

const (
	stateDrafting debateState = iota
	stateJudging
	stateAccepted
)

// GenerationExhaustedError is returned when the judge rejects every cycle and
// the fallback policy is "error".
type GenerationExhaustedError struct {
	Section types.SectionKind
	Cycles  int
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("generation exhausted for section %q after %d debate cycles", e.Section, e.Cycles)
}

// DebateOptions shape the debate loop.
type DebateOptions struct {
	RoundsPerCycle int    // proposer/challenger rounds before each judgment
	MaxCycles      int    // judge evaluations before the fallback applies
	Fallback       string // config.FallbackBestDraft or config.FallbackError
	Model          string // recorded on the resulting drafts
}

// DebateEngine refines each section through proposer/challenger rounds until
// a judge accepts the draft or the cycle bound is hit.
type DebateEngine struct {
	proposer   types.LLMClient
	challenger types.LLMClient
	judge      types.LLMClient
	opts       DebateOptions
}

// NewDebateEngine builds a debate engine over three role clients. The roles
// may share a client.
func NewDebateEngine(proposer, challenger, judge types.LLMClient, opts DebateOptions) *DebateEngine {
	if opts.RoundsPerCycle <= 0 {
		opts.RoundsPerCycle = 3
	}
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = 3
	}
	if opts.Fallback == "" {
		opts.Fallback = config.FallbackBestDraft
	}
	return &DebateEngine{proposer: proposer, challenger: challenger, judge: judge, opts: opts}
}

// GenerateAll runs the debate loop for each requested section in order.
func (e *DebateEngine) GenerateAll(ctx context.Context, grant *types.GrantMetadata, chunks []types.ContextChunk, sections []types.SectionKind) (*ProposalDraft, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "DebateGenerateAll")
	defer timer.Stop()

	gc := &types.GenerationContext{Grant: grant, Chunks: chunks}
	draft := &ProposalDraft{Sections: make(map[types.SectionKind]SectionDraft, len(sections))}

	for _, section := range sections {
		built := prompt.Build(gc, section)
		draft.Warnings = append(draft.Warnings, built.Warnings...)

		content, tokens, warnings, err := e.runSection(ctx, section, built.Prompt)
		if err != nil {
			return draft, err
		}
		draft.Warnings = append(draft.Warnings, warnings...)
		draft.Sections[section] = SectionDraft{Content: content, Tokens: tokens, Model: e.opts.Model}
	}

	return draft, nil
}

// runSection drives the state machine for one section. At most MaxCycles
// judge calls happen; each cycle costs 2*RoundsPerCycle drafting calls.
func (e *DebateEngine) runSection(ctx context.Context, section types.SectionKind, userPrompt string) (string, *types.TokenUsage, []string, error) {
	var (
		tokens           *types.TokenUsage
		warnings         []string
		challengerOutput string
		cycles           int
	)

	state := stateDrafting
	for {
		switch state {
		case stateDrafting:
			for round := 1; round <= e.opts.RoundsPerCycle; round++ {
				proposerOutput, err := e.proposer.Complete(ctx, proposerPrompt(section, userPrompt, challengerOutput))
				if err != nil {
					return "", nil, nil, fmt.Errorf("proposer failed for section %q: %w", section, err)
				}
				addUsage(&tokens, e.proposer)

				challengerOutput, err = e.challenger.Complete(ctx, challengerPrompt(section, proposerOutput, userPrompt))
				if err != nil {
					return "", nil, nil, fmt.Errorf("challenger failed for section %q: %w", section, err)
				}
				addUsage(&tokens, e.challenger)
			}
			state = stateJudging

		case stateJudging:
			cycles++
			verdict, err := e.judge.Complete(ctx, judgePrompt(section, challengerOutput, userPrompt))
			if err != nil {
				return "", nil, nil, fmt.Errorf("judge failed for section %q: %w", section, err)
			}
			addUsage(&tokens, e.judge)

			if accepted(verdict) {
				logging.Generation("Debate: section %q accepted after %d cycle(s)", section, cycles)
				state = stateAccepted
				break
			}
			if cycles >= e.opts.MaxCycles {
				logging.Generation("Debate: section %q exhausted after %d cycles (fallback=%s)", section, cycles, e.opts.Fallback)
				if e.opts.Fallback == config.FallbackError {
					return "", nil, nil, &GenerationExhaustedError{Section: section, Cycles: cycles}
				}
				warnings = append(warnings, exhaustedWarning(section, cycles))
				state = stateAccepted
				break
			}
			logging.GenerationDebug("Debate: section %q rejected, cycle %d of %d", section, cycles, e.opts.MaxCycles)
			state = stateDrafting

		case stateAccepted:
			return challengerOutput, tokens, warnings, nil
		}
	}
}

// accepted reads the judge verdict: the leading rune of the trimmed response
// must be '1'. Anything else counts as a rejection.
func accepted(verdict string) bool {
	trimmed := strings.TrimSpace(verdict)
	return strings.HasPrefix(trimmed, "1")
}

func exhaustedWarning(section types.SectionKind, cycles int) string {
	return fmt.Sprintf("Debate did not converge for section %q after %d cycles; using the latest draft.", section, cycles)
}

func proposerPrompt(section types.SectionKind, userPrompt, previousDraft string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are the PROPOSER in a debate system generating content for section "%s".
Your job is to construct the strongest, clearest, and most well-reasoned answer to the user prompt below.
Focus on accuracy, logical structure, and persuasive argumentation.
Write in a confident, expert tone and avoid unnecessary disclaimers.
`, section)
	if previousDraft != "" {
		fmt.Fprintf(&b, `
PREVIOUS BEST ANSWER (improve on it):
%s
`, previousDraft)
	}
	fmt.Fprintf(&b, `
PROMPT:
%s`, userPrompt)
	return b.String()
}

func challengerPrompt(section types.SectionKind, proposerOutput, userPrompt string) string {
	return fmt.Sprintf(`You are the CHALLENGER in a debate system for section "%s".

Your job is to critically evaluate the PROPOSER's answer and produce an improved version that:
- Strengthens clarity, reasoning, and structure
- Preserves fidelity to the user's original prompt
- Fixes gaps, weak logic, or missing details
- Removes fluff, repetition, or vague claims

Do not mention that you are the CHALLENGER.
Produce the best possible improved answer.

PROPOSER'S ANSWER:
%s

PROMPT:
%s`, section, proposerOutput, userPrompt)
}

func judgePrompt(section types.SectionKind, challengerOutput, userPrompt string) string {
	return fmt.Sprintf(`You are the JUDGE in a debate-generation system for section "%s".

Your task is to evaluate the latest CHALLENGER answer and issue a clear verdict on its quality.
CHALLENGER'S FINAL ANSWER:
%s

ORIGINAL USER PROMPT:
%s

Judge the answer based on:
- Clarity and organization
- Completeness relative to the original prompt
- Logical strength and coherence
- Fidelity to the user's intent
- Overall writing quality and tone

Your response must follow this exact format (the first character must be either 1 or 0, 1 for Good, 0 for not good):

1 or 0
VERDICT: "Good" or "Not good"

EXPLANATION:
A brief explanation (2-4 sentences) describing why you made this judgment and what, if anything, needs improvement.`, section, challengerOutput, userPrompt)
}
