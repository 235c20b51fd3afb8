package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/internal/resilience"
	"github.com/sells-group/domain-lead-pipeline/pkg/anthropic"
	"github.com/sells-group/domain-lead-pipeline/pkg/searxng"
)

const (
	llmContextResults = 15
	llmMaxTokens      = 512
	llmPace           = 300 * time.Millisecond
)

const llmSystemPrompt = `You determine whether a local business has its own official website based on web search results.

Rules:
- Directory listings, review sites, social media pages, maps and marketplaces (Yelp, Facebook, Instagram, TripAdvisor, Yellow Pages, Google Maps, booking platforms) are NOT the business's own website.
- A franchise or chain location counts as having a website if the chain has one.
- Only answer has_website when a search result plainly is the business's own site.
- If the results are ambiguous or about a different business with a similar name, answer not_sure.

Respond with exactly one JSON object and nothing else:
{"status": "has_website" | "no_website" | "not_sure", "website_url": "<url or empty>", "reason": "<one short sentence>"}`

// llmAnswer is the model's JSON reply.
type llmAnswer struct {
	Status     string `json:"status"`
	WebsiteURL string `json:"website_url"`
	Reason     string `json:"reason"`
}

// LLMVerifier feeds meta-search results to a language model and trusts
// its judgment on ambiguous cases the mechanical matchers punt on.
type LLMVerifier struct {
	llm     anthropic.Client
	search  searxng.Client
	model   string
	limiter *rate.Limiter
}

// NewLLMVerifier builds the LLM-over-search verifier.
func NewLLMVerifier(llm anthropic.Client, search searxng.Client, model string) *LLMVerifier {
	return &LLMVerifier{
		llm:     llm,
		search:  search,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(llmPace), 1),
	}
}

func (v *LLMVerifier) Source() string { return "llm" }

func (v *LLMVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	waitLimiter(ctx, v.limiter)

	query := in.Business.Name
	if in.City != "" {
		query = fmt.Sprintf("%s %s", in.Business.Name, in.City)
	}
	resp, err := v.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &Outcome{Verdict: VerdictNoResults}, nil
	}

	prompt := buildLLMPrompt(in, resp.Results)

	pol := resilience.DefaultPolicy()
	pol.OnRetry = resilience.RetryLogger("anthropic", "verify_website")
	var temp float64
	reply, err := resilience.Retry(ctx, pol, func(ctx context.Context) (*anthropic.Reply, error) {
		return v.llm.Complete(ctx, anthropic.Request{
			Model:       v.model,
			MaxTokens:   llmMaxTokens,
			System:      llmSystemPrompt,
			CacheSystem: true,
			Prompt:      prompt,
			Temperature: &temp,
		})
	})
	if err != nil {
		if isRateLimited(err) {
			return &Outcome{Verdict: VerdictBlocked}, nil
		}
		return nil, err
	}
	reply.Usage.LogCost(v.model, "verify_website")

	answer, err := parseLLMAnswer(reply.Text)
	if err != nil {
		return nil, err
	}

	extras := map[string]any{}
	if answer.Reason != "" {
		extras["reason"] = answer.Reason
	}

	switch answer.Status {
	case "has_website":
		host := domainOf(answer.WebsiteURL)
		if host == "" || isDirectoryDomain(host) {
			return &Outcome{Verdict: VerdictNotSure, Extras: extras}, nil
		}
		return &Outcome{Verdict: VerdictHasWebsite, WebsiteURL: rootURL(answer.WebsiteURL), Extras: extras}, nil
	case "no_website":
		return &Outcome{Verdict: VerdictNoWebsite, Extras: extras}, nil
	default:
		return &Outcome{Verdict: VerdictNotSure, Extras: extras}, nil
	}
}

// buildLLMPrompt formats the business and its top search results. Kept
// deterministic so identical inputs hit the prompt cache.
func buildLLMPrompt(in Input, results []searxng.Result) string {
	if len(results) > llmContextResults {
		results = results[:llmContextResults]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", in.Business.Name)
	if in.Business.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", in.Business.Category)
	}
	if in.City != "" {
		fmt.Fprintf(&b, "City: %s\n", in.City)
	}
	if in.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", in.Country)
	}
	b.WriteString("\nSearch results:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, strings.TrimSpace(r.Title), r.URL)
		if r.Content != "" {
			fmt.Fprintf(&b, "   Snippet: %s\n", strings.TrimSpace(r.Content))
		}
	}
	return b.String()
}

// parseLLMAnswer extracts the JSON object from the model reply,
// tolerating surrounding prose or code fences.
func parseLLMAnswer(text string) (*llmAnswer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("llm: no JSON object in reply: %q", text)
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return nil, eris.Wrap(err, "llm: parse reply")
	}
	return &answer, nil
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "overloaded")
}
