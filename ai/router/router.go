// Package router composes the answer pipeline: a fixed chain of
// stages evaluated in priority order, where each stage either produces
// the final answer or hands the query to the next one.
package router

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cheonanurc/urcbot/ai/cache"
	"github.com/cheonanurc/urcbot/ai/core/llm"
	"github.com/cheonanurc/urcbot/ai/core/retrieval"
	"github.com/cheonanurc/urcbot/ai/faq"
	"github.com/cheonanurc/urcbot/ai/fuzzy"
	"github.com/cheonanurc/urcbot/ai/intent"
	"github.com/cheonanurc/urcbot/ai/metrics"
	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/session"
	"github.com/cheonanurc/urcbot/ai/textnorm"
	"github.com/cheonanurc/urcbot/ai/websearch"
)

// Stage names, in chain order.
const (
	StageCacheHit       = "cache_hit"
	StageExactFAQ       = "exact_faq"
	StageIntentRules    = "intent_rules"
	StageStrongFAQ      = "strong_faq"
	StageLocalRetrieval = "local_retrieval"
	StageWeakFAQ        = "weak_faq"
	StageFuzzyCorpus    = "fuzzy_corpus"
	StageWebFallback    = "web_fallback"
	StageFusion         = "fusion_synthesis"
	stageEmpty          = "empty_query"
)

// Confidence labels attached to every answer.
const (
	ConfidenceCached = "cached"
	ConfidenceHigh   = "high"
	ConfidenceRule   = "rule"
	ConfidenceMid    = "mid"
	ConfidenceLow    = "low"
)

const (
	emptyQueryMessage = "질문을 입력해 주세요. 예) 오시는 길, 도시재생 투어 신청 방법"
	apologyMessage    = "죄송합니다. 지금은 해당 질문에 답변을 드리기 어렵습니다. 잠시 후 다시 질문해 주시거나 센터로 직접 문의해 주세요."
)

// Synthesized text starting with one of these reads as a non-answer
// and sends the query back into the fallback chain.
var unknownPrefixes = []string{
	"모르겠습니다",
	"죄송하지만",
	"잘 모르",
	"정보가 없",
	"i don't know",
	"i'm not sure",
	"sorry",
}

// Answer is the final pipeline output for one query.
type Answer struct {
	Text       string
	Confidence string
	Stage      string
	RequestID  string
}

// Retriever is the hybrid retrieval surface the router consumes,
// satisfied by *retrieval.HybridRetriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*retrieval.Candidate, error)
	Rerank(ctx context.Context, query string, candidates []*retrieval.Candidate, topN int) ([]*retrieval.Candidate, float32, error)
	Snippets() []retrieval.Snippet
}

// Generator produces synthesized answers, satisfied by llm.Service.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// ProgramSource lists currently running programs, satisfied by
// *store.Store.
type ProgramSource interface {
	CurrentPrograms(ctx context.Context) ([]string, error)
}

// Services are the collaborators the router orchestrates. Registry,
// FAQ, Intents, Cache and Sessions are required; the rest degrade to
// skipped stages when nil.
type Services struct {
	Registry  *registry.Registry
	FAQ       *faq.Index
	Intents   *intent.Resolver
	Retriever Retriever
	Generator Generator
	Web       websearch.Service
	Cache     *cache.AnswerCache
	Sessions  *session.Store
	Programs  ProgramSource
	Metrics   *metrics.PrometheusExporter
}

// Config tunes the stage thresholds.
type Config struct {
	FAQStrongScore int     // strong FAQ fuzzy threshold (default: 90)
	FAQWeakScore   int     // weak FAQ fuzzy threshold (default: 85)
	LocalThreshold float32 // min rerank score for local retrieval (default: 0.15)
	FuzzyScore     int     // corpus snippet fuzzy threshold (default: 80)
	FuzzyLimit     int     // corpus snippets fed to synthesis (default: 3)
	RetrieverK     int     // candidates fetched per query (default: 12)
	RerankTopN     int     // candidates kept after rerank (default: 4)
	WebHits        int     // web results requested (default: 5)
	WebEnabled     bool
	StageTimeout   time.Duration // per external stage (default: 8s)
}

// DefaultConfig returns the tuned stage thresholds.
func DefaultConfig() Config {
	return Config{
		FAQStrongScore: 90,
		FAQWeakScore:   85,
		LocalThreshold: 0.15,
		FuzzyScore:     80,
		FuzzyLimit:     3,
		RetrieverK:     12,
		RerankTopN:     4,
		WebHits:        5,
		WebEnabled:     true,
		StageTimeout:   8 * time.Second,
	}
}

// AnswerRouter runs queries through the fallback chain.
type AnswerRouter struct {
	svc Services
	cfg Config

	writes sync.WaitGroup
}

// New creates a router. Zero config fields fall back to defaults.
func New(svc Services, cfg Config) *AnswerRouter {
	def := DefaultConfig()
	if cfg.FAQStrongScore <= 0 {
		cfg.FAQStrongScore = def.FAQStrongScore
	}
	if cfg.FAQWeakScore <= 0 {
		cfg.FAQWeakScore = def.FAQWeakScore
	}
	if cfg.LocalThreshold <= 0 {
		cfg.LocalThreshold = def.LocalThreshold
	}
	if cfg.FuzzyScore <= 0 {
		cfg.FuzzyScore = def.FuzzyScore
	}
	if cfg.FuzzyLimit <= 0 {
		cfg.FuzzyLimit = def.FuzzyLimit
	}
	if cfg.RetrieverK <= 0 {
		cfg.RetrieverK = def.RetrieverK
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = def.RerankTopN
	}
	if cfg.WebHits <= 0 {
		cfg.WebHits = def.WebHits
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = def.StageTimeout
	}
	return &AnswerRouter{svc: svc, cfg: cfg}
}

// Ask answers one query. It always returns a non-empty answer: stage
// failures fall through the chain, and even a dead generation backend
// bottoms out at a fixed apology.
func (r *AnswerRouter) Ask(ctx context.Context, query, sessionID string) Answer {
	requestID := uuid.NewString()
	started := time.Now()
	logger := slog.With("request_id", requestID, "session_id", sessionID)

	normalized := textnorm.Normalize(query)
	if normalized == "" {
		return Answer{Text: emptyQueryMessage, Confidence: ConfidenceLow, Stage: stageEmpty, RequestID: requestID}
	}

	if m := r.svc.Metrics; m != nil {
		m.AskStarted()
		defer m.AskFinished()
	}

	answer := r.run(ctx, logger, query, normalized, sessionID, requestID)

	if m := r.svc.Metrics; m != nil {
		m.RecordAsk(answer.Stage, answer.Confidence, time.Since(started))
	}
	logger.Info("query answered",
		"stage", answer.Stage,
		"confidence", answer.Confidence,
		"latency_ms", time.Since(started).Milliseconds(),
	)
	return answer
}

// Wait blocks until pending cache/session writes land. Tests use it;
// the request path never does.
func (r *AnswerRouter) Wait() {
	r.writes.Wait()
}

func (r *AnswerRouter) run(ctx context.Context, logger *slog.Logger, query, normalized, sessionID, requestID string) Answer {
	// 1. CacheHit
	if hit, ok := r.stageCache(sessionID, query); ok {
		hit.RequestID = requestID
		return hit
	}

	var prior *session.State
	if st, ok := r.svc.Sessions.Get(sessionID); ok {
		prior = &st
	}
	res := r.svc.Intents.Classify(query, prior)
	logger.Debug("intent classified",
		"intent", res.Intent,
		"rule", res.Rule,
		"has_entity", res.HasEntity,
		"tag", res.Tag,
	)

	// Partial context carried into the final fusion stage.
	var fusionContext []string

	type stageFn func() (string, string, bool)
	stages := []struct {
		name string
		run  stageFn
	}{
		{StageExactFAQ, func() (string, string, bool) {
			return r.stageExactFAQ(normalized, res)
		}},
		{StageIntentRules, func() (string, string, bool) {
			return r.stageIntentRules(ctx, logger, normalized, res)
		}},
		{StageStrongFAQ, func() (string, string, bool) {
			return r.stageFAQ(normalized, res, r.cfg.FAQStrongScore)
		}},
		{StageLocalRetrieval, func() (string, string, bool) {
			return r.stageLocalRetrieval(ctx, logger, query, &fusionContext)
		}},
		{StageWeakFAQ, func() (string, string, bool) {
			return r.stageFAQ(normalized, res, r.cfg.FAQWeakScore)
		}},
		{StageFuzzyCorpus, func() (string, string, bool) {
			return r.stageFuzzyCorpus(ctx, logger, normalized, query, &fusionContext)
		}},
		{StageWebFallback, func() (string, string, bool) {
			return r.stageWebFallback(ctx, logger, query, &fusionContext)
		}},
	}

	for _, stage := range stages {
		stageStart := time.Now()
		text, confidence, ok := stage.run()
		if m := r.svc.Metrics; m != nil {
			m.RecordStage(stage.name, time.Since(stageStart), ok)
		}
		if ok {
			r.finalize(logger, sessionID, query, stage.name, text, res)
			return Answer{Text: text, Confidence: confidence, Stage: stage.name, RequestID: requestID}
		}
	}

	// 9. FusionSynthesis, always terminal. The fixed apology is not
	// cached so a transient backend outage cannot pin a bad answer
	// for a whole TTL.
	text, confidence := r.stageFusion(ctx, logger, query, fusionContext)
	if text != apologyMessage {
		r.finalize(logger, sessionID, query, StageFusion, text, res)
	}
	return Answer{Text: text, Confidence: confidence, Stage: StageFusion, RequestID: requestID}
}

func (r *AnswerRouter) stageCache(sessionID, query string) (Answer, bool) {
	hit, ok := r.svc.Cache.Get(sessionID, query)
	if m := r.svc.Metrics; m != nil {
		if ok {
			m.RecordCacheHit("answer")
		} else {
			m.RecordCacheMiss("answer")
		}
	}
	if !ok {
		return Answer{}, false
	}
	return Answer{Text: hit.Text, Confidence: ConfidenceCached, Stage: StageCacheHit}, true
}

func (r *AnswerRouter) stageExactFAQ(normalized string, res intent.Result) (string, string, bool) {
	answer, ok := r.svc.FAQ.Exact(normalized, faqOptions(res, false))
	if !ok {
		return "", "", false
	}
	return answer.Text, ConfidenceHigh, true
}

// stageFAQ serves both the strong and weak passes; only the threshold
// differs. Contact-flavored entries are off the table here because the
// rule stage already owns that intent.
func (r *AnswerRouter) stageFAQ(normalized string, res intent.Result, threshold int) (string, string, bool) {
	answer, ok := r.svc.FAQ.Match(normalized, threshold, faqOptions(res, true))
	if !ok {
		return "", "", false
	}
	confidence := ConfidenceHigh
	if threshold < r.cfg.FAQStrongScore {
		confidence = ConfidenceMid
	}
	return answer.Text, confidence, true
}

func (r *AnswerRouter) stageIntentRules(ctx context.Context, logger *slog.Logger, normalized string, res intent.Result) (string, string, bool) {
	switch res.Intent {
	case intent.AskContact:
		text := renderContacts(r.svc.Registry.ContactsFor(normalized), res.ContactType)
		if text == "" {
			return "", "", false
		}
		return text, ConfidenceRule, true

	case intent.Navigate:
		if text := r.renderNavigation(res); text != "" {
			return text, ConfidenceRule, true
		}
		return "", "", false

	case intent.AskInfo:
		if r.svc.Programs != nil && programListRegex.MatchString(normalized) {
			sctx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
			defer cancel()
			programs, err := r.svc.Programs.CurrentPrograms(sctx)
			if err != nil {
				r.stageError(logger, StageIntentRules, "program_lookup", err)
				return "", "", false
			}
			if len(programs) > 0 {
				return renderPrograms(programs), ConfidenceRule, true
			}
		}
		return "", "", false
	}
	return "", "", false
}

func (r *AnswerRouter) stageLocalRetrieval(ctx context.Context, logger *slog.Logger, query string, fusionContext *[]string) (string, string, bool) {
	if r.svc.Retriever == nil || r.svc.Generator == nil {
		return "", "", false
	}
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	defer cancel()

	candidates, err := r.svc.Retriever.Retrieve(sctx, query, r.cfg.RetrieverK)
	if err != nil {
		r.stageError(logger, StageLocalRetrieval, "retrieve", err)
		return "", "", false
	}
	if len(candidates) == 0 {
		return "", "", false
	}

	top, best, err := r.svc.Retriever.Rerank(sctx, query, candidates, r.cfg.RerankTopN)
	if err != nil {
		r.stageError(logger, StageLocalRetrieval, "rerank", err)
		// Fused order still stands without the reranker.
		top = candidates
		if len(top) > r.cfg.RerankTopN {
			top = top[:r.cfg.RerankTopN]
		}
		best = r.cfg.LocalThreshold
	}

	// Candidates at all clear the bar: the corpus is small and
	// curated, so recall beats precision here.
	if best < r.cfg.LocalThreshold && len(top) == 0 {
		return "", "", false
	}

	blocks := make([]string, 0, len(top))
	for _, c := range top {
		blocks = append(blocks, contextBlock(c.Title, c.URL, c.Text))
	}
	*fusionContext = append(*fusionContext, blocks...)

	text, err := r.synthesize(sctx, query, blocks)
	if err != nil {
		r.stageError(logger, StageLocalRetrieval, "generate", err)
		return "", "", false
	}
	if looksLikeUnknown(text) {
		logger.Debug("synthesized answer reads as unknown, falling through", "stage", StageLocalRetrieval)
		return "", "", false
	}
	return text, ConfidenceHigh, true
}

func (r *AnswerRouter) stageFuzzyCorpus(ctx context.Context, logger *slog.Logger, normalized, query string, fusionContext *[]string) (string, string, bool) {
	if r.svc.Retriever == nil || r.svc.Generator == nil {
		return "", "", false
	}
	snippets := r.svc.Retriever.Snippets()
	if len(snippets) == 0 {
		return "", "", false
	}

	pool := make([]string, len(snippets))
	for i, s := range snippets {
		pool[i] = textnorm.Normalize(s.Title + " " + truncate(s.Text, 300))
	}

	matches := fuzzy.Extract(normalized, pool, r.cfg.FuzzyLimit, r.cfg.FuzzyScore, fuzzy.PartialRatio)
	if len(matches) == 0 {
		return "", "", false
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		s := snippets[m.Index]
		blocks = append(blocks, contextBlock(s.Title, s.URL, s.Text))
	}
	*fusionContext = append(*fusionContext, blocks...)

	sctx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	defer cancel()

	text, err := r.synthesize(sctx, query, blocks)
	if err != nil {
		r.stageError(logger, StageFuzzyCorpus, "generate", err)
		return "", "", false
	}
	if looksLikeUnknown(text) {
		return "", "", false
	}
	return text, ConfidenceMid, true
}

func (r *AnswerRouter) stageWebFallback(ctx context.Context, logger *slog.Logger, query string, fusionContext *[]string) (string, string, bool) {
	if !r.cfg.WebEnabled || r.svc.Web == nil {
		return "", "", false
	}
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	defer cancel()

	results, err := r.svc.Web.Search(sctx, query, r.cfg.WebHits)
	if err != nil {
		r.stageError(logger, StageWebFallback, "search", err)
		return "", "", false
	}
	if len(results) == 0 {
		return "", "", false
	}

	for _, res := range results {
		*fusionContext = append(*fusionContext, contextBlock(res.Title, res.URL, res.Snippet))
	}
	return renderWebResults(results), ConfidenceMid, true
}

func (r *AnswerRouter) stageFusion(ctx context.Context, logger *slog.Logger, query string, fusionContext []string) (string, string) {
	if r.svc.Generator == nil {
		return apologyMessage, ConfidenceLow
	}
	sctx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	defer cancel()

	text, err := r.synthesize(sctx, query, fusionContext)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			r.stageError(logger, StageFusion, "generate", err)
		}
		return apologyMessage, ConfidenceLow
	}
	return text, ConfidenceLow
}

func (r *AnswerRouter) synthesize(ctx context.Context, query string, contextBlocks []string) (string, error) {
	return r.svc.Generator.Chat(ctx, []llm.Message{
		llm.SystemPrompt(synthesisSystemPrompt),
		llm.UserMessage(buildUserPrompt(query, contextBlocks)),
	})
}

// finalize writes the answer cache and session state without blocking
// the response. Per-session ordering holds because each request issues
// one write goroutine and the stores serialize on their own locks.
func (r *AnswerRouter) finalize(logger *slog.Logger, sessionID, query, stage, text string, res intent.Result) {
	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("async answer write panicked", "panic", rec)
			}
		}()

		r.svc.Cache.Put(sessionID, query, text, stage)

		r.svc.Sessions.Update(sessionID, func(st session.State) session.State {
			st.LastIntent = res.Intent
			if res.HasEntity {
				st.LastAlias = textnorm.Normalize(res.Entity.Name)
			}
			if res.Tag != "" {
				st.LastTag = res.Tag
			}
			if stage == StageIntentRules && res.Intent == intent.Navigate {
				st.NavigationMode = true
			}
			return st
		})
	}()
}

func (r *AnswerRouter) stageError(logger *slog.Logger, stage, errorType string, err error) {
	logger.Warn("stage produced no result",
		"stage", stage,
		"error_type", errorType,
		"error", err,
	)
	if m := r.svc.Metrics; m != nil {
		m.RecordStageError(stage, errorType)
	}
}

// faqOptions scopes the FAQ pool by the classified intent. After the
// rule stage, contact-flavored entries are blocked since that intent
// already terminated there.
func faqOptions(res intent.Result, afterRules bool) faq.Options {
	opt := faq.Options{}
	if afterRules {
		opt.BlockedHints = []string{faq.HintContact, faq.HintAddress}
		return opt
	}
	if res.Intent == intent.AskContact {
		if res.ContactType == intent.ContactAddress {
			opt.PreferredHint = faq.HintAddress
		} else {
			opt.PreferredHint = faq.HintContact
		}
	}
	return opt
}

func looksLikeUnknown(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range unknownPrefixes {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
