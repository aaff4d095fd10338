package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"threatlens/internal/pkg/circuitbreaker"
	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/metrics"
	"threatlens/internal/pkg/models"
)

// Prompt profiles accepted in AnalysisRequest.EnrichWith.
const (
	ProfileComprehensive = "comprehensive"
	ProfileThreat        = "threat_detection"
	ProfileBot           = "bot_detection"
	ProfileIntelligence  = "intelligence_assessment"
)

// Content longer than this is truncated before it is sent to the model.
const maxContentChars = 3000

var systemPrompts = map[string]string{
	ProfileComprehensive: "You are an expert cybersecurity analyst and threat intelligence specialist for law enforcement. " +
		"Analyze content for security threats, terrorism, anti-national activities, hate speech, cybercrime, and radicalization. " +
		"Provide detailed, actionable intelligence suitable for investigations.",
	ProfileThreat: "You are a specialized threat detection expert for law enforcement cybersecurity units. " +
		"Focus specifically on identifying terrorism, violence, anti-national activities, and imminent threats. " +
		"Rate threat levels and provide specific evidence.",
	ProfileBot: "You are an expert in detecting automated accounts, bot networks, and coordinated inauthentic behavior. " +
		"Analyze linguistic patterns, behavioral indicators, and coordination signs. " +
		"Determine likelihood of automated or coordinated behavior.",
	ProfileIntelligence: "You are a senior intelligence analyst specializing in digital forensics and threat assessment. " +
		"Provide strategic intelligence insights, threat actor profiling, and operational recommendations.",
}

var userInstructions = map[string]string{
	ProfileComprehensive: "Provide analysis including: threat assessment (0-100 scale with justification), " +
		"threat classification, key evidence points, urgency level (LOW/MEDIUM/HIGH/CRITICAL), " +
		"recommended actions, intelligence value, and coordination indicators.",
	ProfileThreat: "Focus on: imminent threat indicators, threat actor assessment, attack vector analysis, " +
		"escalation potential, geographic and temporal factors, and evidence quality. " +
		"Provide a threat score (0-100) and specific action recommendations.",
	ProfileBot: "Evaluate: linguistic authenticity, content patterns, coordination indicators, " +
		"bot sophistication level, purpose assessment, and network scale estimation. " +
		"Provide a bot probability (0-100) and evidence.",
	ProfileIntelligence: "Deliver: strategic threat assessment, actor profiling, operational intelligence, " +
		"trend analysis, countermeasure recommendations, and intelligence gaps. " +
		"Focus on high-level strategic insights for decision makers.",
}

// ValidProfile reports whether name is a known enrichment prompt profile.
func ValidProfile(name string) bool {
	_, ok := systemPrompts[name]
	return ok
}

// Defines the interface for the optional LLM enrichment collaborator.
type Enricher interface {
	Enrich(ctx context.Context, content, profile string, analysisContext map[string]any) (*models.Enrichment, error)
}

// Implementation of Enricher backed by the OpenAI chat completion API,
// guarded by a circuit breaker and a rate limiter.
type llmEnricher struct {
	client         *openai.Client
	model          string
	circuitBreaker *circuitbreaker.CircuitBreaker
	limiter        *rate.Limiter
	limiterMu      sync.Mutex
	timeout        time.Duration
}

// Creates a new LLM enricher. baseURL overrides the API endpoint and is
// empty in production.
func NewEnricher(apiKey, model, baseURL string) Enricher {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &llmEnricher{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		circuitBreaker: circuitbreaker.NewCircuitBreaker("llm-enrichment", 5, 30*time.Second),
		limiter:        rate.NewLimiter(rate.Limit(5), 10), // 5 requests per second, burst of 10
		timeout:        60 * time.Second,
	}
}

// Requests an LLM assessment of the content under the named prompt profile.
// The analysisContext carries already-computed signal scores so the model
// can ground its assessment.
func (e *llmEnricher) Enrich(ctx context.Context, content, profile string, analysisContext map[string]any) (*models.Enrichment, error) {
	if !ValidProfile(profile) {
		return nil, fmt.Errorf("unknown enrichment profile: %s", profile)
	}

	// Check if circuit breaker is open
	if e.circuitBreaker.State() == "open" {
		metrics.EnrichmentErrors.Inc()
		return nil, errors.New("enrichment circuit breaker is open")
	}

	// Apply rate limiting
	e.limiterMu.Lock()
	reservation := e.limiter.Reserve()
	e.limiterMu.Unlock()
	if !reservation.OK() {
		metrics.EnrichmentErrors.Inc()
		return nil, errors.New("enrichment rate limit exceeded")
	}
	time.Sleep(reservation.Delay())

	truncated := false
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
		truncated = true
	}

	prompt := fmt.Sprintf("Analyze this content:\n\n%s\n\n%s", content, userInstructions[profile])
	if len(analysisContext) > 0 {
		prompt += fmt.Sprintf("\n\nAutomated signal scores for context: %v", analysisContext)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	startTime := time.Now()
	metrics.EnrichmentRequests.Inc()

	var resp openai.ChatCompletionResponse
	err := e.circuitBreaker.Execute(func() error {
		var execErr error
		resp, execErr = e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompts[profile]},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:        2000,
			Temperature:      0.2, // low temperature for consistent, factual analysis
			PresencePenalty:  0.1,
			FrequencyPenalty: 0.1,
		})
		return execErr
	})
	metrics.EnrichmentLatency.Observe(time.Since(startTime).Seconds())

	if err != nil {
		metrics.EnrichmentErrors.Inc()
		logger.Log.Warn("LLM enrichment request failed",
			zap.String("profile", profile),
			zap.Error(err))
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.EnrichmentErrors.Inc()
		return nil, errors.New("empty response from enrichment model")
	}

	return &models.Enrichment{
		Profile:   profile,
		Model:     e.model,
		Summary:   resp.Choices[0].Message.Content,
		Truncated: truncated,
		Success:   true,
	}, nil
}
