package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jobinsights/internal/domain"
)

const (
	defaultLLMModel   = "llama3.2:3b"
	defaultLLMBaseURL = "http://localhost:11434/v1"
	defaultLLMAPIKey  = "not-needed"

	defaultLLMTimeout   = 30 * time.Second
	defaultLLMMaxTokens = 200
	llmTemperature      = 0.1

	defaultFewShotMax = 5
)

// LLMConfig configures the fallback classifier. Defaults target a local
// OpenAI-compatible gateway (Ollama, LM Studio) that needs no real key.
// Defaults are applied at construction, not on first call, so behavior
// is fixed for the lifetime of the classifier instance.
type LLMConfig struct {
	Provider   string // "openai" (default) or "anthropic"
	Model      string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxTokens  int
	FewShot    bool // include recent corrections as prompt examples
	FewShotMax int
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = defaultLLMModel
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultLLMBaseURL
	}
	if c.APIKey == "" {
		c.APIKey = defaultLLMAPIKey
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultLLMTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultLLMMaxTokens
	}
	if c.FewShotMax <= 0 {
		c.FewShotMax = defaultFewShotMax
	}
	return c
}

// FewShotSource supplies recent user corrections for prompt enrichment.
// A nil source disables few-shot examples regardless of config.
type FewShotSource interface {
	FewShotExamples(max int) ([]domain.FewShotExample, error)
}

// LLMClassifier classifies a single error via a chat-completion endpoint.
// It never fails past its boundary: every transport or protocol problem
// degrades to (UNKNOWN, 0.0, diagnostic reasoning).
type LLMClassifier struct {
	cfg     LLMConfig
	client  *http.Client
	fewShot FewShotSource
}

// NewLLMClassifier builds a classifier with defaults applied to cfg.
func NewLLMClassifier(cfg LLMConfig, fewShot FewShotSource) *LLMClassifier {
	cfg = cfg.withDefaults()
	return &LLMClassifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		fewShot: fewShot,
	}
}

// categoryGuidance holds the prompt description per model-visible
// category; the numbered list itself is derived from the enumeration so
// prompt text and parsing logic cannot drift apart.
var categoryGuidance = map[domain.FailureCategory]struct {
	title   string
	bullets []string
}{
	domain.InputDataQuality: {
		title: "Problems with input data",
		bullets: []string{
			"Validation failures, missing required fields",
			"Wrong data format, schema mismatches",
			"Empty or null values where data expected",
			"Type conversion errors",
		},
	},
	domain.WorkflowEngine: {
		title: "Internal pipeline/orchestration issues",
		bullets: []string{
			"Activity not found or misconfigured",
			"Pipeline execution errors",
			"DAG/dependency issues",
			"Plugin or builtin failures",
			"Context/state management errors",
		},
	},
	domain.ThirdPartySystem: {
		title: "External service failures",
		bullets: []string{
			"API errors from external providers (Xledger, Visma, etc.)",
			"HTTP errors, timeouts, connection issues",
			"Authentication/authorization failures",
			"Rate limiting, quota exceeded",
			"SOAP/GraphQL/REST service errors",
		},
	},
}

// SystemPrompt enumerates exactly the model-visible categories. UNKNOWN
// is never offered: the classifier reserves it for its own failures.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a workflow failure classifier for a data pipeline system.\n\n")
	b.WriteString("Classify the error into exactly ONE of these categories:\n\n")

	categories := domain.LLMCategories()
	for i, cat := range categories {
		g := categoryGuidance[cat]
		fmt.Fprintf(&b, "%d. %s - %s:\n", i+1, cat, g.title)
		for _, bullet := range g.bullets {
			fmt.Fprintf(&b, "   - %s\n", bullet)
		}
		b.WriteString("\n")
	}

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = string(cat)
	}
	b.WriteString("Respond with JSON only:\n")
	fmt.Fprintf(&b, "{\n    \"category\": \"%s\",\n    \"confidence\": 0.0-1.0,\n    \"reasoning\": \"Brief one-sentence explanation\"\n}", strings.Join(names, "|"))
	return b.String()
}

// buildUserPrompt renders the few-shot examples (if any) followed by the
// error under classification as a structured block.
func (c *LLMClassifier) buildUserPrompt(rec domain.ErrorRecord, activityName string) string {
	var b strings.Builder

	if c.cfg.FewShot && c.fewShot != nil {
		examples, err := c.fewShot.FewShotExamples(c.cfg.FewShotMax)
		if err != nil {
			log.Printf("llm few-shot examples unavailable: %v", err)
		}
		if len(examples) > 0 {
			b.WriteString("Here are some recent corrections from users:\n\n")
			for i, ex := range examples {
				message := ex.Error.Message
				if message == "" {
					message = "N/A"
				}
				fmt.Fprintf(&b, "%d. Activity: %s\n", i+1, ex.ActivityName)
				fmt.Fprintf(&b, "   Error: %s\n", message)
				fmt.Fprintf(&b, "   Correct Category: %s\n", ex.Category)
				fmt.Fprintf(&b, "   Reason: %s\n\n", ex.Reasoning)
			}
			b.WriteString("Now classify this new error:\n\n")
		}
	}

	if activityName == "" {
		activityName = "Unknown"
	}
	fmt.Fprintf(&b, "Activity: %s\n", activityName)
	fmt.Fprintf(&b, "Error Code: %d\n", int(rec.Code))
	fmt.Fprintf(&b, "Message: %s\n", rec.Message)
	fmt.Fprintf(&b, "Exception Type: %s\n", rec.Exception)
	fmt.Fprintf(&b, "Details: %s", rec.DetailsPretty())
	return b.String()
}

// Classify issues one synchronous request, no retries. Transport and
// protocol failures produce the same degraded shape and are told apart
// only in the logs.
func (c *LLMClassifier) Classify(ctx context.Context, rec domain.ErrorRecord, activityName string) (domain.FailureCategory, float64, string) {
	userPrompt := c.buildUserPrompt(rec, activityName)

	var content string
	var err error
	switch c.cfg.Provider {
	case "anthropic":
		content, err = c.callAnthropic(ctx, SystemPrompt(), userPrompt)
	default:
		content, err = c.callOpenAI(ctx, SystemPrompt(), userPrompt)
	}
	if err != nil {
		if connErr, ok := err.(*connectionError); ok {
			log.Printf("llm transport error model=%s url=%s: %v", c.cfg.Model, c.cfg.BaseURL, connErr.err)
			return domain.CategoryUnknown, 0.0, fmt.Sprintf("LLM connection failed: %v", connErr.err)
		}
		log.Printf("llm protocol error model=%s: %v", c.cfg.Model, err)
		return domain.CategoryUnknown, 0.0, fmt.Sprintf("LLM classification failed: %v", err)
	}

	category, confidence, reasoning, err := parseClassification(content)
	if err != nil {
		log.Printf("llm protocol error model=%s: %v", c.cfg.Model, err)
		return domain.CategoryUnknown, 0.0, fmt.Sprintf("LLM classification failed: %v", err)
	}
	return category, confidence, reasoning
}

// connectionError marks failures before an HTTP response existed, so
// they can be logged as transport rather than protocol problems.
type connectionError struct{ err error }

func (e *connectionError) Error() string { return e.err.Error() }
func (e *connectionError) Unwrap() error { return e.err }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *LLMClassifier) callOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: llmTemperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &connectionError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("LLM endpoint returned HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response body: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *LLMClassifier) callAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(c.cfg.APIKey)}
	if c.cfg.BaseURL != defaultLLMBaseURL {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

type llmClassification struct {
	Category   *string  `json:"category"`
	Confidence *float64 `json:"confidence"`
	Reasoning  *string  `json:"reasoning"`
}

// parseClassification strips optional markdown fences and decodes the
// {category, confidence, reasoning} object. All three keys are required
// and the category must map back to the enumeration.
func parseClassification(content string) (domain.FailureCategory, float64, string, error) {
	content = stripCodeFences(content)

	var parsed llmClassification
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.CategoryUnknown, 0, "", fmt.Errorf("parsing classification JSON: %w (response: %s)", err, truncate(content, 256))
	}
	if parsed.Category == nil || parsed.Confidence == nil || parsed.Reasoning == nil {
		return domain.CategoryUnknown, 0, "", fmt.Errorf("classification response missing required keys (response: %s)", truncate(content, 256))
	}

	category, err := domain.ParseLLMCategory(*parsed.Category)
	if err != nil {
		return domain.CategoryUnknown, 0, "", err
	}
	return category, *parsed.Confidence, *parsed.Reasoning, nil
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
