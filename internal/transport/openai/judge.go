package openai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
	"github.com/fluentedge/essaylab/internal/metrics"
)

// Judge scores rubric dimensions through the chat completions API. The
// response is requested in a fixed line-oriented format and parsed locally;
// the model supplies scores and feedback only, never control decisions.
type Judge struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewJudge creates a chat-based judgment provider.
func NewJudge(cfg *Config) *Judge {
	return &Judge{
		client:      newClient(cfg),
		model:       cfg.ChatModel,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

const systemPrompt = "You are an experienced English teacher grading a student essay. " +
	"Reply strictly in the requested format and keep feedback concrete and encouraging."

// userPrompt renders the judgment request for one rubric dimension.
func userPrompt(req *domain.JudgmentRequest) string {
	ceiling := int(req.Dimension.Ceiling())
	var b strings.Builder
	fmt.Fprintf(&b, "Assess only the %s of the essay below, on a scale of 0-%d.\n", req.Dimension, ceiling)
	b.WriteString(req.Guidance + "\n\n")
	b.WriteString(req.PromptContext + "\n")
	b.WriteString("Student essay:\n" + req.Essay + "\n\n")
	b.WriteString("Reply in exactly this format:\n")
	fmt.Fprintf(&b, "Score: [number]/%d\n", ceiling)
	b.WriteString("Feedback: [2-3 sentences]\n")
	b.WriteString("Issues:\n- [one issue per line, or 'none']\n")
	b.WriteString("Suggestions:\n- [one suggestion per line]\n")
	return b.String()
}

// Judge implements the domain judgment contract. All failures, including
// malformed responses, wrap domain.ErrJudgmentUnavailable so the pipeline
// can degrade.
func (j *Judge) Judge(ctx context.Context, req domain.JudgmentRequest) (domain.Judgment, error) {
	dim := string(req.Dimension)

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: j.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(&req)},
		},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.JudgmentRequestsTotal.WithLabelValues(dim, "error").Inc()
		return domain.Judgment{}, parseAPIError("judgment", err, domain.ErrJudgmentUnavailable)
	}
	if len(resp.Choices) == 0 {
		metrics.JudgmentRequestsTotal.WithLabelValues(dim, "error").Inc()
		return domain.Judgment{}, fmt.Errorf("empty judgment response: %w", domain.ErrJudgmentUnavailable)
	}

	judgment, err := parseJudgment(resp.Choices[0].Message.Content, req.Dimension.Ceiling())
	if err != nil {
		metrics.JudgmentRequestsTotal.WithLabelValues(dim, "error").Inc()
		return domain.Judgment{}, fmt.Errorf("%w: %w", domain.ErrJudgmentUnavailable, err)
	}

	metrics.JudgmentRequestsTotal.WithLabelValues(dim, "success").Inc()
	metrics.JudgmentRequestDuration.WithLabelValues(dim).Observe(duration.Seconds())
	return judgment, nil
}

var scoreRe = regexp.MustCompile(`(?i)score:\s*(\d+(?:\.\d+)?)\s*/\s*\d+`)

// parseJudgment extracts the score, feedback, and bullet lists from the
// line-oriented model response. A response without a score line is
// malformed.
func parseJudgment(text string, ceiling float64) (domain.Judgment, error) {
	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return domain.Judgment{}, fmt.Errorf("no score line in response")
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("parse score %q: %w", m[1], err)
	}
	if score < 0 {
		score = 0
	}
	if score > ceiling {
		score = ceiling
	}

	judgment := domain.Judgment{Score: score}
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(strings.ToLower(line), "feedback:"):
			judgment.Feedback = strings.TrimSpace(line[len("feedback:"):])
			section = "feedback"
		case strings.HasPrefix(strings.ToLower(line), "issues:"):
			section = "issues"
		case strings.HasPrefix(strings.ToLower(line), "suggestions:"):
			section = "suggestions"
		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if item == "" || strings.EqualFold(item, "none") {
				continue
			}
			switch section {
			case "issues":
				judgment.Issues = append(judgment.Issues, item)
			case "suggestions":
				judgment.Suggestions = append(judgment.Suggestions, item)
			}
		case section == "feedback" && !scoreRe.MatchString(line):
			judgment.Feedback = strings.TrimSpace(judgment.Feedback + " " + line)
		}
	}
	return judgment, nil
}
