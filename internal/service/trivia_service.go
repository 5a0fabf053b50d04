package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"trivia_backend/internal/config"
	"trivia_backend/internal/util"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"
	"trivia_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Question is a playable question from any source, already HTML-decoded.
type Question struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Text             string   `json:"text"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Tags             []string `json:"tags,omitempty"`
}

// QuestionFetcher loads questions from the public trivia API.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, category, difficulty string, limit int) ([]Question, error)
}

const DefaultAPICategory = "general_knowledge"

var categoryMap = map[string]string{
	// display names offered by the client
	"general knowledge": "general_knowledge",
	"film":              "film_and_tv",
	"music":             "music",
	"geography":         "geography",
	"history":           "history",
	"sports":            "sport_and_leisure",
	"science & nature":  "science",
	"arts & literature": "arts_and_literature",
	// legacy numeric category ids
	"9":  "general_knowledge",
	"17": "science",
	"21": "sport_and_leisure",
	"23": "history",
	"11": "film_and_tv",
	"12": "music",
	"22": "geography",
	"18": "science",
}

var apiCategories = map[string]bool{
	"arts_and_literature": true,
	"film_and_tv":         true,
	"food_and_drink":      true,
	"general_knowledge":   true,
	"geography":           true,
	"history":             true,
	"music":               true,
	"science":             true,
	"society_and_culture": true,
	"sport_and_leisure":   true,
}

// MapCategory turns a display name, legacy id or API slug into an API category.
func MapCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if slug, ok := categoryMap[key]; ok {
		return slug
	}
	if apiCategories[key] {
		return key
	}
	return DefaultAPICategory
}

type apiQuestion struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Question struct {
		Text string `json:"text"`
	} `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Difficulty       string   `json:"difficulty"`
	Tags             []string `json:"tags"`
}

type TriviaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewTriviaClient(cfg config.TriviaConfig) *TriviaClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &TriviaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

func (c *TriviaClient) FetchQuestions(ctx context.Context, category, difficulty string, limit int) ([]Question, error) {
	apiCategory := MapCategory(category)
	ctx, span := tracing.StartSpan(ctx, "trivia_api.fetch",
		attribute.String("trivia.category", apiCategory),
		attribute.String("trivia.difficulty", difficulty),
		attribute.Int("trivia.limit", limit),
	)
	defer span.End()

	questions, status, err := c.fetch(ctx, apiCategory, difficulty, limit)
	monitoring.TriviaAPIRequests.WithLabelValues(status).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Log.Warn("Trivia API fetch failed",
			zap.String("category", apiCategory),
			zap.String("difficulty", difficulty),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", util.ErrTriviaUnavailable, err)
	}
	return questions, nil
}

func (c *TriviaClient) fetch(ctx context.Context, category, difficulty string, limit int) ([]Question, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "rate_limited", err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("categories", category)
	if d := strings.ToLower(difficulty); d == "easy" || d == "medium" || d == "hard" {
		params.Set("difficulties", d)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/questions?"+params.Encode(), nil)
	if err != nil {
		return nil, "error", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "error", err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, status, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var raw []apiQuestion
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, status, fmt.Errorf("decode response: %w", err)
	}
	if len(raw) == 0 {
		return nil, status, fmt.Errorf("empty question list")
	}

	out := make([]Question, 0, len(raw))
	for _, q := range raw {
		incorrect := make([]string, 0, len(q.IncorrectAnswers))
		for _, a := range q.IncorrectAnswers {
			incorrect = append(incorrect, html.UnescapeString(a))
		}
		out = append(out, Question{
			ID:               q.ID,
			Category:         q.Category,
			Difficulty:       q.Difficulty,
			Text:             html.UnescapeString(q.Question.Text),
			CorrectAnswer:    html.UnescapeString(q.CorrectAnswer),
			IncorrectAnswers: incorrect,
			Tags:             q.Tags,
		})
	}
	return out, status, nil
}
