package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"
	"smartstock-analyst/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var tickerSymbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

// geminiAIRepository is an implementation of AIRepository that uses the
// Google Gemini API.
type geminiAIRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (AIRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	return &geminiAIRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

// ExtractTicker asks the model to pull a ticker symbol out of free-form
// text. Returns an empty symbol error when the model finds none.
func (r *geminiAIRepository) ExtractTicker(ctx context.Context, text string) (string, error) {
	prompt := BuildTickerExtractionPrompt(text)

	geminiResp, err := r.executeGeminiAIRequest(ctx, r.cfg.Gemini.Model, prompt, nil)
	if err != nil {
		return "", err
	}

	rawJSON, err := responseText(geminiResp)
	if err != nil {
		return "", err
	}

	var result dto.TickerExtractionResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return "", fmt.Errorf("%w: failed to unmarshal ticker extraction result: %v", entity.ErrModelResponseMalformed, err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(result.Symbol))
	if symbol == "" || symbol == "NONE" || !tickerSymbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("no ticker symbol identified in text")
	}
	return symbol, nil
}

// AnalyzeMarket performs the combined sentiment and trend analysis with a
// single model call.
func (r *geminiAIRepository) AnalyzeMarket(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
	prompt := BuildMarketAnalysisPrompt(req, simplified)

	geminiResp, err := r.executeGeminiAIRequest(ctx, r.cfg.Gemini.Model, prompt, nil)
	if err != nil {
		return nil, err
	}

	return r.parseMarketAnalysisResponse(geminiResp)
}

// AnalyzeChart performs the vision analysis of an uploaded chart image.
func (r *geminiAIRepository) AnalyzeChart(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error) {
	prompt := BuildChartAnalysisPrompt(symbol, strict)

	inline := &dto.InlineData{
		MimeType: mediaType,
		Data:     base64.StdEncoding.EncodeToString(image),
	}
	geminiResp, err := r.executeGeminiAIRequest(ctx, r.cfg.Gemini.VisionModel, prompt, inline)
	if err != nil {
		return nil, err
	}

	return r.parseChartAnalysisResponse(geminiResp)
}

func (r *geminiAIRepository) executeGeminiAIRequest(ctx context.Context, model, prompt string, inline *dto.InlineData) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	parts := []dto.Part{{Text: prompt}}
	if inline != nil {
		parts = append(parts, dto.Part{InlineData: inline})
	}
	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Parts: parts}},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal payload", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", r.cfg.Gemini.BaseURL, model, r.cfg.Gemini.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		r.logger.Error("Failed to create new http request", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to send request to Gemini API", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Received non-OK response from Gemini API", logger.IntField("status_code", resp.StatusCode))
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-OK response from Gemini API: %d - %s", resp.StatusCode, string(body))
	}

	var geminiResp dto.GeminiAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		r.logger.Error("Failed to decode response body", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &geminiResp, nil
}

func (r *geminiAIRepository) parseMarketAnalysisResponse(resp *dto.GeminiAPIResponse) (*dto.MarketAnalysisResult, error) {
	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var result dto.MarketAnalysisResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		r.logger.Error("Failed to unmarshal market analysis response", logger.ErrorField(err), logger.StringField("response", rawJSON))
		return nil, fmt.Errorf("%w: failed to unmarshal market analysis result: %v", entity.ErrModelResponseMalformed, err)
	}

	if err := validateMarketAnalysis(&result); err != nil {
		r.logger.Error("Market analysis response failed schema validation", logger.ErrorField(err), logger.StringField("response", rawJSON))
		return nil, err
	}

	return &result, nil
}

func (r *geminiAIRepository) parseChartAnalysisResponse(resp *dto.GeminiAPIResponse) (*dto.ChartAnalysisResult, error) {
	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var result dto.ChartAnalysisResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		r.logger.Error("Failed to unmarshal chart analysis response", logger.ErrorField(err), logger.StringField("response", rawJSON))
		return nil, fmt.Errorf("%w: failed to unmarshal chart analysis result: %v", entity.ErrModelResponseMalformed, err)
	}

	if err := validateChartAnalysis(&result); err != nil {
		r.logger.Error("Chart analysis response failed schema validation", logger.ErrorField(err), logger.StringField("response", rawJSON))
		return nil, err
	}

	return &result, nil
}

// responseText pulls the model's text out of the first candidate and strips
// markdown code fences.
func responseText(resp *dto.GeminiAPIResponse) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content found in Gemini response", entity.ErrModelResponseMalformed)
	}

	jsonString := resp.Candidates[0].Content.Parts[0].Text
	jsonString = strings.TrimSpace(jsonString)
	jsonString = strings.Trim(jsonString, "`json\n`")
	return strings.TrimSpace(jsonString), nil
}

func validateMarketAnalysis(result *dto.MarketAnalysisResult) error {
	if result.CompanyFullName == "" {
		return fmt.Errorf("%w: missing required field company_full_name", entity.ErrModelResponseMalformed)
	}
	switch result.Trend {
	case entity.TrendRising, entity.TrendFalling, entity.TrendFlat:
	default:
		return fmt.Errorf("%w: trend %q outside allowed labels", entity.ErrModelResponseMalformed, result.Trend)
	}
	switch result.Sentiment {
	case entity.SentimentBullish, entity.SentimentBearish, entity.SentimentNeutral:
	default:
		return fmt.Errorf("%w: sentiment %q outside allowed labels", entity.ErrModelResponseMalformed, result.Sentiment)
	}
	if result.SentimentNarrative == "" {
		return fmt.Errorf("%w: missing required field sentiment_narrative", entity.ErrModelResponseMalformed)
	}
	if result.InvestorInsight == "" {
		return fmt.Errorf("%w: missing required field investor_insight", entity.ErrModelResponseMalformed)
	}
	return nil
}

func validateChartAnalysis(result *dto.ChartAnalysisResult) error {
	switch result.TrendBias {
	case entity.SentimentBullish, entity.SentimentBearish, entity.SentimentNeutral:
	default:
		return fmt.Errorf("%w: trend_bias %q outside allowed labels", entity.ErrModelResponseMalformed, result.TrendBias)
	}
	if result.Analysis == "" {
		return fmt.Errorf("%w: missing required field analysis", entity.ErrModelResponseMalformed)
	}
	return nil
}
