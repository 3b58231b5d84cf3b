package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LLMConfig configures the external language-model provider
type LLMConfig struct {
	APIKey    string
	BaseURL   string // e.g. https://api.openai.com/v1
	ModelName string
	Timeout   time.Duration
}

// ExternalLLMProvider calls a remote chat-completions endpoint to generate
// insight text. Calls carry a bounded timeout and every failure class
// (timeout, auth, quota, transport) maps to a ProviderError reason.
type ExternalLLMProvider struct {
	cfg    LLMConfig
	client *http.Client
}

// NewExternalLLMProvider creates the external provider
func NewExternalLLMProvider(cfg LLMConfig) *ExternalLLMProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ExternalLLMProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Provider
func (p *ExternalLLMProvider) Name() string { return ProviderExternalLLM }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
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
}

// Generate implements Provider
func (p *ExternalLLMProvider) Generate(ctx context.Context, in Input) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert battery health analyst providing clear, actionable insights about EV battery health."},
			{Role: "user", Content: p.prompt(in)},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		reason := ReasonTransport
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			reason = ReasonTimeout
		}
		return "", &ProviderError{Provider: p.Name(), Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonTransport, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonAuth,
			Err: fmt.Errorf("endpoint returned status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonQuota,
			Err: fmt.Errorf("endpoint returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonTransport,
			Err: fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, truncate(respBody, 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonResponse, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonResponse,
			Err: fmt.Errorf("response contains no choices")}
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &ProviderError{Provider: p.Name(), Reason: ReasonResponse,
			Err: fmt.Errorf("response contains empty content")}
	}

	return text, nil
}

func (p *ExternalLLMProvider) prompt(in Input) string {
	r := in.Request
	return fmt.Sprintf(`You are an expert EV battery health analyst. Analyze the following battery parameters and provide clear, actionable insights.

Battery Status:
- Health: %.1f%%
- Remaining Useful Life (RUL): %.0f cycles
- Temperature: %g°C
- Voltage: %gV
- Current: %gA
- Charging Cycles: %g
- State of Charge: %g%%

Please provide:
1. A brief analysis (2-3 sentences) explaining why the battery health is at %.1f%%
2. The main factor(s) causing health decline
3. 2-3 specific, actionable recommendations

Keep the response concise (100-150 words) and focused on practical advice.`,
		in.HealthPercentage, in.RawRUL,
		r.BatteryTemperature, r.Voltage, r.Current, r.ChargingCycles, r.StateOfCharge,
		in.HealthPercentage)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...[truncated]"
}
