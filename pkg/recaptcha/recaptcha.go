package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/httpclient"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultVerifyURL is Google's siteverify endpoint
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrVerificationFailed means the token was rejected or scored too low
var ErrVerificationFailed = fmt.Errorf("recaptcha verification failed: %w", apperrors.ErrUnauthorized)

// Response represents the response from Google's reCAPTCHA verification API
type Response struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"`
	Action      string   `json:"action,omitempty"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks reCAPTCHA tokens. v3 tokens below MinScore are rejected.
type Verifier struct {
	secretKey  string
	verifyURL  string
	minScore   float64
	httpClient httpclient.Client
}

// NewVerifier creates a new reCAPTCHA verifier
func NewVerifier(secretKey string, minScore float64, httpClient httpclient.Client) *Verifier {
	return &Verifier{
		secretKey:  secretKey,
		verifyURL:  DefaultVerifyURL,
		minScore:   minScore,
		httpClient: httpClient,
	}
}

// WithVerifyURL points the verifier at another siteverify endpoint
func (v *Verifier) WithVerifyURL(verifyURL string) *Verifier {
	v.verifyURL = verifyURL
	return v
}

// Verify checks a token. remoteIP is optional.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrVerificationFailed
	}
	start := time.Now()

	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", token)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build recaptcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		logger.LogAPICall("recaptcha", "siteverify", "error", metrics.MeasureDuration(start), zap.Error(err))
		return apperrors.UnavailableError("recaptcha", err)
	}
	defer resp.Body.Close()

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.LogAPICall("recaptcha", "siteverify", "error", metrics.MeasureDuration(start), zap.Error(err))
		return apperrors.UnavailableError("recaptcha", fmt.Errorf("failed to decode response: %w", err))
	}

	if !result.Success || (result.Score != nil && *result.Score < v.minScore) {
		logger.LogAPICall("recaptcha", "siteverify", "rejected", metrics.MeasureDuration(start),
			zap.Strings("error_codes", result.ErrorCodes))
		return ErrVerificationFailed
	}

	logger.LogAPICall("recaptcha", "siteverify", "success", metrics.MeasureDuration(start))
	return nil
}
