package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// CaptchaVerifier decide si un token de CAPTCHA es valido para un cliente.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// TurnstileVerifier valida tokens de Cloudflare Turnstile.
// Sin secret configurado: pasa en desarrollo, falla cerrado en produccion.
// Servicio inalcanzable o respuesta invalida cuentan como fallo.
type TurnstileVerifier struct {
	secret     string
	production bool
	verifyURL  string
	client     *http.Client
	logger     *zap.Logger
}

func NewTurnstileVerifier(secret string, production bool, logger *zap.Logger) *TurnstileVerifier {
	return &TurnstileVerifier{
		secret:     strings.TrimSpace(secret),
		production: production,
		verifyURL:  turnstileVerifyURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) bool {
	if v.secret == "" {
		return !v.production
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("turnstile verify request failed", zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		if v.logger != nil {
			v.logger.Warn("turnstile verify response invalid", zap.Error(err))
		}
		return false
	}
	return result.Success
}
