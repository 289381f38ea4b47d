package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"

	"mindflow/internal/domain"
)

// UserInfo es el resultado del intercambio code -> identidad del proveedor.
type UserInfo struct {
	Subject string
	Email   string
	Name    string
}

// Exchanger resuelve el intercambio de authorization codes por identidad.
type Exchanger interface {
	Configured(kind domain.ProviderKind) bool
	AuthCodeURL(kind domain.ProviderKind, state string) (string, error)
	Exchange(ctx context.Context, kind domain.ProviderKind, code string) (UserInfo, error)
}

var ErrProviderNotConfigured = errors.New("oauth provider not configured")

const (
	googleUserInfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
	linkedinProfileURL   = "https://api.linkedin.com/v2/me"
	linkedinEmailURL     = "https://api.linkedin.com/v2/emailAddress?q=members&projection=(elements*(handle~))"
	googleCallbackPath   = "/users/auth/callback/google"
	linkedinCallbackPath = "/users/auth/callback/linkedin"
)

// HTTPExchanger implementa Exchanger con golang.org/x/oauth2.
type HTTPExchanger struct {
	configs map[domain.ProviderKind]*oauth2.Config
}

// NewHTTPExchanger arma los configs por proveedor; los no configurados quedan fuera.
func NewHTTPExchanger(baseURL, googleID, googleSecret, linkedinID, linkedinSecret string) *HTTPExchanger {
	baseURL = strings.TrimRight(baseURL, "/")
	configs := make(map[domain.ProviderKind]*oauth2.Config)
	if googleID != "" {
		configs[domain.ProviderGoogle] = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + googleCallbackPath,
			Scopes:       []string{"email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	if linkedinID != "" {
		configs[domain.ProviderLinkedIn] = &oauth2.Config{
			ClientID:     linkedinID,
			ClientSecret: linkedinSecret,
			RedirectURL:  baseURL + linkedinCallbackPath,
			Scopes:       []string{"r_liteprofile", "r_emailaddress"},
			Endpoint:     linkedin.Endpoint,
		}
	}
	return &HTTPExchanger{configs: configs}
}

func (e *HTTPExchanger) Configured(kind domain.ProviderKind) bool {
	_, ok := e.configs[kind]
	return ok
}

func (e *HTTPExchanger) AuthCodeURL(kind domain.ProviderKind, state string) (string, error) {
	cfg, ok := e.configs[kind]
	if !ok {
		return "", ErrProviderNotConfigured
	}
	return cfg.AuthCodeURL(state), nil
}

func (e *HTTPExchanger) Exchange(ctx context.Context, kind domain.ProviderKind, code string) (UserInfo, error) {
	cfg, ok := e.configs[kind]
	if !ok {
		return UserInfo{}, ErrProviderNotConfigured
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return UserInfo{}, fmt.Errorf("exchange code: %w", err)
	}

	client := cfg.Client(ctx, token)
	switch kind {
	case domain.ProviderGoogle:
		return fetchGoogleUserInfo(ctx, client)
	case domain.ProviderLinkedIn:
		return fetchLinkedInUserInfo(ctx, client)
	}
	return UserInfo{}, ErrProviderNotConfigured
}

func fetchGoogleUserInfo(ctx context.Context, client *http.Client) (UserInfo, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, client, googleUserInfoURL, &payload); err != nil {
		return UserInfo{}, err
	}
	if payload.ID == "" || payload.Email == "" {
		return UserInfo{}, errors.New("google userinfo incomplete")
	}
	return UserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func fetchLinkedInUserInfo(ctx context.Context, client *http.Client) (UserInfo, error) {
	var profile struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}
	if err := getJSON(ctx, client, linkedinProfileURL, &profile); err != nil {
		return UserInfo{}, err
	}

	var emailPayload struct {
		Elements []struct {
			Handle struct {
				EmailAddress string `json:"emailAddress"`
			} `json:"handle~"`
		} `json:"elements"`
	}
	if err := getJSON(ctx, client, linkedinEmailURL, &emailPayload); err != nil {
		return UserInfo{}, err
	}
	if profile.ID == "" || len(emailPayload.Elements) == 0 || emailPayload.Elements[0].Handle.EmailAddress == "" {
		return UserInfo{}, errors.New("linkedin userinfo incomplete")
	}

	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	return UserInfo{Subject: profile.ID, Email: emailPayload.Elements[0].Handle.EmailAddress, Name: name}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("userinfo http error: status=%d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
