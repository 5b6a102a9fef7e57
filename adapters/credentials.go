package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"remo-humidifier/application"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

const (
	CredentialsDefaultPath       = "credentials.json"
	TokenDefaultPath             = "token.json"
	CredentialsDefaultListenAddr = "127.0.0.1:0"

	authorizedUserType = "authorized_user"
)

var SheetsReadonlyScopes = []string{sheets.SpreadsheetsReadonlyScope}

// savedCredentials is the token file layout, the same one gcloud writes for user credentials.
type savedCredentials struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

type CredentialManagerParams struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string

	// ListenAddr is the loopback address the consent redirect is received on.
	ListenAddr string
	// OpenURL receives the consent URL. Defaults to logging it.
	OpenURL func(consentURL string)

	Log zerolog.Logger
}

func (p *CredentialManagerParams) EnsureDefaults() {
	if p.CredentialsPath == "" {
		p.CredentialsPath = CredentialsDefaultPath
	}
	if p.TokenPath == "" {
		p.TokenPath = TokenDefaultPath
	}
	if len(p.Scopes) == 0 {
		p.Scopes = SheetsReadonlyScopes
	}
	if p.ListenAddr == "" {
		p.ListenAddr = CredentialsDefaultListenAddr
	}
	if p.OpenURL == nil {
		log := p.Log
		p.OpenURL = func(consentURL string) {
			log.Warn().Str("url", consentURL).Msg("open this URL in a browser to authorize spreadsheet access")
		}
	}
}

type CredentialManager struct {
	params CredentialManagerParams

	log zerolog.Logger
}

func NewCredentialManager(params CredentialManagerParams) *CredentialManager {
	params.EnsureDefaults()
	return &CredentialManager{params: params, log: params.Log}
}

// LoadSaved returns the token source stored in the token file. Missing and unreadable files are
// both reported as not found.
func (m *CredentialManager) LoadSaved(ctx context.Context) (oauth2.TokenSource, bool) {
	data, err := os.ReadFile(m.params.TokenPath)
	if err != nil {
		return nil, false
	}

	var saved savedCredentials
	if err := json.Unmarshal(data, &saved); err != nil || saved.RefreshToken == "" {
		return nil, false
	}

	creds, err := google.CredentialsFromJSON(ctx, data, m.params.Scopes...)
	if err != nil {
		return nil, false
	}
	return creds.TokenSource, true
}

// Authorize returns the saved credentials, or runs the consent flow and saves its result.
func (m *CredentialManager) Authorize(ctx context.Context) (oauth2.TokenSource, error) {
	if ts, ok := m.LoadSaved(ctx); ok {
		m.log.Info().Str("path", m.params.TokenPath).Msg("using saved credentials")
		return ts, nil
	}

	cfg, tok, err := m.consent(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrAuthFailure, err)
	}

	if tok.RefreshToken == "" {
		m.log.Warn().Msg("no refresh token returned, consent will be requested again on next start")
	} else if err := m.save(cfg, tok); err != nil {
		return nil, fmt.Errorf("%w: save token: %w", application.ErrAuthFailure, err)
	}

	return cfg.TokenSource(ctx, tok), nil
}

type consentResult struct {
	code string
	err  error
}

func (m *CredentialManager) consent(ctx context.Context) (*oauth2.Config, *oauth2.Token, error) {
	data, err := os.ReadFile(m.params.CredentialsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, m.params.Scopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse credentials: %w", err)
	}

	ln, err := net.Listen("tcp", m.params.ListenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen for redirect: %w", err)
	}
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	results := make(chan consentResult, 1)
	deliver := func(r consentResult) {
		select {
		case results <- r:
		default:
		}
	}

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			deliver(consentResult{err: fmt.Errorf("consent denied: %s", e)})
			http.Error(w, "authorization failed: "+e, http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		deliver(consentResult{code: code})
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
	}).Methods(http.MethodGet)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log.Error().Err(err).Msg("consent callback server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.log.Info().Str("redirect_url", cfg.RedirectURL).Msg("waiting for authorization")
	m.params.OpenURL(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var res consentResult
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}
	return cfg, tok, nil
}

func (m *CredentialManager) save(cfg *oauth2.Config, tok *oauth2.Token) error {
	payload, err := json.Marshal(savedCredentials{
		Type:         authorizedUserType,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: tok.RefreshToken,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.params.TokenPath, payload, 0o600); err != nil {
		return err
	}
	m.log.Info().Str("path", m.params.TokenPath).Msg("credentials saved")
	return nil
}
