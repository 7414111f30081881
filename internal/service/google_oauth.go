package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/service/auth"
	"golang.org/x/oauth2"
)

// Default Google endpoints / Points d'accès Google par défaut
const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleProfile is the subset of the OpenID userinfo we read / Sous-ensemble du userinfo OpenID
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleOAuthService runs the authorization code flow with PKCE / Flux authorization code avec PKCE
type GoogleOAuthService struct {
	enabled     bool
	oauth       *oauth2.Config
	userInfoURL string
	users       ports.UserRepository
	tokens      ports.RefreshTokenStore
	httpClient  *http.Client
}

// NewGoogleOAuthService builds the flow from config / Construit le flux depuis la config
func NewGoogleOAuthService(users ports.UserRepository, tokens ports.RefreshTokenStore, conf *config.Config) *GoogleOAuthService {
	g := conf.Google
	authURL, tokenURL, userInfoURL := g.AuthURL, g.TokenURL, g.UserInfoURL
	if authURL == "" {
		authURL = googleAuthURL
	}
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	scopes := g.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	return &GoogleOAuthService{
		enabled: g.Enabled,
		oauth: &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: userInfoURL,
		users:       users,
		tokens:      tokens,
		httpClient:  http.DefaultClient,
	}
}

// Enabled reports whether Google sign-in is configured / Indique si la connexion Google est active
func (s *GoogleOAuthService) Enabled() bool { return s.enabled }

// AuthCodeURL returns the consent URL plus the state and PKCE verifier to keep / URL de consentement, state et verifier
func (s *GoogleOAuthService) AuthCodeURL() (authURL, state, verifier string, err error) {
	if !s.enabled {
		return "", "", "", ErrOAuthDisabled
	}
	state, err = auth.GenerateSecureToken()
	if err != nil {
		return "", "", "", apperr.Internal(err)
	}
	verifier = oauth2.GenerateVerifier()
	authURL = s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	return authURL, state, verifier, nil
}

// Exchange trades the code for a profile and resolves the local account / Échange le code et résout le compte local
func (s *GoogleOAuthService) Exchange(ctx context.Context, code, verifier string) (*domain.User, error) {
	if !s.enabled {
		return nil, ErrOAuthDisabled
	}
	if code == "" {
		return nil, ErrOAuthFailed
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		slog.Warn("google code exchange failed", "err", err)
		return nil, ErrOAuthFailed.Wrap(err)
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		slog.Warn("google userinfo failed", "err", err)
		return nil, ErrOAuthFailed.Wrap(err)
	}

	return s.resolveUser(ctx, profile)
}

func (s *GoogleOAuthService) fetchProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	client := s.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, errors.New("userinfo lacks subject or email")
	}
	return &profile, nil
}

// resolveUser links by google id, then by verified email, else creates the account / Rattache ou crée le compte
func (s *GoogleOAuthService) resolveUser(ctx context.Context, p *GoogleProfile) (*domain.User, error) {
	user, err := s.users.GetByGoogleID(ctx, p.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNoRecord) {
		return nil, apperr.FromRepository(err, "user", apperr.OpRead)
	}

	email := normalizeEmail(p.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !p.EmailVerified {
			return nil, ErrOAuthFailed.Withf("google account email is not verified")
		}
		if err := s.users.LinkGoogleAccount(ctx, user.ID, p.Subject, p.Picture); err != nil {
			return nil, apperr.FromRepository(err, "user", apperr.OpWrite)
		}
		if !user.EmailVerified {
			// the local password was dropped with the link; so are its sessions
			if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
				return nil, apperr.Internal(fmt.Errorf("revoke sessions of unverified account: %w", err))
			}
		}
		slog.Info("google account linked", "user_id", user.ID, "took_over_unverified", !user.EmailVerified)
		return s.users.GetByID(ctx, user.ID)
	case !errors.Is(err, repository.ErrNoRecord):
		return nil, apperr.FromRepository(err, "user", apperr.OpRead)
	}

	googleID := p.Subject
	created, err := s.users.Create(ctx, &domain.User{
		Email:         email,
		FirstName:     p.GivenName,
		LastName:      p.FamilyName,
		Role:          domain.RoleUser,
		Provider:      domain.ProviderGoogle,
		GoogleID:      &googleID,
		AvatarURL:     p.Picture,
		EmailVerified: true,
	})
	if err != nil {
		return nil, apperr.FromRepository(err, "user", apperr.OpWrite)
	}
	slog.Info("user created from google sign-in", "user_id", created.ID)
	return created, nil
}
