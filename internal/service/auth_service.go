package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	magicLinkTokenBytes = 32
	tempTokenBytes      = 32
)

// dummyHash is compared against when the email is unknown so that sign-in
// latency does not reveal whether an account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vanish-timing-equalizer"), bcrypt.DefaultCost)

// Mailer delivers the magic-link email. Delivery is fire-and-forget: a
// failed send must not change the issuance response.
type Mailer interface {
	Send(ctx context.Context, toEmail, magicLinkURL string) error
}

// OAuthExchanger turns a provider authorization code into a verified email
// address. The concrete implementation lives in oauth.go.
type OAuthExchanger interface {
	Exchange(ctx context.Context, code string) (email string, err error)
}

type AuthService struct {
	userRepo      repository.UserRepository
	magicRepo     repository.MagicLinkRepository
	twoFactorRepo repository.TwoFactorRepository
	mailer        Mailer
	oauth         OAuthExchanger
	cfg           *config.Config
	now           func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, magicRepo repository.MagicLinkRepository, twoFactorRepo repository.TwoFactorRepository, mailer Mailer, oauth OAuthExchanger, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		magicRepo:     magicRepo,
		twoFactorRepo: twoFactorRepo,
		mailer:        mailer,
		oauth:         oauth,
		cfg:           cfg,
		now:           time.Now,
	}
}

type AuthResult struct {
	User         *domain.User
	SessionToken string
}

// SignInResult is either an issued session or an AwaitingSecondFactor
// intermediate carrying a short-lived temp token.
type SignInResult struct {
	Session              *AuthResult
	SecondFactorRequired bool
	TempToken            string
}

type RegisterInput struct {
	Email    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < 8 {
		return nil, &domain.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, domain.ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueSession(user)
}

// SignIn verifies a password. Unknown email and wrong password are the same
// error, and both cost one bcrypt comparison.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.afterCredential(ctx, user)
}

// afterCredential is where every successful entry path converges: either a
// session is issued directly or, when the account requires a second factor,
// a single-use temp token is handed back instead.
func (s *AuthService) afterCredential(ctx context.Context, user *domain.User) (*SignInResult, error) {
	if !user.TwoFactorEnabled {
		session, err := s.issueSession(user)
		if err != nil {
			return nil, err
		}
		return &SignInResult{Session: session}, nil
	}

	raw, err := GenerateOpaqueToken(tempTokenBytes)
	if err != nil {
		return nil, err
	}

	token := &domain.TwoFactorToken{
		ID:        uuid.New(),
		TokenHash: HashToken(raw),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.TempTokenExpiry),
		CreatedAt: s.now(),
	}
	if err := s.twoFactorRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &SignInResult{SecondFactorRequired: true, TempToken: raw}, nil
}

// CompleteSecondFactor exchanges a temp token plus a valid one-time code for
// the real session. Attempts are bounded per token; exceeding the bound
// burns the token and forces a restart of the whole flow.
func (s *AuthService) CompleteSecondFactor(ctx context.Context, tempToken, code string) (*AuthResult, error) {
	token, err := s.twoFactorRepo.GetByHash(ctx, HashToken(tempToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	now := s.now()
	if token.UsedAt != nil {
		return nil, domain.ErrTokenAlreadyUsed
	}
	if !token.ExpiresAt.After(now) {
		return nil, domain.ErrTokenExpired
	}
	if token.Attempts >= s.cfg.SecondFactorTries {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	if !totp.Validate(code, user.TwoFactorSecret) {
		attempts, incErr := s.twoFactorRepo.IncrementAttempts(ctx, token.ID)
		if incErr != nil {
			return nil, incErr
		}
		if attempts >= s.cfg.SecondFactorTries {
			if err := s.twoFactorRepo.MarkUsed(ctx, token.ID, now); err != nil {
				return nil, err
			}
			return nil, domain.ErrTooManyAttempts
		}
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.twoFactorRepo.MarkUsed(ctx, token.ID, now); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// RequestMagicLink mints and records a single-use token and hands the link
// to the mailer. The response is identical whether or not the email maps to
// an account, so callers cannot probe for registered addresses.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	raw, err := GenerateOpaqueToken(magicLinkTokenBytes)
	if err != nil {
		return err
	}

	token := &domain.MagicLinkToken{
		ID:        uuid.New(),
		TokenHash: HashToken(raw),
		Email:     normalized,
		ExpiresAt: s.now().Add(s.cfg.MagicLinkExpiry),
		CreatedAt: s.now(),
	}
	if err := s.magicRepo.Create(ctx, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/magic?token=%s", s.cfg.FrontendOrigin, raw)

	// Fire and forget: the token exists and is valid even if delivery fails.
	go func() {
		if err := s.mailer.Send(context.Background(), normalized, link); err != nil {
			log.Warn().Err(err).Msg("magic link delivery failed")
		}
	}()

	return nil
}

// VerifyMagicLink consumes a token atomically and signs the holder in,
// creating the account on first use. A token never verifies twice, even
// under concurrent requests.
func (s *AuthService) VerifyMagicLink(ctx context.Context, rawToken string) (*SignInResult, error) {
	if rawToken == "" || len(rawToken) != magicLinkTokenBytes*2 {
		return nil, domain.ErrTokenInvalid
	}

	token, err := s.magicRepo.Consume(ctx, HashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		if errors.Is(err, domain.ErrTokenExpired) || errors.Is(err, domain.ErrTokenAlreadyUsed) {
			return nil, err
		}
		return nil, err
	}

	user, err := s.findOrCreateByEmail(ctx, token.Email)
	if err != nil {
		return nil, err
	}

	return s.afterCredential(ctx, user)
}

// SignInWithOAuth exchanges a provider authorization code for a verified
// email and converges on the common session path.
func (s *AuthService) SignInWithOAuth(ctx context.Context, code string) (*SignInResult, error) {
	if s.oauth == nil {
		return nil, domain.ErrInvalidCredentials
	}

	email, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("oauth exchange failed")
		return nil, domain.ErrInvalidCredentials
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.findOrCreateByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}

	return s.afterCredential(ctx, user)
}

func (s *AuthService) findOrCreateByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &domain.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueSession(user *domain.User) (*AuthResult, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, SessionToken: signed}, nil
}

// GetCurrentUser verifies a session token and loads its account. Every
// verification failure is the same ErrUnauthenticated; the sub-reason is
// never surfaced.
func (s *AuthService) GetCurrentUser(ctx context.Context, sessionToken string) (*domain.User, error) {
	userID, err := s.ValidateSessionToken(sessionToken)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ValidateSessionToken checks signature and expiry and returns the user id
// claim.
func (s *AuthService) ValidateSessionToken(sessionToken string) (uuid.UUID, error) {
	token, err := jwt.Parse(sessionToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, domain.ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	return userID, nil
}

// EnableSecondFactor provisions a TOTP secret for the account and returns
// the otpauth provisioning URL. The flag only flips once ConfirmSecondFactor
// sees a valid code from the authenticator.
func (s *AuthService) EnableSecondFactor(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "vanish",
		AccountName: user.Email,
	})
	if err != nil {
		return "", err
	}

	user.TwoFactorSecret = key.Secret()
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", err
	}
	return key.URL(), nil
}

// ConfirmSecondFactor turns enforcement on after one valid code proves the
// authenticator was provisioned.
func (s *AuthService) ConfirmSecondFactor(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" || !totp.Validate(code, user.TwoFactorSecret) {
		return domain.ErrInvalidCredentials
	}

	user.TwoFactorEnabled = true
	user.UpdatedAt = s.now()
	return s.userRepo.Update(ctx, user)
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", &domain.ValidationError{Field: "email", Message: "invalid email address"}
	}
	return trimmed, nil
}
