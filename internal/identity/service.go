package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/session"
	"github.com/Willizberc/Pexfin/internal/validation"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses anything longer.
	maxPasswordBytes = 72
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=identity
type Repository interface {
	// CreateUserWithAccount stores the user and an empty account atomically.
	CreateUserWithAccount(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*User, error)
	UpdateProfilePicture(ctx context.Context, id uuid.UUID, ref string) (*User, error)

	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)

	CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// ConsumePasswordReset marks an unexpired, unused reset as used and
	// returns its user. Anything else is ErrResetTokenInvalid.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
}

// Pictures stores uploaded profile pictures and returns their reference.
type Pictures interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

type Service struct {
	repo     Repository
	tokens   *Tokens
	mailer   Mailer
	pub      live.Publisher
	pictures Pictures
	log      zerolog.Logger
	resetTTL time.Duration
	cost     int
	now      func() time.Time
}

type Option func(*Service)

func WithPublisher(p live.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithPictures(p Pictures) Option {
	return func(s *Service) { s.pictures = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithResetTTL(d time.Duration) Option {
	return func(s *Service) { s.resetTTL = d }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
	}
}

func NewService(repo Repository, tokens *Tokens, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		log:      zerolog.Nop(),
		resetTTL: time.Hour,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type SignUpParams struct {
	DisplayName string
	Email       string
	Password    string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(p *validation.Problems, field, password string) {
	if !p.Require(field, password) {
		return
	}

	switch {
	case len(password) < minPasswordLength:
		p.Add(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(password) > maxPasswordBytes:
		p.Add(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
}

func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*Credentials, error) {
	var p validation.Problems

	p.Require("display_name", params.DisplayName)

	email := normalizeEmail(params.Email)
	if p.Require("email", email) && !strings.Contains(email, "@") {
		p.Add("email", "is not an email address")
	}

	checkPassword(&p, "password", params.Password)

	if err := p.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		DisplayName:  strings.TrimSpace(params.DisplayName),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUserWithAccount(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}

		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info().Str("user_id", u.ID.String()).Msg("user signed up")

	return s.issue(ctx, u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}

	u.LastLoginAt = &now

	return s.issue(ctx, u)
}

func (s *Service) issue(_ context.Context, u *User) (*Credentials, error) {
	token, sess, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	s.publishAuth(u.ID, live.KindSignedIn)

	return &Credentials{User: u, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// SignOut revokes the session's token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, sess session.Session) error {
	if err := s.repo.RevokeToken(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	s.publishAuth(sess.UserID, live.KindSignedOut)

	return nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (session.Session, error) {
	sess, err := s.tokens.Parse(token)
	if err != nil {
		return session.Session{}, err
	}

	revoked, err := s.repo.IsTokenRevoked(ctx, sess.TokenID)
	if err != nil {
		return session.Session{}, fmt.Errorf("checking revocation: %w", err)
	}

	if revoked {
		return session.Session{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	return sess, nil
}

// RequestPasswordReset mails a single-use token. Unknown emails succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.log.Debug().Msg("password reset for unknown email")
		return nil
	}

	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	token := hex.EncodeToString(buf)
	if err := s.repo.CreatePasswordReset(ctx, u.ID, hashToken(token), s.now().Add(s.resetTTL)); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, u.Email, token); err != nil {
		return fmt.Errorf("sending reset token: %w", err)
	}

	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	var p validation.Problems

	p.Require("token", token)
	checkPassword(&p, "password", newPassword)

	if err := p.Err(); err != nil {
		return err
	}

	userID, err := s.repo.ConsumePasswordReset(ctx, hashToken(strings.TrimSpace(token)), s.now())
	if err != nil {
		return err
	}

	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	var p validation.Problems

	checkPassword(&p, "password", newPassword)

	if err := p.Err(); err != nil {
		return err
	}

	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	return nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, userID)
}

func (s *Service) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	return u.DisplayName, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName string) (*User, error) {
	var p validation.Problems

	p.Require("display_name", displayName)

	if err := p.Err(); err != nil {
		return nil, err
	}

	return s.repo.UpdateDisplayName(ctx, userID, strings.TrimSpace(displayName))
}

// SetProfilePicture stores a reference supplied by the client as is.
func (s *Service) SetProfilePicture(ctx context.Context, userID uuid.UUID, ref string) (*User, error) {
	var p validation.Problems

	p.Require("picture", ref)

	if err := p.Err(); err != nil {
		return nil, err
	}

	return s.repo.UpdateProfilePicture(ctx, userID, strings.TrimSpace(ref))
}

// ErrUploadsDisabled is returned by UploadProfilePicture without picture storage.
var ErrUploadsDisabled = errors.New("picture uploads are not configured")

// UploadProfilePicture stores the image and points the profile at it.
func (s *Service) UploadProfilePicture(ctx context.Context, userID uuid.UUID, contentType string, r io.Reader) (*User, error) {
	if s.pictures == nil {
		return nil, ErrUploadsDisabled
	}

	key := fmt.Sprintf("profiles/%s/%d", userID, s.now().UnixNano())

	ref, err := s.pictures.Put(ctx, key, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("storing picture: %w", err)
	}

	return s.repo.UpdateProfilePicture(ctx, userID, ref)
}

func (s *Service) publishAuth(userID uuid.UUID, kind live.Kind) {
	if s.pub == nil {
		return
	}

	s.pub.Publish(live.Event{
		Topic: live.Topic{UserID: userID, Collection: live.Auth},
		Kind:  kind,
		ID:    userID.String(),
	})
}
