package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const maxNameLength = 100

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// UserService handles signup, login and profile lookup.
type UserService struct {
	repos  repomanager.Repositories
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(repos repomanager.Repositories, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{repos: repos, hasher: hasher, tokens: tokens, now: time.Now}
}

// Signup creates the account and logs it in.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return nil, common.Validationf("name must be at most %d characters", maxNameLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repos.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login checks credentials. Unknown emails and wrong passwords both yield
// common.ErrInvalidCredentials, and both pay for one bcrypt comparison.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.Verify(password, s.dummy())
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	return s.session(user)
}

// Profile returns the public view of the user.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

func (s *UserService) session(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("moneo-timing-equalizer")
	})
	return s.dummyHash
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", common.Validationf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.Validationf("email %q is malformed", email)
	}
	return email, nil
}
