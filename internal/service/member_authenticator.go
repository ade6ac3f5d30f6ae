package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anabada/anabada/internal/models"
	"github.com/anabada/anabada/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type MemberStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
}

// MemberAuthenticator checks email/password credentials against the member
// table and reports the member's authorities.
type MemberAuthenticator struct {
	members MemberStore
	cost    int
	logger  *logrus.Logger
}

func NewMemberAuthenticator(members MemberStore, logger *logrus.Logger) *MemberAuthenticator {
	return &MemberAuthenticator{
		members: members,
		cost:    bcrypt.DefaultCost,
		logger:  logger,
	}
}

// WithCost sets the bcrypt cost used for new password hashes.
func (a *MemberAuthenticator) WithCost(cost int) *MemberAuthenticator {
	a.cost = cost
	return a
}

func (a *MemberAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.Member, error) {
	member, err := a.loadActive(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return member, nil
}

// LoadAuthorities implements AuthorityLoader.
func (a *MemberAuthenticator) LoadAuthorities(ctx context.Context, subject string) ([]string, error) {
	member, err := a.loadActive(ctx, subject)
	if err != nil {
		return nil, err
	}
	return member.AuthorityList(), nil
}

func (a *MemberAuthenticator) SignUp(ctx context.Context, email, password, nickname string) (*models.Member, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &models.Member{
		Email:         email,
		PasswordHash:  string(hash),
		Nickname:      strings.TrimSpace(nickname),
		Authorities:   models.DefaultAuthority,
		AccountStatus: true,
	}

	if err := a.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrMemberExists
		}
		return nil, err
	}

	a.logger.WithField("email", email).Info("Member signed up")
	return member, nil
}

func (a *MemberAuthenticator) IsEmailUnique(ctx context.Context, email string) (bool, error) {
	_, err := a.members.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (a *MemberAuthenticator) loadActive(ctx context.Context, email string) (*models.Member, error) {
	member, err := a.members.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !member.AccountStatus {
		return nil, ErrAccountDisabled
	}

	return member, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
