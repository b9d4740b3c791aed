package customer

import (
	"context"
	"errors"

	"chemshop-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, email, password, name, phone string) (*Customer, error)
	Login(ctx context.Context, email, password string) (token string, c *Customer, err error)
}

type service struct {
	repo      Repository
	jwtSecret string
}

func NewService(repo Repository, jwtSecret string) Service {
	return &service{repo: repo, jwtSecret: jwtSecret}
}

func (s *service) Register(ctx context.Context, email, password, name, phone string) (*Customer, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	c := &Customer{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        phone,
		Role:         RoleCustomer,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("customer registered", zap.Int64("customer_id", c.ID))
	return c, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *Customer, error) {
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !CheckPassword(c.PasswordHash, password) {
		logger.FromCtx(ctx).Warn("failed login attempt", zap.String("email", email))
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtSecret, c)
	if err != nil {
		return "", nil, err
	}

	return token, c, nil
}
