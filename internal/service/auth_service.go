package service

import (
	"context"
	"errors"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/config"
	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.AccountRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.AccountRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	acc, err := s.repo.FindByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	// A branch account without a branch cannot be scoped; refuse it.
	if acc.Role == model.RoleBranch && acc.BranchID == nil {
		return nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	token, err := s.generateToken(acc, ttl)
	if err != nil {
		return nil, err
	}

	resp := &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Account: dto.AccountResponse{
			ID:       acc.ID.String(),
			Email:    acc.Email,
			Role:     string(acc.Role),
			BranchID: uuidPtrString(acc.BranchID),
		},
	}
	if acc.Branch != nil {
		name := acc.Branch.Name
		resp.Account.BranchName = &name
	}
	return resp, nil
}

// generateToken signs HS256 claims read back by middleware.JWTAuth.
// branch_id is only present for branch accounts.
func (s *authService) generateToken(acc *model.Account, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"account_id": acc.ID.String(),
		"role":       string(acc.Role),
		"exp":        now.Add(duration).Unix(),
		"iat":        now.Unix(),
	}
	if acc.Role == model.RoleBranch && acc.BranchID != nil {
		claims["branch_id"] = acc.BranchID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
