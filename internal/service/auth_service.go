package service

import (
	"errors"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	JWT      config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{UserRepo: userRepo, JWT: jwtCfg}
}

type RegisterInput struct {
	Username string         `json:"username" binding:"required,min=3,max=50"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=8"`
	FullName string         `json:"fullName"`
	Role     model.UserRole `json:"role"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a user on the free tier. Admin accounts are provisioned
// out of band, never through this endpoint.
func (s *AuthService) Register(in RegisterInput) (*model.User, error) {
	taken, err := s.UserRepo.ExistsByUsername(in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrUsernameTaken
	}

	role := in.Role
	if role != model.RoleUserCPNS && role != model.RoleUserPOLRI {
		role = model.RoleUserCPNS
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		FullName: in.FullName,
		Role:     role,
		Tier:     model.TierFree,
		IsActive: true,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(in LoginInput) (string, *model.User, error) {
	user, err := s.UserRepo.FindByUsername(in.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	_ = s.UserRepo.UpdateLastSeen(user.ID)
	return token, user, nil
}

// GetUser returns a user by id.
func (s *AuthService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// SetTier changes a user's subscription tier. Admin only.
func (s *AuthService) SetTier(id uint, tier model.Tier) error {
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	return s.UserRepo.UpdateTier(id, tier)
}
