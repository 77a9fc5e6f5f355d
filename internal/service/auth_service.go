package service

import (
	"regexp"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidPhone 校验手机号格式
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// AdminClaims 管理端令牌载荷
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserClaims 买家端令牌载荷
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Phone  string `json:"phone"`
	jwt.RegisteredClaims
}

// AuthService 登录认证服务
type AuthService struct {
	admins  repository.AdminRepository
	users   repository.UserRepository
	jwtCfg  config.JWTConfig
	userCfg config.JWTConfig
}

// NewAuthService 创建认证服务
func NewAuthService(admins repository.AdminRepository, users repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		admins:  admins,
		users:   users,
		jwtCfg:  cfg.JWT,
		userCfg: cfg.UserJWT,
	}
}

// AdminLogin 管理员登录，返回签名后的令牌
func (s *AuthService) AdminLogin(username, password string) (string, *models.Admin, error) {
	admin, err := s.admins.GetByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if admin == nil {
		return "", nil, ErrPasswordInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrPasswordInvalid
	}

	now := time.Now()
	claims := AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.jwtCfg.ExpireHours) * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", nil, err
	}

	if err := s.admins.UpdateLastLogin(admin.ID, now); err != nil {
		logger.Warnw("更新管理员登录时间失败", "admin_id", admin.ID, "error", err)
	}
	return token, admin, nil
}

// ParseAdminToken 解析管理端令牌
func (s *AuthService) ParseAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// UserRegister 买家注册
func (s *AuthService) UserRegister(phone, password string) (*models.User, error) {
	if !ValidPhone(phone) {
		return nil, ErrPhoneInvalid
	}
	existing, err := s.users.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{Phone: phone, PasswordHash: string(hash)}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UserLogin 买家登录，返回签名后的令牌
func (s *AuthService) UserLogin(phone, password string) (string, *models.User, error) {
	user, err := s.users.GetByPhone(phone)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrPasswordInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrPasswordInvalid
	}

	now := time.Now()
	claims := UserClaims{
		UserID: user.ID,
		Phone:  user.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.userCfg.ExpireHours) * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.userCfg.SecretKey))
	if err != nil {
		return "", nil, err
	}

	if err := s.users.UpdateLastLogin(user.ID, now); err != nil {
		logger.Warnw("更新买家登录时间失败", "user_id", user.ID, "error", err)
	}
	return token, user, nil
}

// ParseUserToken 解析买家端令牌
func (s *AuthService) ParseUserToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.userCfg.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
