package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role 是身份提供方在令牌中声明的账号角色。
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取账号信息。
type TokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	Role      Role      `json:"role"`
	jwt.RegisteredClaims
}

// AuthService 校验身份提供方签发的 RS256 访问令牌。
// 配置了私钥时还可以签发令牌，仅供 admin 工具在开发环境使用。
type AuthService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewAuthService 解析 PEM 密钥并构造服务实例；privateKeyPEM 可为空。
func NewAuthService(publicKeyPEM, privateKeyPEM []byte, tokenTTL time.Duration) (*AuthService, error) {
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	s := &AuthService{publicKey: publicKey, tokenTTL: tokenTTL, now: time.Now}
	if len(privateKeyPEM) > 0 {
		s.privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse rsa private key: %w", err)
		}
	}
	return s, nil
}

// IssueToken 为账号签发访问令牌。
func (s *AuthService) IssueToken(accountID uuid.UUID, role Role) (string, error) {
	if s.privateKey == nil {
		return "", errors.New("issue token: no private key configured")
	}
	if accountID == uuid.Nil {
		return "", errors.New("issue token: account id is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("issue token: invalid role %q", role)
	}
	now := s.now()
	claims := TokenClaims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken 解析并验证 JWT。
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.AccountID == uuid.Nil {
		return nil, errors.New("token has no account id")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("token has invalid role %q", claims.Role)
	}
	return claims, nil
}

// TokenTTL 暴露签发令牌的有效期。
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
