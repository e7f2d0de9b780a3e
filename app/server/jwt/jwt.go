package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 令牌类型，写入签名负载中，防止刷新令牌被当作访问令牌重放（反之亦然）
const (
	TypeAccess            = "access"
	TypeRefresh           = "refresh"
	TypePasswordReset     = "password_reset"
	TypeEmailVerification = "email_verification"
)

var ErrUnexpectedTokenType = errors.New("unexpected token type")

type JWT struct {
	key []byte
}

type Claims struct {
	jwt.RegisteredClaims
	UserID    uint   `json:"uid"`
	TokenType string `json:"type"`
}

func New(key string) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}

	return &JWT{key: []byte(key)}, nil
}

func (j *JWT) Sign(userID uint, tokenType string, ttl time.Duration) (string, error) {
	// 创建声明， ID 保证同一秒内签出的令牌也互不相同
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		TokenType: tokenType,
	}

	// 创建令牌，签名并返回
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.key)
}

func (j *JWT) Parse(tokenString string, expectedType string) (*Claims, error) {
	// 检查是否有效
	if len(tokenString) == 0 {
		return nil, errors.New("token string is empty")
	}

	// 解析并校验签名与有效期
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse jwt failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// 匹配令牌类型
	if claims.TokenType != expectedType {
		return nil, ErrUnexpectedTokenType
	}

	return claims, nil
}
