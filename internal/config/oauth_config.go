package config

import (
	"strconv"
	"time"
)

type OAuthConfig interface {
	GetIssuer() string
	GetDefaultAudience() string
	GetAuthCodeTimeout() time.Duration
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultIDTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetIssuer() string {
	return GetEnv("ISSUER", "http://localhost:8080")
}

func (OAuth) GetDefaultAudience() string {
	return GetEnv("DEFAULT_AUDIENCE", "identity-server")
}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return durationEnv("AUTH_CODE_TIMEOUT_SECONDS", 600*time.Second)
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return durationEnv("ACCESS_TOKEN_EXPIRY_SECONDS", 15*time.Minute)
}

func (OAuth) GetDefaultIDTokenExpiry() time.Duration {
	return durationEnv("ID_TOKEN_EXPIRY_SECONDS", time.Hour)
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return durationEnv("REFRESH_TOKEN_EXPIRY_SECONDS", 7*24*time.Hour)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
