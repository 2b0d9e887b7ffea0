package config

import "time"

type App struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	Env           string
}
