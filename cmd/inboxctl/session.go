package main

import (
	"context"
	"errors"

	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/mbeoliero/inbox/sdk"
)

// resolveToken returns the configured token, minting one when only the secret is known
func resolveToken(cfg *Config) (string, error) {
	if cfg.UserId == "" {
		return "", errors.New("user id is required (--user, INBOX_USER_ID or user_id)")
	}
	if cfg.Token == "" {
		if cfg.JWTSecret == "" {
			return "", errors.New("token is required (--token, INBOX_TOKEN or token)")
		}
		return jwt.GenerateToken(cfg.UserId, cfg.PlatformId, cfg.JWTSecret, 1)
	}
	if cfg.JWTSecret != "" {
		if _, err := jwt.ValidateToken(cfg.Token, cfg.JWTSecret, cfg.UserId, cfg.PlatformId); err != nil {
			return "", err
		}
	}
	return cfg.Token, nil
}

// openSession starts a sync engine for the configured user. withPush attaches the realtime transport.
func openSession(ctx context.Context, cfg *Config, withPush bool) (*chatsync.Engine, error) {
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}

	client, err := sdk.NewClient(cfg.Server, sdk.WithToken(token))
	if err != nil {
		return nil, err
	}

	var transport chatsync.Transport
	if withPush {
		transport = sdk.NewRealtime(cfg.Server, sdk.RealtimeConfig{Token: token})
	}

	engine := chatsync.New(cfg.UserId, client, transport, chatsync.Options{Window: cfg.Window})
	if err := engine.Start(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}
