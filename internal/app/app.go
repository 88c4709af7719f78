// Package app wires the chat proxy from configuration. Both entrypoints
// share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/credential"
	"portfolio-chat/internal/integrations/openai"
	"portfolio-chat/internal/integrations/paramstore"
	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

// Proxy is the wired chat use case plus the in-memory ledger, if one is in
// use, so the caller can run its eviction loop.
type Proxy struct {
	Chat   *usecase.ChatService
	Memory *ratelimit.MemoryStore
}

// AWSLoader loads AWS configuration. It is only called when a component
// needs AWS.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// DefaultAWSLoader uses the SDK's default credential chain.
func DefaultAWSLoader(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// NewProxy builds the credential chain, limiter and upstream client.
func NewProxy(ctx context.Context, cfg *config.Proxy, loadAWS AWSLoader) (*Proxy, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if loadAWS == nil {
		loadAWS = DefaultAWSLoader
	}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	getAWS := func() (aws.Config, error) {
		if awsLoaded {
			return awsCfg, nil
		}
		c, err := loadAWS(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg, awsLoaded = c, true
		return awsCfg, nil
	}

	keys := credential.Chain{credential.Static(cfg.APIKey)}
	if cfg.APIKeyParam != "" {
		c, err := getAWS()
		if err != nil {
			return nil, err
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(c))
		if err != nil {
			return nil, err
		}
		ps, err := credential.NewParamStore(ssmClient, cfg.APIKeyParam)
		if err != nil {
			return nil, err
		}
		keys = append(keys, ps)
	}

	out := &Proxy{}
	var limiter usecase.RateLimiter
	if cfg.RateLimit.Enabled {
		var store ratelimit.Store
		switch cfg.RateLimit.Backend {
		case config.BackendDynamoDB:
			c, err := getAWS()
			if err != nil {
				return nil, err
			}
			ds, err := ratelimit.NewDynamoStore(awsdynamodb.NewFromConfig(c), cfg.RateLimit.Table)
			if err != nil {
				return nil, err
			}
			store = ds
		default:
			out.Memory = ratelimit.NewMemoryStore()
			store = out.Memory
		}
		l, err := ratelimit.New(store, cfg.RateLimit.Max, cfg.RateLimit.Window)
		if err != nil {
			return nil, err
		}
		limiter = l
	}

	llm, err := openai.NewClient(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(&http.Client{}),
	)
	if err != nil {
		return nil, err
	}

	chat, err := usecase.NewChatService(keys, llm, limiter, usecase.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, err
	}
	out.Chat = chat
	return out, nil
}
