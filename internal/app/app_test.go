package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/config"
)

func baseConfig() *config.Proxy {
	return &config.Proxy{
		APIKey:          "sk-test",
		BaseURL:         "http://127.0.0.1:1",
		Model:           "gpt-3.5-turbo",
		Temperature:     0.4,
		UpstreamTimeout: time.Second,
		RelayMode:       "streamed",
		RateLimit: config.RateLimit{
			Enabled: true,
			Max:     30,
			Window:  time.Minute,
			Backend: config.BackendMemory,
		},
	}
}

func failingAWS(calls *int) AWSLoader {
	return func(context.Context) (aws.Config, error) {
		*calls++
		return aws.Config{}, errors.New("no credentials")
	}
}

func TestNewProxy_MemoryLedgerWithoutAWS(t *testing.T) {
	calls := 0
	p, err := NewProxy(context.Background(), baseConfig(), failingAWS(&calls))
	require.NoError(t, err)
	require.NotNil(t, p.Chat)
	require.NotNil(t, p.Memory)
	require.Zero(t, calls)
}

func TestNewProxy_RateLimitDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit.Enabled = false
	p, err := NewProxy(context.Background(), cfg, failingAWS(new(int)))
	require.NoError(t, err)
	require.Nil(t, p.Memory)
}

func TestNewProxy_DynamoAndParamShareOneAWSLoad(t *testing.T) {
	cfg := baseConfig()
	cfg.APIKeyParam = "/chat/openai"
	cfg.RateLimit.Backend = config.BackendDynamoDB
	cfg.RateLimit.Table = "chat-rate-limit"

	calls := 0
	loader := func(context.Context) (aws.Config, error) {
		calls++
		return aws.Config{Region: "eu-west-1"}, nil
	}
	p, err := NewProxy(context.Background(), cfg, loader)
	require.NoError(t, err)
	require.Nil(t, p.Memory)
	require.Equal(t, 1, calls)
}

func TestNewProxy_AWSFailure(t *testing.T) {
	cfg := baseConfig()
	cfg.APIKeyParam = "/chat/openai"
	_, err := NewProxy(context.Background(), cfg, failingAWS(new(int)))
	require.ErrorContains(t, err, "load AWS config")
}

func TestNewProxy_NilConfig(t *testing.T) {
	_, err := NewProxy(context.Background(), nil, nil)
	require.Error(t, err)
}
