// Package ddbstore implements driver.Store against Amazon DynamoDB,
// mirroring the teacher's pkg/session + pkg/transaction split: session.go
// owns client construction, ddbstore.go and transaction.go own the
// driver.Store surface itself.
package ddbstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// configLoadFunc is overridable in tests, matching the teacher's
// pkg/session/session.go.
var configLoadFunc = awsconfig.LoadDefaultConfig

// Config configures a Store's underlying DynamoDB client.
type Config struct {
	CredentialsProvider aws.CredentialsProvider
	Region              string
	Endpoint            string
	AWSConfigOptions    []func(*awsconfig.LoadOptions) error
	DynamoDBOptions     []func(*dynamodb.Options)
	MaxRetries          int
}

// DefaultConfig returns the connection defaults.
func DefaultConfig() Config {
	return Config{Region: "us-east-1", MaxRetries: 3}
}

type session struct {
	client    *dynamodb.Client
	awsConfig aws.Config
}

func newSession(cfg Config) (*session, error) {
	options := make([]func(*awsconfig.LoadOptions) error, 0, len(cfg.AWSConfigOptions)+4)
	if cfg.Region != "" {
		options = append(options, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.CredentialsProvider != nil {
		options = append(options, awsconfig.WithCredentialsProvider(cfg.CredentialsProvider))
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	options = append(options, awsconfig.WithRetryMode(aws.RetryModeStandard))
	options = append(options, awsconfig.WithRetryMaxAttempts(maxAttempts))

	httpClient := &http.Client{Timeout: 30 * time.Second}
	options = append(options, awsconfig.WithHTTPClient(httpClient))
	options = append(options, cfg.AWSConfigOptions...)

	awsCfg, err := configLoadFunc(context.Background(), options...)
	if err != nil {
		return nil, fmt.Errorf("firedoc: failed to load AWS config: %w", err)
	}
	if awsCfg.Retryer == nil {
		awsCfg.Retryer = func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) { o.MaxAttempts = maxAttempts })
		}
	}

	clientOptions := make([]func(*dynamodb.Options), 0, 1+len(cfg.DynamoDBOptions))
	clientOptions = append(clientOptions, func(o *dynamodb.Options) {
		o.Region = awsCfg.Region
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if o.Retryer == nil {
			o.Retryer = awsCfg.Retryer()
		}
		if o.HTTPClient == nil {
			o.HTTPClient = httpClient
		}
	})
	clientOptions = append(clientOptions, cfg.DynamoDBOptions...)

	client := dynamodb.NewFromConfig(awsCfg, clientOptions...)
	return &session{client: client, awsConfig: awsCfg}, nil
}
