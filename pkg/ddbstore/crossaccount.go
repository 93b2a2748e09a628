package ddbstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AccountConfig names a partner AWS account a Registry can open a Store
// against via role assumption, generalizing the teacher's
// MultiAccountDB.AccountConfig to a single reusable credentials provider
// rather than a whole cached-connection manager.
type AccountConfig struct {
	RoleARN         string
	ExternalID      string
	Region          string
	SessionDuration time.Duration
}

// CrossAccountProviders hands out one stscreds.AssumeRoleProvider per
// partner account, memoizing by RoleARN since stscreds providers already
// cache and refresh their own credentials internally.
type CrossAccountProviders struct {
	mu        sync.Mutex
	stsClient *sts.Client
	cache     map[string]aws.CredentialsProvider
}

// NewCrossAccountProviders builds a provider factory against baseCfg, the
// AWS config used to call sts:AssumeRole itself.
func NewCrossAccountProviders(baseCfg aws.Config) *CrossAccountProviders {
	return &CrossAccountProviders{
		stsClient: sts.NewFromConfig(baseCfg),
		cache:     make(map[string]aws.CredentialsProvider),
	}
}

// Provider returns the assume-role credentials provider for acct, session
// scoped by sessionName (typically the partner or tenant identifier).
func (p *CrossAccountProviders) Provider(sessionName string, acct AccountConfig) (aws.CredentialsProvider, error) {
	if acct.RoleARN == "" {
		return nil, fmt.Errorf("firedoc: ddbstore: cross-account config is missing RoleARN")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[acct.RoleARN]; ok {
		return cached, nil
	}

	duration := acct.SessionDuration
	if duration == 0 {
		duration = time.Hour
	}
	externalID := acct.ExternalID

	provider := stscreds.NewAssumeRoleProvider(p.stsClient, acct.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		if externalID != "" {
			o.ExternalID = &externalID
		}
		o.RoleSessionName = fmt.Sprintf("firedoc-%s", sessionName)
		o.Duration = duration
	})
	p.cache[acct.RoleARN] = provider
	return provider, nil
}

// ConfigFor builds a Config that connects to acct's region using an
// assumed-role credentials provider, suitable for passing to New.
func ConfigFor(sessionName string, acct AccountConfig, providers *CrossAccountProviders) (Config, error) {
	creds, err := providers.Provider(sessionName, acct)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	cfg.Region = acct.Region
	cfg.CredentialsProvider = creds
	cfg.AWSConfigOptions = []func(*config.LoadOptions) error{
		config.WithRegion(acct.Region),
	}
	return cfg, nil
}
