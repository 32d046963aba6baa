package devops

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type ParameterClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore reads decrypted SSM parameters. Values are cached for the
// life of the process, which spans warm Lambda invocations.
type ParameterStore struct {
	client ParameterClient
	mu     sync.Mutex
	cache  map[string]string
}

func NewParameterStore(client ParameterClient) *ParameterStore {
	return &ParameterStore{client: client, cache: make(map[string]string)}
}

// ConnectParameterStore uses the default AWS credential chain.
func ConnectParameterStore(ctx context.Context) (*ParameterStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewParameterStore(ssm.NewFromConfig(cfg)), nil
}

func (p *ParameterStore) Get(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache[name]; ok {
		return v, nil
	}

	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	p.cache[name] = *out.Parameter.Value
	return *out.Parameter.Value, nil
}

// LoadYAML unmarshals the YAML document stored in parameter name into out.
func (p *ParameterStore) LoadYAML(ctx context.Context, name string, out interface{}) error {
	value, err := p.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("unmarshal yaml in %s: %w", name, err)
	}
	return nil
}
