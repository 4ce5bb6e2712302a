package fake

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type SecretsManagerOutputs struct {
	GetSecretValue *APIResponse
}

type SecretsManagerClient struct {
	Outputs SecretsManagerOutputs
	Calls   int
}

func (m *SecretsManagerClient) GetSecretValue(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.Calls++
	out, ok := m.Outputs.GetSecretValue.Response().(*secretsmanager.GetSecretValueOutput)
	if !ok {
		return nil, m.Outputs.GetSecretValue.Err()
	}
	return out, m.Outputs.GetSecretValue.Err()
}

func MockGetSecretValueOutput(secret string) *secretsmanager.GetSecretValueOutput {
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(secret)}
}
