package service

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// SecretsManagerClient is the subset of the AWS Secrets Manager client used by
// the secret store. Declared here so tests can substitute a fake.
type SecretsManagerClient interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsManagerClient = (*secretsmanager.Client)(nil)

// AWSSecretStore implements SecretStore against AWS Secrets Manager.
//
// Wrapped DEKs are stored as base64 secret strings under fieldvault/<id>.
// Re-creating an existing secret falls through to PutSecretValue, which adds a
// new version; reads always return the current version.
type AWSSecretStore struct {
	client SecretsManagerClient
}

// NewAWSSecretStore creates an AWSSecretStore from an existing client.
func NewAWSSecretStore(client SecretsManagerClient) *AWSSecretStore {
	return &AWSSecretStore{client: client}
}

// OpenAWSSecretStore loads the default AWS configuration for the region and
// returns a SecretStore backed by Secrets Manager.
func OpenAWSSecretStore(ctx context.Context, region string) (*AWSSecretStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load AWS config")
	}

	return NewAWSSecretStore(secretsmanager.NewFromConfig(cfg)), nil
}

func (s *AWSSecretStore) secretName(id cryptoDomain.SecretAddress) string {
	return fmt.Sprintf("fieldvault/%s", id)
}

// CreateSecret stores the payload under the given id. When the secret already
// exists, a new version is added instead.
func (s *AWSSecretStore) CreateSecret(
	ctx context.Context,
	id cryptoDomain.SecretAddress,
	payload []byte,
) (cryptoDomain.SecretAddress, error) {
	name := s.secretName(id)
	encoded := base64.StdEncoding.EncodeToString(payload)

	_, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(encoded),
	})
	if err != nil {
		var exists *types.ResourceExistsException
		if !stderrors.As(err, &exists) {
			return "", apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, err.Error())
		}

		_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(name),
			SecretString: aws.String(encoded),
		})
		if err != nil {
			return "", apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, err.Error())
		}
	}

	return id, nil
}

// GetSecret retrieves the current version of the secret for the id.
func (s *AWSSecretStore) GetSecret(
	ctx context.Context,
	addr cryptoDomain.SecretAddress,
) ([]byte, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName(addr)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if stderrors.As(err, &notFound) {
			return nil, cryptoDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, err.Error())
	}

	if result.SecretString == nil {
		return nil, cryptoDomain.ErrSecretNotFound
	}

	payload, err := base64.StdEncoding.DecodeString(*result.SecretString)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, "secret payload is not valid base64")
	}

	return payload, nil
}
