package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/google/uuid"
)

// SecretsAPI is the slice of the Secrets Manager client the store uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// Secrets is a secret-manager-style Store: one secret per username under a
// common name prefix, the whole record as the secret's JSON payload.
//
// Secrets Manager exposes no conditional write, so the version check is a
// re-read immediately before the write. The residual window between check and
// write is narrower than but not equal to the true compare-and-set of the
// table-style backends; deployments with heavy same-user write concurrency
// should prefer the DynamoDB or Redis backend.
// Every write carries a fresh idempotency token so SDK retries cannot be
// misread as conflicting versions.
type Secrets struct {
	client SecretsAPI
	prefix string
}

// NewSecrets wraps a Secrets Manager client as a credential store. prefix
// defaults to "enroll/credentials/".
func NewSecrets(client SecretsAPI, prefix string) *Secrets {
	if prefix == "" {
		prefix = "enroll/credentials/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Secrets{client: client, prefix: prefix}
}

func (s *Secrets) name(username string) string {
	return s.prefix + username
}

// Get implements Store.
func (s *Secrets) Get(ctx context.Context, username string) (Record, bool, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.name(username)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.SecretString == nil {
		return Record{}, false, fmt.Errorf("%w: secret has no string payload", ErrUnavailable)
	}

	var rec Record
	if err := json.Unmarshal([]byte(*out.SecretString), &rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt record: %v", ErrUnavailable, err)
	}
	return rec, true, nil
}

// Put implements Store.
func (s *Secrets) Put(ctx context.Context, rec Record) error {
	next := rec
	next.Version = rec.Version + 1
	payload, err := json.Marshal(next)
	if err != nil {
		return err
	}

	if rec.Version == 0 {
		_, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:               aws.String(s.name(rec.Username)),
			ClientRequestToken: aws.String(uuid.NewString()),
			SecretString:       aws.String(string(payload)),
		})
		if err != nil {
			var exists *types.ResourceExistsException
			if errors.As(err, &exists) {
				return ErrVersionConflict
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}

	current, found, err := s.Get(ctx, rec.Username)
	if err != nil {
		return err
	}
	if !found || current.Version != rec.Version {
		return ErrVersionConflict
	}

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:           aws.String(s.name(rec.Username)),
		ClientRequestToken: aws.String(uuid.NewString()),
		SecretString:       aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
