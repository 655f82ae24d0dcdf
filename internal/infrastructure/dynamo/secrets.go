package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/saas-starter-api/internal/domain"
)

// SecretRepo stores pending one-time passcodes. PK: identifier.
//
// Put is a plain single-item upsert, so issuing a new code atomically
// replaces any previous one for the same identifier — there is never a
// window with zero or two live records. Expiry is enforced at read time;
// the table's TTL on expires_at is housekeeping, not correctness.
type SecretRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSecretRepo(client *dynamodb.Client, tableName string) *SecretRepo {
	return &SecretRepo{client: client, tableName: tableName}
}

func (r *SecretRepo) Put(ctx context.Context, rec *domain.SecretRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal secret record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// Get returns the live record for identifier. An expired-but-not-swept row
// is reported as absent.
func (r *SecretRepo) Get(ctx context.Context, identifier string) (*domain.SecretRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("identifier", identifier),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("secret not found: %w", domain.ErrNotFound)
	}
	var rec domain.SecretRecord
	if err := unmarshalItem(out.Item, &rec); err != nil {
		return nil, err
	}
	if rec.Expired(time.Now()) {
		return nil, fmt.Errorf("secret expired: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

// Delete removes the record if it is still present. A delete-miss means a
// concurrent caller consumed it first; that is not an error.
func (r *SecretRepo) Delete(ctx context.Context, identifier string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("identifier", identifier),
		ConditionExpression: aws.String("attribute_exists(identifier)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}
