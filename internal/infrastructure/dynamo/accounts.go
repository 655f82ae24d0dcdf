package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/saas-starter-api/internal/domain"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
// The table is keyed by normalized email so the conditional put enforces
// email uniqueness at the storage layer; an account_id-index GSI serves
// lookups by id.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// Create inserts a new account. The condition expression rejects a second
// account with the same email even under concurrent signups.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", domain.NormalizeEmail(email)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := unmarshalItem(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("account_id-index"),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": "account_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: accountID}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := unmarshalItem(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Update(ctx context.Context, email string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", domain.NormalizeEmail(email)),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// SetVerified flips the verified flag to true. The write is idempotent:
// re-applying it to an already-verified account is a no-op, and nothing in
// this codebase ever writes verified=false after creation.
func (r *AccountRepo) SetVerified(ctx context.Context, email string) error {
	return r.Update(ctx, email, map[string]interface{}{fieldVerified: true})
}

func (r *AccountRepo) SoftDelete(ctx context.Context, email string) error {
	now := time.Now().UTC()
	return r.Update(ctx, email, map[string]interface{}{
		fieldEnable:    false,
		fieldDeletedAt: now.Format(time.RFC3339),
	})
}

// ScanPage returns a page of enabled accounts.
// cursor is a base64-encoded email used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *AccountRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		// "enable" is a DynamoDB reserved word, hence the name placeholder.
		FilterExpression:         aws.String("#e = :t"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		email, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("email", email)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["email"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return accounts, nextCursor, nil
}

func encodeCursor(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
