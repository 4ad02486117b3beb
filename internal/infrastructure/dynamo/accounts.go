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
	"github.com/go-identity-nosql/internal/domain"
)

// emailGuardPrefix marks the uniqueness guard items that reserve an email
// address. Guard items live in the accounts table under
// account_id = "email#<addr>" and carry no email attribute, so they never
// show up in the email-index GSI.
const emailGuardPrefix = "email#"

// AccountRepo provides typed DynamoDB operations for the accounts table.
// Registration writes span the credentials table too, so the repo knows
// both table names.
type AccountRepo struct {
	client        *dynamodb.Client
	tableName     string
	credTableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName, credTableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, credTableName: credTableName}
}

// Create inserts the account, its email uniqueness guard, and (when cred is
// non-nil) its credential in a single TransactWriteItems call. Either all
// three land or none do; a concurrent registration for the same email loses
// the conditional check on the guard item and surfaces as domain.ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account, cred *domain.Credential) error {
	accountItem, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	guardItem := map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: emailGuardPrefix + a.Email},
		"owner_id":   &types.AttributeValueMemberS{Value: a.AccountID},
	}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                guardItem,
			ConditionExpression: aws.String("attribute_not_exists(account_id)"),
		}},
		{Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      accountItem,
		}},
	}
	if cred != nil {
		credItem, err := attributevalue.MarshalMap(cred)
		if err != nil {
			return fmt.Errorf("marshal credential: %w", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.credTableName),
			Item:      credItem,
		}})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("email already registered: %w", domain.ErrConflict)
				}
			}
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": "email"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ScanPage returns a page of accounts for the admin listing.
// cursor is a base64-encoded account_id used as ExclusiveStartKey.
// Guard items carry no email attribute and are filtered out.
func (r *AccountRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("attribute_exists(email)"),
		Limit:            aws.Int32(limit),
	}
	if cursor != "" {
		accountID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("account_id", accountID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["account_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return accounts, nextCursor, nil
}

func encodeCursor(accountID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(accountID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
