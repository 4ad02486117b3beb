package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-identity-nosql/internal/domain"
)

// CredentialRepo provides typed DynamoDB operations for the credentials table.
// PK: account_id, one credential per account.
type CredentialRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCredentialRepo(client *dynamodb.Client, tableName string) *CredentialRepo {
	return &CredentialRepo{client: client, tableName: tableName}
}

// Put inserts or overwrites the account's credential.
func (r *CredentialRepo) Put(ctx context.Context, c *domain.Credential) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CredentialRepo) Get(ctx context.Context, accountID string) (*domain.Credential, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("credential not found: %w", domain.ErrNotFound)
	}
	var c domain.Credential
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
