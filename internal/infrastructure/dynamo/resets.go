package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-nosql/internal/domain"
)

// ResetRepo provides typed DynamoDB operations for the password_resets table.
// PK: reset_token. Multiple unconsumed requests per account may coexist;
// expires_at is the table's TTL attribute.
type ResetRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewResetRepo(client *dynamodb.Client, tableName string) *ResetRepo {
	return &ResetRepo{client: client, tableName: tableName}
}

func (r *ResetRepo) Put(ctx context.Context, p *domain.PasswordReset) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal password reset: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Consume atomically deletes the token and returns the record it held.
// The conditional delete guarantees that of any number of concurrent
// consumers exactly one gets the record; the rest see domain.ErrNotFound.
func (r *ResetRepo) Consume(ctx context.Context, token string) (*domain.PasswordReset, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("reset_token", token),
		ConditionExpression: aws.String("attribute_exists(reset_token)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("reset token not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var p domain.PasswordReset
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
