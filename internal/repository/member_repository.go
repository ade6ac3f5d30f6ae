package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anabada/anabada/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

var ErrAlreadyExists = errors.New("already exists")

// DynamoDBAPI is the subset of *dynamodb.Client used by the repositories.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type MemberRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *logrus.Logger
}

func NewMemberRepository(client DynamoDBAPI, tableName string, logger *logrus.Logger) *MemberRepository {
	return &MemberRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetByEmail returns ErrNotFound when no member has the email.
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	member := &models.Member{Email: email}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: member.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: member.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get member from DynamoDB")
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	if result.Item == nil {
		return nil, ErrNotFound
	}

	var dbMember models.Member
	if err := attributevalue.UnmarshalMap(result.Item, &dbMember); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal member from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal member: %w", err)
	}

	return &dbMember, nil
}

// Create stores a new member and fails with ErrAlreadyExists if the email
// is taken.
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	now := time.Now()
	member.CreatedAt = now
	member.UpdatedAt = now

	item, err := attributevalue.MarshalMap(member)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal member for DynamoDB")
		return fmt.Errorf("failed to marshal member: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: member.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: member.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to create member in DynamoDB")
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}
