package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client the store uses. It exists so
// tests can substitute a fake without a network.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Dynamo is a table-style Store backed by a DynamoDB table keyed on
// username. Writes carry a condition expression on the record version, so a
// stale write is rejected server-side rather than last-writer-wins.
type Dynamo struct {
	client DynamoAPI
	table  string
}

// NewDynamo wraps a DynamoDB client and table name as a credential store.
func NewDynamo(client DynamoAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

// Get implements Store. Reads are strongly consistent: the engine's
// read-decide-write cycle depends on observing its own prior write.
func (d *Dynamo) Get(ctx context.Context, username string) (Record, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return Record{}, false, nil
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt record: %v", ErrUnavailable, err)
	}
	return rec, true, nil
}

// Put implements Store.
func (d *Dynamo) Put(ctx context.Context, rec Record) error {
	next := rec
	next.Version = rec.Version + 1

	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}
	if rec.Version == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(username)")
	} else {
		input.ConditionExpression = aws.String("version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.Version)},
		}
	}

	if _, err := d.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrVersionConflict
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
