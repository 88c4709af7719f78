package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const (
	pkPrefixClient = "CLIENT#"
	skPrefixHit    = "HIT#"

	// Fixed-width UTC timestamps so sort keys order chronologically.
	hitTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps the ledger in a DynamoDB table shared by every instance.
// Each hit is one item; expired items are removed by the table's TTL on "ttl".
// Count-then-put is not atomic, so concurrent bursts may overshoot slightly.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	newID     func() string
}

// NewDynamoStore creates a DynamoStore over the named table (PK/SK string keys).
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("ratelimit: dynamodb api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("ratelimit: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, newID: uuid.NewString}, nil
}

func clientPK(key string) string {
	return pkPrefixClient + key
}

func hitSK(ts time.Time, id string) string {
	return skPrefixHit + ts.UTC().Format(hitTimeLayout) + "#" + id
}

func (d *DynamoStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	count, err := d.countSince(ctx, key, now.Add(-window))
	if err != nil {
		return false, err
	}
	if count >= limit {
		return false, nil
	}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			"PK":  &types.AttributeValueMemberS{Value: clientPK(key)},
			"SK":  &types.AttributeValueMemberS{Value: hitSK(now, d.newID())},
			"ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(window).Unix(), 10)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: put hit: %w", err)
	}
	return true, nil
}

// countSince counts hits strictly after cutoff. Items past the cutoff that TTL
// has not yet deleted fall outside the key condition and are ignored.
func (d *DynamoStore) countSince(ctx context.Context, key string, cutoff time.Time) (int, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK > :from"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: clientPK(key)},
			// "~" sorts after the uuid suffix, excluding hits exactly at cutoff.
			":from": &types.AttributeValueMemberS{Value: skPrefixHit + cutoff.UTC().Format(hitTimeLayout) + "#~"},
		},
		Select:         types.SelectCount,
		ConsistentRead: aws.Bool(true),
	}

	total := 0
	for {
		out, err := d.api.Query(ctx, in)
		if err != nil {
			return 0, fmt.Errorf("ratelimit: count hits: %w", err)
		}
		if out == nil {
			return total, nil
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
