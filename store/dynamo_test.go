package store

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo implements DynamoAPI over a map, honoring the two condition
// expressions Dynamo.Put emits.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
	err   error

	getCalls int
	putCalls int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}

	key, ok := params.Key["username"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing username key")
	}
	item, found := f.items[key.Value]
	if !found {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putCalls++
	if f.err != nil {
		return nil, f.err
	}

	username := params.Item["username"].(*types.AttributeValueMemberS).Value
	existing, exists := f.items[username]

	switch cond := *params.ConditionExpression; cond {
	case "attribute_not_exists(username)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	case "version = :expected":
		if !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
		current := existing["version"].(*types.AttributeValueMemberN).Value
		if expected != current {
			return nil, &types.ConditionalCheckFailedException{}
		}
	default:
		return nil, errors.New("unexpected condition expression " + cond)
	}

	f.items[username] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoContract(t *testing.T) {
	contractTest(t, NewDynamo(newFakeDynamo(), "credentials"))
}

func TestDynamoGetUsesConsistentRead(t *testing.T) {
	fake := newFakeDynamo()
	st := NewDynamo(&consistencyCheckingDynamo{fakeDynamo: fake, t: t}, "credentials")

	if _, _, err := st.Get(context.Background(), "alice"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}

type consistencyCheckingDynamo struct {
	*fakeDynamo
	t *testing.T
}

func (c *consistencyCheckingDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params.ConsistentRead == nil || !*params.ConsistentRead {
		c.t.Fatal("Get must request a strongly consistent read")
	}
	return c.fakeDynamo.GetItem(ctx, params, optFns...)
}

func TestDynamoTransportFailure(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throttled")
	st := NewDynamo(fake, "credentials")

	if _, _, err := st.Get(context.Background(), "alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Get, got %v", err)
	}
	if err := st.Put(context.Background(), Record{Username: "alice"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Put, got %v", err)
	}
}

func TestDynamoRecordRoundtrip(t *testing.T) {
	st := NewDynamo(newFakeDynamo(), "credentials")
	ctx := context.Background()

	want := Record{
		Username:       "alice",
		PasswordHash:   "$argon2id$fake",
		RequiresChange: false,
		TOTPSecret:     "GEZDGNBVGY3TQOJQ",
		TOTPConfirmed:  true,
		BiometricKey:   "ref:x",
	}
	if err := st.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := st.Get(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	want.Version = 1
	if got != want {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestDynamoVersionAttribute(t *testing.T) {
	fake := newFakeDynamo()
	st := NewDynamo(fake, "credentials")

	if err := st.Put(context.Background(), Record{Username: "alice"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var stored Record
	if err := attributevalue.UnmarshalMap(fake.items["alice"], &stored); err != nil {
		t.Fatalf("unmarshal stored item failed: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("persisted version: got %d, want 1", stored.Version)
	}
	if v := fake.items["alice"]["version"].(*types.AttributeValueMemberN).Value; v != strconv.Itoa(1) {
		t.Fatalf("raw version attribute: got %s, want 1", v)
	}
}
