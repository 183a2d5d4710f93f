package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table is the record store over the single PK/SK table. Every I/O failure
// wraps domain.ErrStore; missing items wrap domain.ErrNotFound and failed
// conditions wrap domain.ErrConflict.
type Table struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewTable(client *dynamodb.Client, tableName string) *Table {
	return &Table{client: client, tableName: tableName, now: time.Now}
}

// Get reads the item at key into out.
func (t *Table) Get(ctx context.Context, key domain.Key, out any) error {
	res, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.tableName),
		Key:            compositeKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get %s: %w: %w", key, domain.ErrStore, err)
	}
	if res.Item == nil || expired(res.Item, t.now()) {
		return fmt.Errorf("item %s not found: %w", key, domain.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w: %w", key, domain.ErrStore, err)
	}
	return nil
}

// Query reads every item of pk whose SK starts with prefix, in SK order,
// into out (a pointer to a slice).
func (t *Table) Query(ctx context.Context, pk, prefix string, out any) error {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(t.client, &dynamodb.QueryInput{
		TableName:              aws.String(t.tableName),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
			"#sk": attrSK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("query %s/%s*: %w: %w", pk, prefix, domain.ErrStore, err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal query %s/%s*: %w: %w", pk, prefix, domain.ErrStore, err)
	}
	return nil
}

// Put writes e, defaulting CreatedAt and refreshing UpdatedAt.
func (t *Table) Put(ctx context.Context, e domain.Entity) error {
	h := e.Header()
	h.Stamp(t.now())
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w: %w", h.Key(), domain.ErrStore, err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w: %w", h.Key(), domain.ErrStore, err)
	}
	return nil
}

// Update applies u to the item at key.
func (t *Table) Update(ctx context.Context, key domain.Key, u *domain.Update) error {
	ue, err := buildUpdateExpr(u, t.now())
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	in := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.tableName),
		Key:                       compositeKey(key),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}
	if ue.Condition != "" {
		in.ConditionExpression = aws.String(ue.Condition)
	}
	if _, err := t.client.UpdateItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("update %s: %w", key, domain.ErrConflict)
		}
		return fmt.Errorf("update %s: %w: %w", key, domain.ErrStore, err)
	}
	return nil
}

// Delete removes the item at key and reports whether it existed.
func (t *Table) Delete(ctx context.Context, key domain.Key) (bool, error) {
	res, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(t.tableName),
		Key:          compositeKey(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w: %w", key, domain.ErrStore, err)
	}
	return len(res.Attributes) > 0, nil
}
