package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

// txStore is the driver.Store handed to a RunTransaction callback. Reads
// execute immediately as consistent single-item gets against parent; writes
// buffer into pendingWrites and flush in one TransactWriteItems call once
// the callback returns nil.
type txStore struct {
	parent        *Store
	readOnly      bool
	pendingWrites []types.TransactWriteItem
}

func (tx *txStore) Get(ctx context.Context, ref driver.Ref) (driver.Snapshot, error) {
	return tx.parent.Get(ctx, ref)
}

func (tx *txStore) GetAll(ctx context.Context, refs []driver.Ref) ([]driver.Snapshot, error) {
	return tx.parent.GetAll(ctx, refs)
}

func (tx *txStore) Create(ctx context.Context, ref driver.Ref, data map[string]any) error {
	if tx.readOnly {
		return fmt.Errorf("firedoc: ddbstore: cannot create %q in a read-only transaction", ref.Path())
	}
	item, err := mapToItem(data)
	if err != nil {
		return err
	}
	keyAV, err := toAttributeValue(normalizeID(ref.ID))
	if err != nil {
		return err
	}
	item[keyAttr] = keyAV

	tx.pendingWrites = append(tx.pendingWrites, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(tx.parent.tableName(ref.Collection)),
			Item:                item,
			ConditionExpression: aws.String(fmt.Sprintf("attribute_not_exists(#%s)", keyAttr)),
			ExpressionAttributeNames: map[string]string{
				"#" + keyAttr: keyAttr,
			},
		},
	})
	return nil
}

func (tx *txStore) Set(ctx context.Context, ref driver.Ref, data map[string]any, opts driver.SetOptions) error {
	if tx.readOnly {
		return fmt.Errorf("firedoc: ddbstore: cannot set %q in a read-only transaction", ref.Path())
	}
	if opts.Merge {
		return tx.Update(ctx, ref, data)
	}

	item, err := mapToItem(data)
	if err != nil {
		return err
	}
	keyAV, err := toAttributeValue(normalizeID(ref.ID))
	if err != nil {
		return err
	}
	item[keyAttr] = keyAV

	tx.pendingWrites = append(tx.pendingWrites, types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(tx.parent.tableName(ref.Collection)),
			Item:      item,
		},
	})
	return nil
}

func (tx *txStore) Update(ctx context.Context, ref driver.Ref, data map[string]any) error {
	if tx.readOnly {
		return fmt.Errorf("firedoc: ddbstore: cannot update %q in a read-only transaction", ref.Path())
	}
	key, err := keyItem(ref)
	if err != nil {
		return err
	}
	expr, names, values, err := buildUpdateExpression(data)
	if err != nil {
		return err
	}
	if expr == "" {
		return nil
	}

	tx.pendingWrites = append(tx.pendingWrites, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(tx.parent.tableName(ref.Collection)),
			Key:                       key,
			UpdateExpression:          aws.String(expr),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		},
	})
	return nil
}

func (tx *txStore) Delete(ctx context.Context, ref driver.Ref, opts driver.DeleteOptions) error {
	if tx.readOnly {
		return fmt.Errorf("firedoc: ddbstore: cannot delete %q in a read-only transaction", ref.Path())
	}
	key, err := keyItem(ref)
	if err != nil {
		return err
	}
	del := &types.Delete{
		TableName: aws.String(tx.parent.tableName(ref.Collection)),
		Key:       key,
	}
	if opts.RequireExists {
		del.ConditionExpression = aws.String(fmt.Sprintf("attribute_exists(#%s)", keyAttr))
		del.ExpressionAttributeNames = map[string]string{"#" + keyAttr: keyAttr}
	}
	tx.pendingWrites = append(tx.pendingWrites, types.TransactWriteItem{Delete: del})
	return nil
}

// RunTransaction on a txStore rejects nesting; the core never calls it this
// way, but a test double impersonating driver.Store should still behave.
func (tx *txStore) RunTransaction(ctx context.Context, fn func(context.Context, driver.Store) error, opts driver.TxOptions) error {
	return fmt.Errorf("firedoc: ddbstore: transactions do not nest")
}

func (tx *txStore) flush(ctx context.Context) error {
	if len(tx.pendingWrites) == 0 {
		return nil
	}
	_, err := tx.parent.sess.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: tx.pendingWrites,
	})
	return classify(err)
}
