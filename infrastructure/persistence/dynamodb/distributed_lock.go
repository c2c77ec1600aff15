package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"referral-backend/application/ports"
)

// ErrLockHeld is returned when another owner currently holds the resource.
var ErrLockHeld = errors.New("lock already held")

// DistributedLock implements ports.Locker on DynamoDB conditional writes.
// A single row per resource (PK=LOCK#<resource>, SK=LOCK) acts as the
// mutex; an expired row counts as released so crashed owners do not
// block the resource forever. Used to keep concurrent rule table
// refreshes from racing across instances.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDistributedLock creates a locker backed by the given table.
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Acquire takes the lock for resource, expiring after ttl. Returns
// ErrLockHeld when a live lock from another owner exists.
func (dl *DistributedLock) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lease, error) {
	leaseID := fmt.Sprintf("%s_%d", owner, time.Now().UnixNano())
	now := time.Now()
	expiresAt := now.Add(ttl)

	input := &dynamodb.PutItemInput{
		TableName: aws.String(dl.tableName),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", resource)},
			"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
			"LeaseID":    &types.AttributeValueMemberS{Value: leaseID},
			"Owner":      &types.AttributeValueMemberS{Value: owner},
			"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
			"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := dl.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Debug("Lock contention",
				zap.String("resource", resource),
				zap.String("owner", owner),
			)
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, resource)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lease_id", leaseID),
		zap.String("owner", owner),
		zap.Duration("ttl", ttl),
	)

	return &lease{lock: dl, resource: resource, leaseID: leaseID, owner: owner}, nil
}

// lease is a held lock. Release deletes the row only if this lease
// still owns it, so an expired lease cannot clobber a successor.
type lease struct {
	lock     *DistributedLock
	resource string
	leaseID  string
	owner    string
}

func (l *lease) Release(ctx context.Context) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(l.lock.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", l.resource)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LeaseID = :lease"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lease": &types.AttributeValueMemberS{Value: l.leaseID},
		},
	}

	if _, err := l.lock.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// The lease expired and someone else took over. Nothing to release.
			l.lock.logger.Warn("Lease no longer held at release",
				zap.String("resource", l.resource),
				zap.String("lease_id", l.leaseID),
			)
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.lock.logger.Debug("Lock released",
		zap.String("resource", l.resource),
		zap.String("lease_id", l.leaseID),
	)

	return nil
}
