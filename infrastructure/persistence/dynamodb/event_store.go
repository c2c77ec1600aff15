package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"referral-backend/domain/events"
)

// EventStore implements the EventStore interface using DynamoDB. Every
// session mutation leaves an event trail here, which is what safeguarding
// audits read back.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

// eventRecord represents how events are stored in DynamoDB
type eventRecord struct {
	PK          string `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	Payload     string `dynamodbav:"Payload"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Version     int    `dynamodbav:"Version"`
	TTL         int64  `dynamodbav:"TTL,omitempty"`
}

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client *dynamodb.Client, tableName string) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveEvents persists domain events
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		eventID := uuid.New().String()
		ts := event.GetTimestamp().UTC().Format(time.RFC3339Nano)
		record := eventRecord{
			PK:          fmt.Sprintf("EVENTS#%s", event.GetAggregateID()),
			SK:          fmt.Sprintf("EVENT#%s#%s", ts, eventID),
			EventID:     eventID,
			EventType:   event.GetEventType(),
			AggregateID: event.GetAggregateID(),
			Payload:     string(payload),
			Timestamp:   ts,
			Version:     event.GetVersion(),
			TTL:         time.Now().AddDate(1, 0, 0).Unix(),
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	// BatchWriteItem accepts at most 25 items per call
	const batchSize = 25
	for i := 0; i < len(writeRequests); i += batchSize {
		end := i + batchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		_, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to save events: %w", err)
		}
	}

	return nil
}

// GetEvents retrieves events for an aggregate in timestamp order
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.StoredEvent, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("EVENTS#%s", aggregateID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(es.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	out := make([]events.StoredEvent, 0, len(result.Items))
	for _, raw := range result.Items {
		var record eventRecord
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, record.Timestamp)
		out = append(out, events.StoredEvent{
			AggregateID: record.AggregateID,
			EventType:   record.EventType,
			Timestamp:   ts,
			Version:     record.Version,
			Payload:     []byte(record.Payload),
		})
	}

	return out, nil
}
