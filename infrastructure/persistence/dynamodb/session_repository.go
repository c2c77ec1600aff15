package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"referral-backend/application/ports"
	"referral-backend/domain/core/aggregates"
	appErrors "referral-backend/pkg/errors"
	"referral-backend/pkg/observability"
)

// SessionRepository implements the SessionRepository interface using DynamoDB.
// One item per session; answers travel inside the item since a session's
// answer set is small and always read together.
type SessionRepository struct {
	client    *dynamodb.Client
	tableName string
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(client *dynamodb.Client, tableName string, tracer *observability.Tracer, logger *zap.Logger) ports.SessionRepository {
	return &SessionRepository{
		client:    client,
		tableName: tableName,
		tracer:    tracer,
		logger:    logger,
	}
}

// answerItem is the persisted shape of one answer record
type answerItem struct {
	Domain    string   `dynamodbav:"Domain"`
	FieldRef  string   `dynamodbav:"FieldRef"`
	Current   []string `dynamodbav:"Current,omitempty"`
	Committed []string `dynamodbav:"Committed,omitempty"`
}

// sessionItem represents the DynamoDB item structure for a session
type sessionItem struct {
	PK         string       `dynamodbav:"PK"`
	SK         string       `dynamodbav:"SK"`
	GSI1PK     string       `dynamodbav:"GSI1PK"`
	GSI1SK     string       `dynamodbav:"GSI1SK"`
	EntityType string       `dynamodbav:"EntityType"`
	SessionID  string       `dynamodbav:"SessionID"`
	UserID     string       `dynamodbav:"UserID"`
	Answers    []answerItem `dynamodbav:"Answers"`
	CreatedAt  string       `dynamodbav:"CreatedAt"`
	UpdatedAt  string       `dynamodbav:"UpdatedAt"`
}

// Save persists a session to DynamoDB
func (r *SessionRepository) Save(ctx context.Context, session *aggregates.Session) error {
	op := func(ctx context.Context) error {
		stored := session.StoredAnswers()
		answers := make([]answerItem, 0, len(stored))
		for _, a := range stored {
			answers = append(answers, answerItem{
				Domain:    a.Domain,
				FieldRef:  a.FieldRef,
				Current:   a.Current,
				Committed: a.Committed,
			})
		}

		item := sessionItem{
			PK:         fmt.Sprintf("SESSION#%s", session.ID().String()),
			SK:         "METADATA",
			GSI1PK:     fmt.Sprintf("USER#%s", session.UserID()),
			GSI1SK:     fmt.Sprintf("SESSION#%s", session.ID().String()),
			EntityType: "SESSION",
			SessionID:  session.ID().String(),
			UserID:     session.UserID(),
			Answers:    answers,
			CreatedAt:  session.CreatedAt().Format(time.RFC3339Nano),
			UpdatedAt:  session.UpdatedAt().Format(time.RFC3339Nano),
		}

		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		input := &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		}

		if r.tracer != nil {
			r.tracer.AddAnnotation(ctx, "session_id", session.ID().String())
		}
		if _, err := r.client.PutItem(ctx, input); err != nil {
			r.logger.Error("Failed to save session to DynamoDB",
				zap.Error(err),
				zap.String("sessionID", session.ID().String()),
			)
			return appErrors.NewDatabaseError("save session", err)
		}

		r.logger.Debug("Saved session to DynamoDB",
			zap.String("sessionID", session.ID().String()),
			zap.Int("answers", len(answers)),
		)
		return nil
	}

	if r.tracer != nil {
		return r.tracer.TraceFunction(ctx, "SessionRepository.Save", op)
	}
	return op(ctx)
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id aggregates.SessionID) (*aggregates.Session, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": fmt.Sprintf("SESSION#%s", id.String()),
		"SK": "METADATA",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		return nil, appErrors.NewDatabaseError("get session", err)
	}
	if result.Item == nil {
		return nil, appErrors.NewNotFoundError("session " + id.String())
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return toSession(item)
}

// GetByUserID retrieves all sessions for a user via the GSI1 index
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) ([]*aggregates.Session, error) {
	keyExpr := expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("USER#%s", userID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("GSI1"),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, appErrors.NewDatabaseError("query sessions", err)
	}

	sessions := make([]*aggregates.Session, 0, len(result.Items))
	for _, raw := range result.Items {
		var item sessionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Skipping unreadable session item", zap.Error(err))
			continue
		}
		session, err := toSession(item)
		if err != nil {
			r.logger.Warn("Skipping invalid session item",
				zap.String("sessionID", item.SessionID),
				zap.Error(err),
			)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id aggregates.SessionID) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": fmt.Sprintf("SESSION#%s", id.String()),
		"SK": "METADATA",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	}); err != nil {
		return appErrors.NewDatabaseError("delete session", err)
	}

	return nil
}

func toSession(item sessionItem) (*aggregates.Session, error) {
	answers := make([]aggregates.StoredAnswer, 0, len(item.Answers))
	for _, a := range item.Answers {
		answers = append(answers, aggregates.StoredAnswer{
			Domain:    a.Domain,
			FieldRef:  a.FieldRef,
			Current:   a.Current,
			Committed: a.Committed,
		})
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		updatedAt = createdAt
	}

	return aggregates.ReconstructSession(item.SessionID, item.UserID, answers, createdAt, updatedAt)
}
