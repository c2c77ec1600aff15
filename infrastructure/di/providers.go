package di

import (
	"context"
	"fmt"

	"referral-backend/application/commands"
	"referral-backend/application/commands/bus"
	"referral-backend/application/ports"
	"referral-backend/application/queries"
	querybus "referral-backend/application/queries/bus"
	appservices "referral-backend/application/services"
	"referral-backend/domain/events"
	"referral-backend/domain/services"
	"referral-backend/infrastructure/config"
	"referral-backend/infrastructure/messaging/eventbridge"
	"referral-backend/infrastructure/messaging/localbus"
	"referral-backend/infrastructure/persistence/csvfile"
	dynamopersistence "referral-backend/infrastructure/persistence/dynamodb"
	"referral-backend/infrastructure/persistence/memory"
	"referral-backend/pkg/auth"
	"referral-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideTracer creates an X-Ray tracer. Returns nil when tracing is
// disabled so downstream components skip segment creation.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("referral-backend")
}

// ProvideMetrics creates metrics instance. A nil CloudWatch client turns
// every recording call into a no-op, which is what development wants.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideRuleTableSource creates the CSV-backed rule table source
func ProvideRuleTableSource(cfg *config.Config, logger *zap.Logger) ports.RuleTableSource {
	return csvfile.NewLoader(cfg.QuestionsPath, cfg.RulesPath, logger)
}

// ProvideCompiler creates the rule table compiler
func ProvideCompiler(logger *zap.Logger) *services.Compiler {
	return services.NewCompiler(logger)
}

// ProvideRuleTableProvider creates the memoizing rule table service
func ProvideRuleTableProvider(
	source ports.RuleTableSource,
	compiler *services.Compiler,
	logger *zap.Logger,
) ports.RuleTableProvider {
	return appservices.NewRuleTableService(source, compiler, logger)
}

// ProvideVisibilityEvaluator creates the question visibility evaluator
func ProvideVisibilityEvaluator(logger *zap.Logger) *services.VisibilityEvaluator {
	return services.NewVisibilityEvaluator(logger)
}

// ProvideCascadeInvalidator creates the answer cascade invalidator
func ProvideCascadeInvalidator(logger *zap.Logger) *services.CascadeInvalidator {
	return services.NewCascadeInvalidator(logger)
}

// ProvideRuleAuditor creates the rule table auditor
func ProvideRuleAuditor() *services.RuleAuditor {
	return services.NewRuleAuditor()
}

// ProvideSessionRepository selects the session store for the environment.
// Development runs against an in-memory store so no AWS credentials are
// needed to bring the API up locally.
func ProvideSessionRepository(
	client *awsdynamodb.Client,
	cfg *config.Config,
	tracer *observability.Tracer,
	logger *zap.Logger,
) ports.SessionRepository {
	if cfg.IsDevelopment() {
		return memory.NewSessionRepository()
	}
	return dynamopersistence.NewSessionRepository(client, cfg.SessionsTable, tracer, logger)
}

// ProvideEventStore selects the event trail store for the environment
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config) ports.EventStore {
	if cfg.IsDevelopment() {
		return memory.NewEventStore()
	}
	return dynamopersistence.NewEventStore(client, cfg.EventsTable)
}

// ProvideLocker supplies the cross-instance lock used to serialize rule
// table refreshes. Development runs a single process, so no locker.
func ProvideLocker(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.Locker {
	if cfg.IsDevelopment() {
		return nil
	}
	return dynamopersistence.NewDistributedLock(client, cfg.SessionsTable, logger)
}

// ProvideEventBus selects the event bus for the environment
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	if cfg.IsDevelopment() {
		return localbus.NewBus(logger)
	}
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideEventPublisher creates an event publisher (adapter for EventBus)
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return &eventPublisherAdapter{eventBus: eventBus}
}

// eventPublisherAdapter adapts EventBus to EventPublisher interface
type eventPublisherAdapter struct {
	eventBus ports.EventBus
}

func (a *eventPublisherAdapter) Publish(ctx context.Context, event events.DomainEvent) error {
	return a.eventBus.Publish(ctx, event)
}

func (a *eventPublisherAdapter) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	return a.eventBus.PublishBatch(ctx, batch)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	sessionRepo ports.SessionRepository,
	tables ports.RuleTableProvider,
	visibility *services.VisibilityEvaluator,
	cascade *services.CascadeInvalidator,
	eventBus ports.EventBus,
	eventStore ports.EventStore,
	cache ports.Cache,
	locker ports.Locker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()

	startHandler := commands.NewStartSessionHandler(sessionRepo, eventBus, logger)
	commandBus.Register(commands.StartSessionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			startCmd, ok := cmd.(commands.StartSessionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := startHandler.Handle(ctx, startCmd)
			return err
		},
	})

	answerHandler := commands.NewRecordAnswerHandler(sessionRepo, tables, visibility, cascade, eventBus, eventStore, metrics, logger)
	commandBus.Register(commands.RecordAnswerCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			answerCmd, ok := cmd.(commands.RecordAnswerCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := answerHandler.Handle(ctx, answerCmd)
			return err
		},
	})

	resetHandler := commands.NewResetSessionHandler(sessionRepo, eventBus, logger)
	commandBus.Register(commands.ResetSessionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			resetCmd, ok := cmd.(commands.ResetSessionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := resetHandler.Handle(ctx, resetCmd)
			return err
		},
	})

	deleteHandler := commands.NewDeleteSessionHandler(sessionRepo, cache, logger)
	commandBus.Register(commands.DeleteSessionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteSessionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return deleteHandler.Handle(ctx, deleteCmd)
		},
	})

	refreshHandler := commands.NewRefreshRuleTableHandler(tables, eventBus, locker, metrics, logger)
	commandBus.Register(commands.RefreshRuleTableCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			refreshCmd, ok := cmd.(commands.RefreshRuleTableCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := refreshHandler.Handle(ctx, refreshCmd)
			return err
		},
	})

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	sessionRepo ports.SessionRepository,
	tables ports.RuleTableProvider,
	visibility *services.VisibilityEvaluator,
	auditor *services.RuleAuditor,
	eventStore ports.EventStore,
	cache ports.Cache,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	getSessionHandler := queries.NewGetSessionHandler(sessionRepo)
	queryBus.Register(queries.GetSessionQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetSessionQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getSessionHandler.Handle(ctx, getQuery)
		},
	})

	visibleHandler := queries.NewGetVisibleQuestionsHandler(sessionRepo, tables, visibility)
	queryBus.Register(queries.GetVisibleQuestionsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			visQuery, ok := query.(queries.GetVisibleQuestionsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return visibleHandler.Handle(ctx, visQuery)
		},
	})

	listSessionsHandler := queries.NewListSessionsHandler(sessionRepo)
	queryBus.Register(queries.ListSessionsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListSessionsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return listSessionsHandler.Handle(ctx, listQuery)
		},
	})

	listDomainsHandler := queries.NewListDomainsHandler(tables, cache)
	queryBus.Register(queries.ListDomainsQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListDomainsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return listDomainsHandler.Handle(ctx, listQuery)
		},
	})

	auditHandler := queries.NewGetAuditReportHandler(tables, auditor, cache)
	queryBus.Register(queries.GetAuditReportQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			auditQuery, ok := query.(queries.GetAuditReportQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return auditHandler.Handle(ctx, auditQuery)
		},
	})

	historyHandler := queries.NewGetSessionHistoryHandler(eventStore)
	queryBus.Register(queries.GetSessionHistoryQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			historyQuery, ok := query.(queries.GetSessionHistoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return historyHandler.Handle(ctx, historyQuery)
		},
	})

	ruleMapHandler := queries.NewGetRuleMapHandler(tables)
	queryBus.Register(queries.GetRuleMapQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			mapQuery, ok := query.(queries.GetRuleMapQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return ruleMapHandler.Handle(ctx, mapQuery)
		},
	})

	return queryBus
}

// ProvideIPRateLimiter creates the per-IP rate limiter. Production runs on
// Lambda where in-memory counters reset per instance, so the limit state
// lives in DynamoDB there.
func ProvideIPRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.IPRateLimiter {
	if cfg.IsProduction() {
		return auth.NewIPRateLimiterWith(
			auth.NewDistributedIPRateLimiter(client, cfg.SessionsTable, cfg.RequestsPerMinute),
		)
	}
	return auth.NewIPRateLimiter(cfg.RequestsPerMinute)
}

// ProvideUserRateLimiter creates the per-user rate limiter
func ProvideUserRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.UserRateLimiter {
	if cfg.IsProduction() {
		return auth.NewUserRateLimiterWith(
			auth.NewDistributedUserRateLimiter(client, cfg.SessionsTable, cfg.RequestsPerMinute*2),
		)
	}
	return auth.NewUserRateLimiter(cfg.RequestsPerMinute * 2)
}

// ProvideInMemoryCache creates a simple in-memory cache.
// Query results are keyed by table hash, so stale entries simply stop
// being read after a refresh.
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}
