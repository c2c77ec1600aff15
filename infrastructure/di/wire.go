//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"referral-backend/application/commands/bus"
	"referral-backend/application/ports"
	querybus "referral-backend/application/queries/bus"
	"referral-backend/infrastructure/config"
	"referral-backend/pkg/auth"
	"referral-backend/pkg/observability"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	RuleTables  ports.RuleTableProvider
	SessionRepo ports.SessionRepository
	EventBus    ports.EventBus
	EventStore  ports.EventStore
	Publisher   ports.EventPublisher
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Cache       ports.Cache
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	IPLimiter   *auth.IPRateLimiter
	UserLimiter *auth.UserRateLimiter
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideTracer,
	ProvideMetrics,
	ProvideRuleTableSource,
	ProvideCompiler,
	ProvideRuleTableProvider,
	ProvideVisibilityEvaluator,
	ProvideCascadeInvalidator,
	ProvideRuleAuditor,
	ProvideSessionRepository,
	ProvideEventStore,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideLocker,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideInMemoryCache,
	ProvideIPRateLimiter,
	ProvideUserRateLimiter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
