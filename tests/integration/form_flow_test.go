package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"referral-backend/application/commands"
	"referral-backend/application/ports"
	"referral-backend/application/queries"
	appservices "referral-backend/application/services"
	"referral-backend/domain/services"
	"referral-backend/infrastructure/di"
	"referral-backend/infrastructure/messaging/localbus"
	"referral-backend/infrastructure/persistence/csvfile"
	"referral-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const questionsCSV = `domain,field_ref,questions_text,answer_type,answer_options
safeguarding,injury_present,Is an injury present?,radio,Yes;No
safeguarding,injury_severity,How severe is the injury?,select,Deep;Superficial
safeguarding,injury_detail,Describe the injury,free_text,
safeguarding,signs_observed,Which signs were observed?,multi_select,Bruising;Neglect;Withdrawal
safeguarding,bruising_detail,Describe the bruising,free_text,
safeguarding,neglect_detail,Describe the neglect,free_text,
fire,fire_present,Did a fire occur?,radio,Yes;No
fire,fire_damage,Describe the damage,free_text,
`

const rulesCSV = `domain,field_ref,answer_value,next_field_ref
safeguarding,injury_present,Yes,injury_severity
safeguarding,injury_present,No,
safeguarding,injury_severity,Deep,injury_detail
safeguarding,signs_observed,Bruising,bruising_detail
safeguarding,signs_observed,Neglect,neglect_detail
fire,fire_present,Yes,fire_damage
fire,fire_present,No,
`

// stack wires the full answer pipeline over in-memory infrastructure,
// loading the rule table from CSV files the way the dev environment does.
type stack struct {
	repo       ports.SessionRepository
	store      ports.EventStore
	tables     ports.RuleTableProvider
	record     *commands.RecordAnswerHandler
	start      *commands.StartSessionHandler
	reset      *commands.ResetSessionHandler
	refresh    *commands.RefreshRuleTableHandler
	visible    *queries.GetVisibleQuestionsHandler
	audit      *queries.GetAuditReportHandler
	domainList *queries.ListDomainsHandler
}

func newStack(t *testing.T) *stack {
	t.Helper()

	dir := t.TempDir()
	questionsPath := filepath.Join(dir, "questions.csv")
	rulesPath := filepath.Join(dir, "rules.csv")
	require.NoError(t, os.WriteFile(questionsPath, []byte(questionsCSV), 0o644))
	require.NoError(t, os.WriteFile(rulesPath, []byte(rulesCSV), 0o644))

	logger := zap.NewNop()
	loader := csvfile.NewLoader(questionsPath, rulesPath, logger)
	tables := appservices.NewRuleTableService(loader, services.NewCompiler(logger), logger)

	repo := memory.NewSessionRepository()
	store := memory.NewEventStore()
	eventBus := localbus.NewBus(logger)
	visibility := services.NewVisibilityEvaluator(logger)
	cascade := services.NewCascadeInvalidator(logger)

	return &stack{
		repo:       repo,
		store:      store,
		tables:     tables,
		record:     commands.NewRecordAnswerHandler(repo, tables, visibility, cascade, eventBus, store, nil, logger),
		start:      commands.NewStartSessionHandler(repo, eventBus, logger),
		reset:      commands.NewResetSessionHandler(repo, eventBus, logger),
		refresh:    commands.NewRefreshRuleTableHandler(tables, eventBus, nil, nil, logger),
		visible:    queries.NewGetVisibleQuestionsHandler(repo, tables, visibility),
		audit:      queries.NewGetAuditReportHandler(tables, services.NewRuleAuditor(), di.NewInMemoryCache()),
		domainList: queries.NewListDomainsHandler(tables, di.NewInMemoryCache()),
	}
}

func (s *stack) startSession(t *testing.T) string {
	t.Helper()
	session, err := s.start.Handle(context.Background(), commands.StartSessionCommand{UserID: "user-123"})
	require.NoError(t, err)
	return session.ID().String()
}

func (s *stack) answer(t *testing.T, sessionID, fieldRef string, values ...string) *commands.RecordAnswerResult {
	t.Helper()
	result, err := s.record.Handle(context.Background(), commands.RecordAnswerCommand{
		SessionID: sessionID,
		Domain:    "safeguarding",
		FieldRef:  fieldRef,
		Values:    values,
	})
	require.NoError(t, err)
	return result
}

func (s *stack) visibleRefs(t *testing.T, sessionID, domain string) []string {
	t.Helper()
	result, err := s.visible.Handle(context.Background(), queries.GetVisibleQuestionsQuery{
		SessionID: sessionID,
		Domain:    domain,
	})
	require.NoError(t, err)
	refs := make([]string, 0, len(result.Questions))
	for _, q := range result.Questions {
		refs = append(refs, q.FieldRef)
	}
	return refs
}

func TestFormFlow_AnswerChainOpensAndClosesBranches(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)

	// Only entry points are visible before any answer.
	assert.Equal(t, []string{"injury_present", "signs_observed"}, s.visibleRefs(t, sessionID, "safeguarding"))

	// Answering Yes opens the severity follow-up, Deep opens the detail.
	result := s.answer(t, sessionID, "injury_present", "Yes")
	assert.Equal(t, []string{"injury_severity"}, result.Opened)

	result = s.answer(t, sessionID, "injury_severity", "Deep")
	assert.Equal(t, []string{"injury_detail"}, result.Opened)

	s.answer(t, sessionID, "injury_detail", "deep laceration to the left forearm")
	assert.Equal(t,
		[]string{"injury_present", "injury_severity", "injury_detail", "signs_observed"},
		s.visibleRefs(t, sessionID, "safeguarding"))

	// Switching the root answer to the terminal branch clears the whole
	// chain underneath it.
	result = s.answer(t, sessionID, "injury_present", "No")
	assert.ElementsMatch(t, []string{"injury_severity", "injury_detail"}, result.Cleared)
	assert.Equal(t, []string{"injury_present", "signs_observed"}, s.visibleRefs(t, sessionID, "safeguarding"))

	// The cleared answers are gone from the persisted session too.
	loaded, err := s.repo.GetByID(context.Background(), result.Session.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AnsweredCount())
}

func TestFormFlow_ResubmittingSameAnswerIsStable(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)

	s.answer(t, sessionID, "injury_present", "Yes")
	s.answer(t, sessionID, "injury_severity", "Deep")

	// Same value again: nothing cascades, nothing closes.
	result := s.answer(t, sessionID, "injury_present", "Yes")
	assert.Empty(t, result.Cleared)
	assert.Empty(t, result.Opened)
	assert.Equal(t,
		[]string{"injury_present", "injury_severity", "injury_detail", "signs_observed"},
		result.Visible)
}

func TestFormFlow_MultiSelectBranches(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)

	// Two selections open two branches at once.
	result := s.answer(t, sessionID, "signs_observed", "Bruising", "Neglect")
	assert.ElementsMatch(t, []string{"bruising_detail", "neglect_detail"}, result.Opened)

	s.answer(t, sessionID, "bruising_detail", "bruising on both upper arms")
	s.answer(t, sessionID, "neglect_detail", "unwashed clothing, missed meals")

	// Changing the selection cascades through every branch it had opened.
	// The neglect branch stays visible but its answer is gone.
	result = s.answer(t, sessionID, "signs_observed", "Neglect")
	assert.ElementsMatch(t, []string{"bruising_detail", "neglect_detail"}, result.Cleared)
	assert.Contains(t, s.visibleRefs(t, sessionID, "safeguarding"), "neglect_detail")
	assert.NotContains(t, s.visibleRefs(t, sessionID, "safeguarding"), "bruising_detail")
}

func TestFormFlow_DomainsAreIsolated(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)

	s.answer(t, sessionID, "injury_present", "Yes")

	_, err := s.record.Handle(context.Background(), commands.RecordAnswerCommand{
		SessionID: sessionID,
		Domain:    "fire",
		FieldRef:  "fire_present",
		Values:    []string{"Yes"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fire_present", "fire_damage"}, s.visibleRefs(t, sessionID, "fire"))

	// Resetting one domain leaves the other untouched.
	_, err = s.reset.Handle(context.Background(), commands.ResetSessionCommand{
		SessionID: sessionID,
		Domain:    "fire",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fire_present"}, s.visibleRefs(t, sessionID, "fire"))
	assert.Equal(t,
		[]string{"injury_present", "injury_severity", "signs_observed"},
		s.visibleRefs(t, sessionID, "safeguarding"))
}

func TestFormFlow_AuditAndDomainListing(t *testing.T) {
	s := newStack(t)

	domains, err := s.domainList.Handle(context.Background(), queries.ListDomainsQuery{})
	require.NoError(t, err)
	require.Len(t, domains.Domains, 2)
	assert.Equal(t, "fire", domains.Domains[0].Code)
	assert.Equal(t, "safeguarding", domains.Domains[1].Code)
	assert.Empty(t, domains.Failed)

	audit, err := s.audit.Handle(context.Background(), queries.GetAuditReportQuery{})
	require.NoError(t, err)
	assert.True(t, audit.Clean())
	assert.Equal(t, domains.TableHash, audit.TableHash)
}

func TestFormFlow_RefreshKeepsServingCompiledTable(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)
	s.answer(t, sessionID, "injury_present", "Yes")

	before, err := s.tables.Table(context.Background())
	require.NoError(t, err)

	refreshed, err := s.refresh.Handle(context.Background(), commands.RefreshRuleTableCommand{})
	require.NoError(t, err)

	// Identical source rows compile to the same content hash, and sessions
	// keep working against the refreshed table.
	assert.Equal(t, before.Hash(), refreshed.Hash())
	result := s.answer(t, sessionID, "injury_severity", "Deep")
	assert.Equal(t, []string{"injury_detail"}, result.Opened)
}

func TestFormFlow_EventTrailRecordsTheJourney(t *testing.T) {
	s := newStack(t)
	sessionID := s.startSession(t)

	s.answer(t, sessionID, "injury_present", "Yes")
	s.answer(t, sessionID, "injury_severity", "Deep")
	s.answer(t, sessionID, "injury_present", "No")

	stored, err := s.store.GetEvents(context.Background(), sessionID)
	require.NoError(t, err)

	types := make([]string, 0, len(stored))
	for _, event := range stored {
		types = append(types, event.EventType)
	}
	assert.Contains(t, types, "session.answer_recorded")
	assert.Contains(t, types, "session.answers_cascaded")
}
