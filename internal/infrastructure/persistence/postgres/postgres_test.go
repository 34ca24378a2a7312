package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/application/services"
	"github.com/DanielPopoola/claimpay/internal/application/services/testhelpers"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/DanielPopoola/claimpay/internal/infrastructure/persistence/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PostgresTestSuite struct {
	suite.Suite
	testDB      *testhelpers.TestDatabase
	claims      *postgres.ClaimRepository
	rates       *postgres.RateRepository
	calendar    *postgres.SystemControlRepository
	history     *postgres.HistoryRepository
	uow         *postgres.TransactionCoordinator
	coordinator *services.TransactionCoordinator
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	logger := testhelpers.DiscardLogger()

	s.claims = postgres.NewClaimRepository(s.testDB.DB)
	s.rates = postgres.NewRateRepository(s.testDB.DB)
	s.calendar = postgres.NewSystemControlRepository(s.testDB.DB)
	s.history = postgres.NewHistoryRepository(s.testDB.DB)
	s.uow = postgres.NewTransactionCoordinator(s.testDB.DB, logger)
	s.coordinator = services.NewTransactionCoordinator(s.uow, logger)
}

func (s *PostgresTestSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *PostgresTestSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
	s.seedClaim(testhelpers.DefaultClaim())
	s.exec(`INSERT INTO currency_rates (currency, valid_from, valid_to, rate) VALUES ('BRL', '2024-01-01', '2025-01-01', 1.05)`)
	s.exec(`INSERT INTO system_control (system_id, business_date) VALUES ('SI', '2024-03-15')`)
}

func (s *PostgresTestSuite) exec(sql string, args ...any) {
	_, err := s.testDB.DB.Pool.Exec(context.Background(), sql, args...)
	s.Require().NoError(err)
}

func (s *PostgresTestSuite) seedClaim(c *domain.ClaimMaster) {
	s.exec(`
		INSERT INTO claim_master (
			insurance_type, origin, branch, claim_number,
			protocol_source, protocol_number, protocol_dac,
			policy_origin, policy_branch, policy_number,
			product_code, insurance_kind, expected_reserve, total_paid, occurrence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.Key.InsuranceType, c.Key.Origin, c.Key.Branch, c.Key.Number,
		c.Protocol.Source, c.Protocol.Number, c.Protocol.CheckDigit,
		c.Policy.Origin, c.Policy.Branch, c.Policy.Number,
		c.ProductCode, c.InsuranceKind, c.ExpectedReserve, c.TotalPaid, c.HistoryOccurrenceCounter,
	)
}

func (s *PostgresTestSuite) input(claim *domain.ClaimMaster) services.CoordinatorInput {
	t := s.T()
	req := testhelpers.DefaultPaymentRequest()

	principal, err := domain.NewMoney(req.Principal, req.Currency)
	require.NoError(t, err)
	correction, err := domain.NewMoney(req.Correction, req.Currency)
	require.NoError(t, err)
	rate, err := domain.NewRate(decimal.RequireFromString("1.05"))
	require.NoError(t, err)

	conv, err := services.NewCurrencyConverter().Convert(principal, correction, rate, testhelpers.BusinessDate)
	require.NoError(t, err)

	return services.CoordinatorInput{
		Context:    domain.NewTransactionContext(claim.Key, req.OperatorID, testhelpers.BusinessDate, time.Now().UTC()),
		Claim:      claim,
		Request:    req,
		Conversion: conv,
	}
}

func (s *PostgresTestSuite) count(table string) int {
	var n int
	err := s.testDB.DB.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n)
	s.Require().NoError(err)
	return n
}

func (s *PostgresTestSuite) TestFindClaim() {
	ctx := context.Background()
	t := s.T()

	claim, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	assert.Equal(t, testhelpers.DefaultClaim().Protocol, claim.Protocol)
	assert.Equal(t, 1001, claim.ProductCode)
	assert.True(t, claim.ExpectedReserve.Equal(decimal.RequireFromString("50000.00")))
	assert.Equal(t, 0, claim.HistoryOccurrenceCounter)

	missing := testhelpers.DefaultClaimKey()
	missing.Number = 1
	_, err = s.claims.FindClaim(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrClaimNotFound)
}

func (s *PostgresTestSuite) TestFindContractsByPolicy() {
	ctx := context.Background()
	t := s.T()
	policy := testhelpers.DefaultClaim().Policy

	s.exec(`INSERT INTO claim_contracts (policy_origin, policy_branch, policy_number, contract_number, product_code, status)
		VALUES ($1, $2, $3, 0, 1001, 'A'), ($1, $2, $3, 42, 1001, 'A')`,
		policy.Origin, policy.Branch, policy.Number)

	all, err := s.claims.FindContractsByPolicy(ctx, policy, application.ContractFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	efp, err := s.claims.FindContractsByPolicy(ctx, policy, application.ContractFilter{MinContractNumber: 1})
	require.NoError(t, err)
	require.Len(t, efp, 1)
	assert.Equal(t, 42, efp[0].ContractNumber)
	assert.True(t, efp[0].IsClosedPensionEntity())

	none, err := s.claims.FindContractsByPolicy(ctx, domain.PolicyRef{Origin: 1, Branch: 1, Number: 1}, application.ContractFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func (s *PostgresTestSuite) TestFindRates() {
	ctx := context.Background()
	t := s.T()

	rates, err := s.rates.FindRates(ctx, "BRL", testhelpers.BusinessDate)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.True(t, rates[0].Rate.Equal(decimal.RequireFromString("1.05")))

	// valid_to is exclusive
	rates, err = s.rates.FindRates(ctx, "BRL", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func (s *PostgresTestSuite) TestBusinessDate() {
	ctx := context.Background()
	t := s.T()

	date, err := s.calendar.BusinessDate(ctx, "SI")
	require.NoError(t, err)
	assert.True(t, date.Equal(testhelpers.BusinessDate))

	_, err = s.calendar.BusinessDate(ctx, "XX")
	assert.ErrorIs(t, err, domain.ErrBusinessDateNotSet)
}

func (s *PostgresTestSuite) TestCoordinatorCommitsEveryStep() {
	ctx := context.Background()
	t := s.T()

	rel := testhelpers.OpeningRelationship()
	s.exec(`INSERT INTO phase_event_relationships (phase_code, event_code, valid_from, valid_to, indicator, active)
		VALUES ($1, $2, $3, NULL, $4, TRUE)`, rel.PhaseCode, rel.EventCode, rel.ValidFrom, string(rel.Indicator))

	claim, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	in := s.input(claim)

	result, err := s.coordinator.Execute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Occurrence)
	assert.Equal(t, 1, result.PhasesOpened)
	assert.True(t, result.TotalPaid.Equal(decimal.RequireFromString("11025.00")))
	assert.True(t, result.PendingBalance.Equal(decimal.RequireFromString("38975.00")))

	after, err := s.claims.FindClaim(ctx, claim.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, after.HistoryOccurrenceCounter)
	assert.True(t, after.TotalPaid.Equal(decimal.RequireFromString("11025.00")))

	record, err := s.history.FindByAuthorizationID(ctx, in.Context.AuthorizationID)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Occurrence)
	assert.Equal(t, domain.OperationPaymentAuthorization, record.Operation)
	assert.True(t, record.TotalBTNF.Equal(decimal.RequireFromString("11025.00")))
	assert.Equal(t, "OP001", record.OperatorID)

	assert.Equal(t, 1, s.count("claim_accompaniment"))
	assert.Equal(t, 1, s.count("claim_phases"))
}

func (s *PostgresTestSuite) TestStaleOccurrenceRollsBack() {
	ctx := context.Background()
	t := s.T()

	claim, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	_, err = s.coordinator.Execute(ctx, s.input(claim))
	require.NoError(t, err)

	// same snapshot, counter is now 1
	_, err = s.coordinator.Execute(ctx, s.input(claim))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	assert.Equal(t, 1, s.count("claim_history"))
	assert.Equal(t, 1, s.count("claim_accompaniment"))

	after, err := s.claims.FindClaim(ctx, claim.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, after.HistoryOccurrenceCounter)
}

func (s *PostgresTestSuite) TestAdvanceClaimRejectsOverdraw() {
	ctx := context.Background()
	t := s.T()

	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, store application.AuthorizationStore) error {
		_, err := store.AdvanceClaim(ctx, testhelpers.DefaultClaimKey(), 0, decimal.RequireFromString("50000.01"))
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	claim, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	assert.True(t, claim.TotalPaid.IsZero())
}

func (s *PostgresTestSuite) TestFailedStepLeavesNothing() {
	ctx := context.Background()
	t := s.T()
	boom := errors.New("boom")

	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, store application.AuthorizationStore) error {
		claim := testhelpers.DefaultClaim()
		in := s.input(claim)
		record := domain.NewHistoryRecord(in.Context, claim, in.Request, in.Conversion)
		if err := store.InsertHistory(ctx, &record); err != nil {
			return err
		}
		if _, err := store.AdvanceClaim(ctx, claim.Key, 0, in.Conversion.Total.Amount()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, s.count("claim_history"))
	claim, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	assert.Equal(t, 0, claim.HistoryOccurrenceCounter)
}

func (s *PostgresTestSuite) TestPhaseCloseAndReopen() {
	ctx := context.Background()
	t := s.T()
	claim := testhelpers.DefaultClaim()

	closing := testhelpers.ClosingRelationship()
	s.exec(`INSERT INTO phase_event_relationships (phase_code, event_code, valid_from, valid_to, indicator, active)
		VALUES ($1, $2, $3, NULL, $4, TRUE)`, closing.PhaseCode, closing.EventCode, closing.ValidFrom, string(closing.Indicator))
	s.exec(`INSERT INTO claim_phases (protocol_source, protocol_number, protocol_dac, phase_code, event_code, relationship_start, opened_on)
		VALUES ($1, $2, $3, $4, 1000, '2024-01-01', '2024-02-01')`,
		claim.Protocol.Source, claim.Protocol.Number, claim.Protocol.CheckDigit, closing.PhaseCode)

	result, err := s.coordinator.Execute(ctx, s.input(claim))
	require.NoError(t, err)
	assert.Equal(t, 1, result.PhasesClosed)

	err = s.uow.WithinTransaction(ctx, func(ctx context.Context, store application.AuthorizationStore) error {
		open, err := store.FindOpenPhase(ctx, claim.Protocol, closing.PhaseCode)
		require.NoError(t, err)
		assert.Nil(t, open)
		return nil
	})
	require.NoError(t, err)
}

func (s *PostgresTestSuite) TestFindByAuthorizationIDMissing() {
	_, err := s.history.FindByAuthorizationID(context.Background(), uuid.New())
	assert.ErrorIs(s.T(), err, domain.ErrAuthorizationNotFound)
}

func (s *PostgresTestSuite) TestConcurrentAuthorizationsOnSameSnapshot() {
	ctx := context.Background()
	t := s.T()

	snapshot, err := s.claims.FindClaim(ctx, testhelpers.DefaultClaimKey())
	require.NoError(t, err)

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})

	for i := range workers {
		claim := *snapshot
		in := s.input(&claim)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = s.coordinator.Execute(ctx, in)
		}()
	}
	close(start)
	wg.Wait()

	committed, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, domain.ErrConcurrencyConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, committed)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, s.count("claim_history"))

	after, err := s.claims.FindClaim(ctx, snapshot.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, after.HistoryOccurrenceCounter)
	assert.True(t, after.TotalPaid.Equal(decimal.RequireFromString("11025.00")))
}
