package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/application/services"
	"github.com/DanielPopoola/claimpay/internal/application/services/testhelpers"
	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/DanielPopoola/claimpay/internal/infrastructure/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuthorizePaymentTestSuite struct {
	suite.Suite
	store    *testhelpers.MemoryStore
	cnoua    *testhelpers.FakeValidationClient
	sipua    *testhelpers.FakeValidationClient
	simda    *testhelpers.FakeValidationClient
	registry *services.ReconciliationRegistry
	service  *services.PaymentAuthorizationService
}

func TestAuthorizePaymentSuite(t *testing.T) {
	suite.Run(t, new(AuthorizePaymentTestSuite))
}

func newAuthorizationService(store *testhelpers.MemoryStore, registry *services.ReconciliationRegistry, maxAttempts int, clients ...application.ValidationClient) *services.PaymentAuthorizationService {
	logger := testhelpers.DiscardLogger()
	return services.NewPaymentAuthorizationService(
		store,
		services.NewValidationRouter(store, logger),
		services.NewValidationClients(clients...),
		services.NewRateResolver(store, "BRL", time.Minute, logger),
		store,
		services.NewTransactionCoordinator(store, logger),
		registry,
		config.AuthorizationConfig{MaxConflictAttempts: maxAttempts, SystemID: "SI"},
		logger,
	)
}

// SetupTest runs before each test
func (suite *AuthorizePaymentTestSuite) SetupTest() {
	suite.store = testhelpers.SeededStore()
	suite.cnoua = testhelpers.NewFakeValidationClient(domain.RouteCNOUA)
	suite.sipua = testhelpers.NewFakeValidationClient(domain.RouteSIPUA)
	suite.simda = testhelpers.NewFakeValidationClient(domain.RouteSIMDA)
	suite.registry = services.NewReconciliationRegistry(time.Hour)
	suite.service = newAuthorizationService(suite.store, suite.registry, 3, suite.cnoua, suite.sipua, suite.simda)
}

func (suite *AuthorizePaymentTestSuite) assertClaimUntouched() {
	t := suite.T()
	claim := suite.store.Claim(testhelpers.DefaultClaimKey())
	assert.Equal(t, 0, claim.HistoryOccurrenceCounter)
	assert.True(t, claim.TotalPaid.IsZero())
	assert.Empty(t, suite.store.History())
	assert.Empty(t, suite.store.Accompaniment())
}

// ============================================================================
// HAPPY PATH TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_Success() {
	ctx := context.Background()
	t := suite.T()

	result, err := suite.service.AuthorizePayment(ctx, testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, domain.RouteSIMDA, result.Route)
	assert.Equal(t, 1, result.Occurrence)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "10500.00 BTNF", result.PrincipalConverted.String())
	assert.Equal(t, "525.00 BTNF", result.CorrectionConverted.String())
	assert.Equal(t, "11025.00 BTNF", result.Total.String())
	assert.True(t, result.PendingBalance.Equal(decimal.RequireFromString("38975.00")))
	assert.Equal(t, testhelpers.BusinessDate, result.BusinessDate)

	claim := suite.store.Claim(testhelpers.DefaultClaimKey())
	assert.Equal(t, 1, claim.HistoryOccurrenceCounter)
	assert.True(t, claim.PendingBalance().Equal(decimal.RequireFromString("38975.00")))

	history := suite.store.History()
	require.Len(t, history, 1)
	assert.Equal(t, result.AuthorizationID, history[0].AuthorizationID)
	assert.Equal(t, "OP001", history[0].OperatorID)

	assert.Equal(t, int32(1), suite.simda.Calls.Load())
	assert.Zero(t, suite.sipua.Calls.Load())
	assert.Zero(t, suite.cnoua.Calls.Load())
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_SequentialPaymentsAdvanceOccurrence() {
	ctx := context.Background()
	t := suite.T()

	for i := 1; i <= 3; i++ {
		result, err := suite.service.AuthorizePayment(ctx, testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
		require.NoError(t, err)
		assert.Equal(t, i, result.Occurrence)
	}

	claim := suite.store.Claim(testhelpers.DefaultClaimKey())
	assert.Equal(t, 3, claim.HistoryOccurrenceCounter)
	assert.True(t, claim.TotalPaid.Equal(decimal.RequireFromString("33075.00")))
	assert.Len(t, suite.store.Accompaniment(), 3)
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_RoutesEFPToSIPUA() {
	t := suite.T()
	claim := testhelpers.DefaultClaim()
	suite.store.AddContract(domain.ContractRecord{Policy: claim.Policy, ContractNumber: 77})

	result, err := suite.service.AuthorizePayment(context.Background(), claim.Key, testhelpers.DefaultPaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSIPUA, result.Route)
	assert.Equal(t, int32(1), suite.sipua.Calls.Load())
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_RoutesConsortiumToCNOUA() {
	t := suite.T()
	claim := testhelpers.ConsortiumClaim()
	suite.store.AddClaim(claim)

	result, err := suite.service.AuthorizePayment(context.Background(), claim.Key, testhelpers.DefaultPaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteCNOUA, result.Route)
	assert.Zero(t, suite.store.ContractLookups.Load())
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ExactBalanceIsAllowed() {
	t := suite.T()
	req := testhelpers.DefaultPaymentRequest()
	req.Principal = decimal.RequireFromString("49500.00")
	req.Correction = decimal.RequireFromString("500.00")

	claim := testhelpers.DefaultClaim()
	claim.ExpectedReserve = decimal.RequireFromString("52500.00")
	suite.store.AddClaim(claim)

	// 50000 * 1.05 = 52500.00 which drains the balance exactly
	result, err := suite.service.AuthorizePayment(context.Background(), claim.Key, req)
	require.NoError(t, err)
	assert.True(t, result.PendingBalance.IsZero())
}

// ============================================================================
// VALIDATION ERROR TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ReportsAllViolations() {
	t := suite.T()
	req := testhelpers.DefaultPaymentRequest()
	req.PaymentType = 0
	req.Principal = decimal.Zero
	req.OperatorID = ""

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), req)
	var verr *domain.ViolationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations(), 3)
	assert.True(t, verr.HasCode(domain.ViolationPaymentType))
	assert.True(t, verr.HasCode(domain.ViolationPrincipal))
	assert.True(t, verr.HasCode(domain.ViolationOperator))
	assert.Zero(t, suite.simda.Calls.Load())
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_InvalidKeyAndRequestTogether() {
	t := suite.T()
	req := testhelpers.DefaultPaymentRequest()
	req.Currency = ""

	_, err := suite.service.AuthorizePayment(context.Background(), domain.ClaimKey{Origin: 0, Number: 1}, req)
	var verr *domain.ViolationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasCode(domain.ViolationClaimKey))
	assert.True(t, verr.HasCode(domain.ViolationCurrency))
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_BeneficiaryRequiredByClaim() {
	t := suite.T()
	claim := testhelpers.DefaultClaim()
	claim.InsuranceKind = 1
	suite.store.AddClaim(claim)
	req := testhelpers.DefaultPaymentRequest()
	req.Beneficiary = ""

	_, err := suite.service.AuthorizePayment(context.Background(), claim.Key, req)
	var verr *domain.ViolationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasCode(domain.ViolationBeneficiaryNeeded))
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ClaimNotFound() {
	t := suite.T()
	key := testhelpers.DefaultClaimKey()
	key.Number = 1

	_, err := suite.service.AuthorizePayment(context.Background(), key, testhelpers.DefaultPaymentRequest())
	assert.ErrorIs(t, err, domain.ErrClaimNotFound)
}

// ============================================================================
// BUSINESS RULE TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_InsufficientBalance() {
	t := suite.T()
	req := testhelpers.DefaultPaymentRequest()
	req.Principal = decimal.RequireFromString("60000.00")

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), req)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Zero(t, suite.simda.Calls.Load())
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ConvertedTotalExceedsBalance() {
	t := suite.T()
	req := testhelpers.DefaultPaymentRequest()
	// 48000 fits before conversion but 48000 * 1.05 = 50400 does not
	req.Principal = decimal.RequireFromString("48000.00")
	req.Correction = decimal.Zero

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), req)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ConsortiumWithoutPolicy() {
	t := suite.T()
	claim := testhelpers.ConsortiumClaim()
	claim.Policy = domain.PolicyRef{}
	suite.store.AddClaim(claim)

	_, err := suite.service.AuthorizePayment(context.Background(), claim.Key, testhelpers.DefaultPaymentRequest())
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidProduct))
	assert.Contains(t, err.Error(), "policy is required")
	assert.Zero(t, suite.cnoua.Calls.Load())
}

// ============================================================================
// EXTERNAL VALIDATION TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ExternalRejection() {
	t := suite.T()
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		return domain.ValidationOutcome{
			Route:        domain.RouteSIMDA,
			Approved:     false,
			ProviderCode: "SIMDA-17",
			Message:      "contract blocked",
		}, nil
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var extErr *domain.ExternalValidationError
	require.ErrorAs(t, err, &extErr)
	assert.False(t, extErr.Unavailable)
	assert.Equal(t, "SIMDA-17", extErr.ProviderCode)
	assert.Equal(t, domain.ErrCodeExternalValidationFailed, extErr.Code())
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ExternalUnavailable() {
	t := suite.T()
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		return domain.ValidationOutcome{}, errors.New("service unavailable")
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var extErr *domain.ExternalValidationError
	require.ErrorAs(t, err, &extErr)
	assert.True(t, extErr.Unavailable)
	assert.Equal(t, domain.ErrCodeExternalServiceUnavailable, extErr.Code())
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ProviderFaultIsRejection() {
	t := suite.T()
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		return domain.ValidationOutcome{}, &validation.ProviderError{
			Code:       "soap:Client",
			Message:    "beneficiary document is invalid",
			StatusCode: 400,
		}
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var extErr *domain.ExternalValidationError
	require.ErrorAs(t, err, &extErr)
	assert.False(t, extErr.Unavailable)
	assert.Equal(t, domain.ErrCodeExternalValidationFailed, extErr.Code())
	assert.Equal(t, "soap:Client", extErr.ProviderCode)
	assert.Equal(t, "beneficiary document is invalid", extErr.Message)
	assert.Equal(t, application.CategoryPermanent, application.CategorizeError(err))
	assert.Equal(t, 422, application.ToHTTPStatus(err))
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_ExhaustedServerErrorIsUnavailable() {
	t := suite.T()
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		return domain.ValidationOutcome{}, fmt.Errorf("maximum retries exceeded: %w", &validation.ProviderError{
			Code:       "unexpected_status",
			Message:    "Bad Gateway",
			StatusCode: 502,
		})
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var extErr *domain.ExternalValidationError
	require.ErrorAs(t, err, &extErr)
	assert.True(t, extErr.Unavailable)
	assert.Equal(t, 503, application.ToHTTPStatus(err))
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_RouteWithoutClient() {
	t := suite.T()
	service := newAuthorizationService(suite.store, suite.registry, 3, suite.cnoua)

	_, err := service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeRouteNotConfigured, svcErr.Code)
}

// ============================================================================
// CONVERSION AND PERSISTENCE FAILURE TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_RateNotFound() {
	t := suite.T()
	suite.store.SetBusinessDate(date(2026, 6, 1))

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var notFound *domain.RateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "2026-06-01", notFound.AsOf)
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_BusinessDateMissing() {
	t := suite.T()
	suite.store.SetBusinessDate(time.Time{})

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	require.ErrorIs(t, err, domain.ErrBusinessDateNotSet)
	suite.assertClaimUntouched()
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_AmbiguousCommitIsTracked() {
	t := suite.T()
	suite.store.ApplyOnCommitError = true
	suite.store.CommitFn = func(ctx context.Context) error {
		return errors.Join(domain.ErrCommitOutcomeUnknown, errors.New("connection reset by peer"))
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	var ambiguous *domain.AmbiguousCommitError
	require.ErrorAs(t, err, &ambiguous)

	pending, ok := suite.registry.Get(ambiguous.AuthorizationID)
	require.True(t, ok)
	assert.Equal(t, testhelpers.DefaultClaimKey(), pending.Key)
	assert.Equal(t, 1, pending.Occurrence)
	assert.Equal(t, "OP001", pending.OperatorID)

	// no resubmission happened
	assert.Equal(t, int32(1), suite.simda.Calls.Load())
	assert.Len(t, suite.store.History(), 1)
}

// ============================================================================
// CONFLICT RETRY TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_RetriesAfterConflict() {
	t := suite.T()
	moved := false
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		if !moved {
			moved = true
			advanced := suite.store.Claim(claim.Key)
			advanced.HistoryOccurrenceCounter = 4
			advanced.TotalPaid = decimal.RequireFromString("1000.00")
			suite.store.AddClaim(advanced)
		}
		return domain.ValidationOutcome{Route: domain.RouteSIMDA, Approved: true, ProviderCode: "00"}, nil
	}

	result, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 5, result.Occurrence)
	assert.True(t, result.PendingBalance.Equal(decimal.RequireFromString("37975.00")))
	assert.Equal(t, int32(2), suite.simda.Calls.Load())
}

func (suite *AuthorizePaymentTestSuite) Test_AuthorizePayment_GivesUpAfterMaxAttempts() {
	t := suite.T()
	suite.simda.ValidateFn = func(ctx context.Context, claim *domain.ClaimMaster, req domain.PaymentRequest) (domain.ValidationOutcome, error) {
		advanced := suite.store.Claim(claim.Key)
		advanced.HistoryOccurrenceCounter++
		suite.store.AddClaim(advanced)
		return domain.ValidationOutcome{Route: domain.RouteSIMDA, Approved: true}, nil
	}

	_, err := suite.service.AuthorizePayment(context.Background(), testhelpers.DefaultClaimKey(), testhelpers.DefaultPaymentRequest())
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int32(3), suite.simda.Calls.Load())
	assert.Empty(t, suite.store.History())
}

// ============================================================================
// ROUTE QUERY TESTS
// ============================================================================

func (suite *AuthorizePaymentTestSuite) Test_RouteFor() {
	t := suite.T()

	route, reason, err := suite.service.RouteFor(context.Background(), testhelpers.DefaultClaimKey())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSIMDA, route)
	assert.NotEmpty(t, reason)

	_, _, err = suite.service.RouteFor(context.Background(), domain.ClaimKey{})
	assert.ErrorIs(t, err, domain.ErrBusinessRuleViolation)
}
