package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// OperationPaymentAuthorization is both the history operation code and the
	// accompaniment event code of an authorized payment.
	OperationPaymentAuthorization = 1098
	EventPaymentAuthorization     = OperationPaymentAuthorization

	CorrectionTypeStandard  = "5"
	AccountingStatusPending = "0"
	HistoryStatusActive     = "0"
)

// HistoryRecord is append-only, keyed by (Key, Occurrence).
type HistoryRecord struct {
	Key             ClaimKey
	Occurrence      int
	AuthorizationID uuid.UUID

	Operation     int
	BusinessDate  time.Time
	OperationTime time.Time

	PaymentType    int
	PolicyType     string
	Principal      decimal.Decimal
	Correction     decimal.Decimal
	Beneficiary    string
	CorrectionType string

	PrincipalBTNF  decimal.Decimal
	CorrectionBTNF decimal.Decimal
	TotalBTNF      decimal.Decimal

	AccountingStatus string
	Status           string
	OperatorID       string
}

func NewHistoryRecord(txc *TransactionContext, claim *ClaimMaster, req PaymentRequest, conv ConversionResult) HistoryRecord {
	return HistoryRecord{
		Key:              claim.Key,
		Occurrence:       claim.NextOccurrence(),
		AuthorizationID:  txc.AuthorizationID,
		Operation:        OperationPaymentAuthorization,
		BusinessDate:     txc.BusinessDate,
		OperationTime:    txc.StartedAt,
		PaymentType:      req.PaymentType,
		PolicyType:       req.PolicyType,
		Principal:        req.Principal,
		Correction:       req.Correction,
		Beneficiary:      req.Beneficiary,
		CorrectionType:   CorrectionTypeStandard,
		PrincipalBTNF:    conv.PrincipalConverted.Amount(),
		CorrectionBTNF:   conv.CorrectionConverted.Amount(),
		TotalBTNF:        conv.Total.Amount(),
		AccountingStatus: AccountingStatusPending,
		Status:           HistoryStatusActive,
		OperatorID:       txc.OperatorID,
	}
}

// AccompanimentEvent is the audit trail entry written for each authorization.
type AccompanimentEvent struct {
	Protocol     Protocol
	EventCode    int
	BusinessDate time.Time
	Occurrence   int
	Notes        string
	OperatorID   string
	EventTime    time.Time
	Key          ClaimKey
}

func NewAccompanimentEvent(txc *TransactionContext, claim *ClaimMaster, occurrence int, notes string) AccompanimentEvent {
	return AccompanimentEvent{
		Protocol:     claim.Protocol,
		EventCode:    EventPaymentAuthorization,
		BusinessDate: txc.BusinessDate,
		Occurrence:   occurrence,
		Notes:        notes,
		OperatorID:   txc.OperatorID,
		EventTime:    txc.StartedAt,
		Key:          claim.Key,
	}
}
