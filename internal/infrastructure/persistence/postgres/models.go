package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimModel is a claim_master row. Occurrence doubles as the row version.
type ClaimModel struct {
	InsuranceType   int
	Origin          int
	Branch          int
	ClaimNumber     int
	ProtocolSource  int
	ProtocolNumber  int
	ProtocolDac     int
	PolicyOrigin    int
	PolicyBranch    int
	PolicyNumber    int
	ProductCode     int
	InsuranceKind   int
	ExpectedReserve decimal.Decimal
	TotalPaid       decimal.Decimal
	Occurrence      int
}

type ContractModel struct {
	PolicyOrigin   int
	PolicyBranch   int
	PolicyNumber   int
	ContractNumber int
	ProductCode    int
	Status         string
}

type RateModel struct {
	Currency  string
	ValidFrom time.Time
	ValidTo   time.Time
	Rate      decimal.Decimal
}

type HistoryModel struct {
	InsuranceType    int
	Origin           int
	Branch           int
	ClaimNumber      int
	Occurrence       int
	AuthorizationID  uuid.UUID
	Operation        int
	BusinessDate     time.Time
	OperationTime    time.Time
	PaymentType      int
	PolicyType       string
	Principal        decimal.Decimal
	Correction       decimal.Decimal
	Beneficiary      string
	CorrectionType   string
	PrincipalBTNF    decimal.Decimal
	CorrectionBTNF   decimal.Decimal
	TotalBTNF        decimal.Decimal
	AccountingStatus string
	Status           string
	OperatorID       string
}

type RelationshipModel struct {
	PhaseCode int
	EventCode int
	ValidFrom time.Time
	ValidTo   *time.Time
	Indicator string
	Active    bool
}

type PhaseModel struct {
	ProtocolSource    int
	ProtocolNumber    int
	ProtocolDac       int
	PhaseCode         int
	EventCode         int
	RelationshipStart time.Time
	OpenedOn          time.Time
	ClosedOn          time.Time
}
