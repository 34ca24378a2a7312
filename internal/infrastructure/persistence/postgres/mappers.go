package postgres

import (
	"github.com/DanielPopoola/claimpay/internal/domain"
)

func toDomainClaim(m ClaimModel) *domain.ClaimMaster {
	return &domain.ClaimMaster{
		Key: domain.ClaimKey{
			InsuranceType: m.InsuranceType,
			Origin:        m.Origin,
			Branch:        m.Branch,
			Number:        m.ClaimNumber,
		},
		Protocol: domain.Protocol{
			Source:     m.ProtocolSource,
			Number:     m.ProtocolNumber,
			CheckDigit: m.ProtocolDac,
		},
		Policy: domain.PolicyRef{
			Origin: m.PolicyOrigin,
			Branch: m.PolicyBranch,
			Number: m.PolicyNumber,
		},
		ProductCode:              m.ProductCode,
		InsuranceKind:            m.InsuranceKind,
		ExpectedReserve:          m.ExpectedReserve,
		TotalPaid:                m.TotalPaid,
		HistoryOccurrenceCounter: m.Occurrence,
	}
}

func toDomainContract(m ContractModel) domain.ContractRecord {
	return domain.ContractRecord{
		Policy: domain.PolicyRef{
			Origin: m.PolicyOrigin,
			Branch: m.PolicyBranch,
			Number: m.PolicyNumber,
		},
		ContractNumber: m.ContractNumber,
		ProductCode:    m.ProductCode,
		Status:         m.Status,
	}
}

func toDomainRate(m RateModel) domain.RateRecord {
	return domain.RateRecord{
		Currency:  m.Currency,
		ValidFrom: m.ValidFrom,
		ValidTo:   m.ValidTo,
		Rate:      m.Rate,
	}
}

func toHistoryModel(h *domain.HistoryRecord) HistoryModel {
	return HistoryModel{
		InsuranceType:    h.Key.InsuranceType,
		Origin:           h.Key.Origin,
		Branch:           h.Key.Branch,
		ClaimNumber:      h.Key.Number,
		Occurrence:       h.Occurrence,
		AuthorizationID:  h.AuthorizationID,
		Operation:        h.Operation,
		BusinessDate:     h.BusinessDate,
		OperationTime:    h.OperationTime,
		PaymentType:      h.PaymentType,
		PolicyType:       h.PolicyType,
		Principal:        h.Principal,
		Correction:       h.Correction,
		Beneficiary:      h.Beneficiary,
		CorrectionType:   h.CorrectionType,
		PrincipalBTNF:    h.PrincipalBTNF,
		CorrectionBTNF:   h.CorrectionBTNF,
		TotalBTNF:        h.TotalBTNF,
		AccountingStatus: h.AccountingStatus,
		Status:           h.Status,
		OperatorID:       h.OperatorID,
	}
}

func toDomainHistory(m HistoryModel) *domain.HistoryRecord {
	return &domain.HistoryRecord{
		Key: domain.ClaimKey{
			InsuranceType: m.InsuranceType,
			Origin:        m.Origin,
			Branch:        m.Branch,
			Number:        m.ClaimNumber,
		},
		Occurrence:       m.Occurrence,
		AuthorizationID:  m.AuthorizationID,
		Operation:        m.Operation,
		BusinessDate:     m.BusinessDate,
		OperationTime:    m.OperationTime,
		PaymentType:      m.PaymentType,
		PolicyType:       m.PolicyType,
		Principal:        m.Principal,
		Correction:       m.Correction,
		Beneficiary:      m.Beneficiary,
		CorrectionType:   m.CorrectionType,
		PrincipalBTNF:    m.PrincipalBTNF,
		CorrectionBTNF:   m.CorrectionBTNF,
		TotalBTNF:        m.TotalBTNF,
		AccountingStatus: m.AccountingStatus,
		Status:           m.Status,
		OperatorID:       m.OperatorID,
	}
}

func toDomainRelationship(m RelationshipModel) domain.PhaseEventRelationship {
	return domain.PhaseEventRelationship{
		PhaseCode: m.PhaseCode,
		EventCode: m.EventCode,
		ValidFrom: m.ValidFrom,
		ValidTo:   m.ValidTo,
		Indicator: domain.PhaseIndicator(m.Indicator),
		Active:    m.Active,
	}
}

func toDomainPhase(m PhaseModel) *domain.PhaseRecord {
	return &domain.PhaseRecord{
		Protocol: domain.Protocol{
			Source:     m.ProtocolSource,
			Number:     m.ProtocolNumber,
			CheckDigit: m.ProtocolDac,
		},
		PhaseCode:         m.PhaseCode,
		EventCode:         m.EventCode,
		RelationshipStart: m.RelationshipStart,
		OpenedOn:          m.OpenedOn,
		ClosedOn:          m.ClosedOn,
	}
}
