package validation

import (
	"encoding/xml"

	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/shopspring/decimal"
)

// ApprovedCode is returned by every provider for an approved payment.
const ApprovedCode = "00000000"

// PaymentValidationRequest is the payload sent to every provider.
type PaymentValidationRequest struct {
	XMLName        xml.Name        `json:"-" xml:"ValidatePayment"`
	Source         int             `json:"fonte" xml:"Fonte"`
	ProtocolNumber int             `json:"protsini" xml:"Protsini"`
	CheckDigit     int             `json:"dac" xml:"Dac"`
	InsuranceType  int             `json:"tipseg" xml:"Tipseg"`
	Origin         int             `json:"orgsin" xml:"Orgsin"`
	Branch         int             `json:"rmosin" xml:"Rmosin"`
	ClaimNumber    int             `json:"numsin" xml:"Numsin"`
	ProductCode    int             `json:"cod_produ" xml:"CodProdu"`
	PolicyNumber   int             `json:"num_apol" xml:"NumApol"`
	PaymentType    int             `json:"tipo_pagamento" xml:"TipoPagamento"`
	Principal      decimal.Decimal `json:"valor_principal" xml:"ValorPrincipal"`
	Correction     decimal.Decimal `json:"valor_correcao" xml:"ValorCorrecao"`
	Currency       string          `json:"moeda" xml:"Moeda"`
	Beneficiary    string          `json:"beneficiario,omitempty" xml:"Beneficiario,omitempty"`
	OperatorID     string          `json:"operador" xml:"Operador"`
}

func newPaymentValidationRequest(claim *domain.ClaimMaster, req domain.PaymentRequest) PaymentValidationRequest {
	return PaymentValidationRequest{
		Source:         claim.Protocol.Source,
		ProtocolNumber: claim.Protocol.Number,
		CheckDigit:     claim.Protocol.CheckDigit,
		InsuranceType:  claim.Key.InsuranceType,
		Origin:         claim.Key.Origin,
		Branch:         claim.Key.Branch,
		ClaimNumber:    claim.Key.Number,
		ProductCode:    claim.ProductCode,
		PolicyNumber:   claim.Policy.Number,
		PaymentType:    req.PaymentType,
		Principal:      req.Principal,
		Correction:     req.Correction,
		Currency:       req.Currency,
		Beneficiary:    req.Beneficiary,
		OperatorID:     req.OperatorID,
	}
}

// CNOUAResponse carries the 8-character EZERT8 return code.
type CNOUAResponse struct {
	Ezert8       string `json:"ezert8"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ProviderErrorResponse is the JSON error body of a provider.
type ProviderErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

type soapRequestEnvelope struct {
	XMLName xml.Name        `xml:"soap:Envelope"`
	SoapNS  string          `xml:"xmlns:soap,attr"`
	Body    soapRequestBody `xml:"soap:Body"`
}

type soapRequestBody struct {
	Payload PaymentValidationRequest
}

type soapResponseEnvelope struct {
	XMLName xml.Name         `xml:"Envelope"`
	Body    soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Fault    *soapFault               `xml:"Fault"`
	Response *ValidatePaymentResponse `xml:"ValidatePaymentResponse"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// ValidatePaymentResponse is the SOAP answer of SIPUA and SIMDA.
type ValidatePaymentResponse struct {
	ReturnCode string `xml:"ReturnCode"`
	Message    string `xml:"Message"`
}
