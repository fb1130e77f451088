package library

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionStatus is what the gateway reports for a transaction id.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionNotFound  TransactionStatus = "not_found"
)

// GatewayResult is the gateway's answer to a charge or refund attempt.
// Accepted=false is a business decline with the reason in Message; transport
// failures are returned as errors instead.
type GatewayResult struct {
	Accepted      bool
	TransactionID string
	Message       string
}

// PaymentGateway is the external payment collaborator. It is injected into
// settlement operations so production and test implementations are
// interchangeable.
type PaymentGateway interface {
	ProcessPayment(patronID string, amount decimal.Decimal, description string) (*GatewayResult, error)
	RefundPayment(transactionID string, amount decimal.Decimal) (*GatewayResult, error)
	VerifyPaymentStatus(transactionID string) TransactionStatus
}

const (
	defaultAPIKey = "test_api_key_12345"

	txnPrefix = "txn_"
	txnDigits = 10
)

// gatewayCeiling is the stub's per-charge upper limit.
var gatewayCeiling = decimal.NewFromInt(1000)

// StubGateway simulates a payment processor. It keeps no ledger: every call
// is validated on its own and transaction status is inferred from the id
// shape alone.
type StubGateway struct {
	apiKey string
	log    *slog.Logger
}

// NewStubGateway builds a stub with the given API key, falling back to the
// shared test key when empty.
func NewStubGateway(apiKey string) *StubGateway {
	if apiKey == "" {
		apiKey = defaultAPIKey
	}
	return &StubGateway{apiKey: apiKey, log: slog.Default()}
}

// ProcessPayment authorizes a charge against the patron's card on file.
func (g *StubGateway) ProcessPayment(patronID string, amount decimal.Decimal, description string) (*GatewayResult, error) {
	if !validPatronID(patronID) {
		return &GatewayResult{Accepted: false, Message: "Invalid patron ID format"}, nil
	}
	if !amount.IsPositive() {
		return &GatewayResult{Accepted: false, Message: "Amount must be greater than zero"}, nil
	}
	if amount.GreaterThan(gatewayCeiling) {
		return &GatewayResult{Accepted: false, Message: "Amount exceeds maximum allowed"}, nil
	}

	txnID := newTransactionID()
	g.log.Info("payment authorized", "patron", patronID, "amount", amount.StringFixed(2), "txn", txnID)
	return &GatewayResult{
		Accepted:      true,
		TransactionID: txnID,
		Message:       fmt.Sprintf("Payment of $%s processed successfully", amount.StringFixed(2)),
	}, nil
}

// RefundPayment reverses a prior charge.
func (g *StubGateway) RefundPayment(transactionID string, amount decimal.Decimal) (*GatewayResult, error) {
	if !wellFormedTransactionID(transactionID) {
		return &GatewayResult{Accepted: false, Message: "Invalid transaction ID"}, nil
	}
	if !amount.IsPositive() {
		return &GatewayResult{Accepted: false, Message: "Refund amount must be greater than zero"}, nil
	}

	g.log.Info("refund processed", "txn", transactionID, "amount", amount.StringFixed(2))
	return &GatewayResult{
		Accepted:      true,
		TransactionID: transactionID,
		Message:       fmt.Sprintf("Refund of $%s processed successfully", amount.StringFixed(2)),
	}, nil
}

// VerifyPaymentStatus reports a transaction's status. The stub has no real
// ledger, so any well-formed id counts as completed.
func (g *StubGateway) VerifyPaymentStatus(transactionID string) TransactionStatus {
	if wellFormedTransactionID(transactionID) {
		return TransactionCompleted
	}
	return TransactionNotFound
}

func newTransactionID() string {
	var sb strings.Builder
	sb.WriteString(txnPrefix)
	for i := 0; i < txnDigits; i++ {
		sb.WriteByte(byte('0' + rand.Intn(10)))
	}
	return sb.String()
}

func wellFormedTransactionID(id string) bool {
	rest, ok := strings.CutPrefix(id, txnPrefix)
	if !ok || rest == "" {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
