package library

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubGatewayDefaultKey(t *testing.T) {
	gw := NewStubGateway("")
	assert.Equal(t, defaultAPIKey, gw.apiKey)

	gw = NewStubGateway("live_key_67890")
	assert.Equal(t, "live_key_67890", gw.apiKey)
}

func TestStubGatewayProcessPayment(t *testing.T) {
	gw := NewStubGateway("")

	result, err := gw.ProcessPayment("123456", decimal.RequireFromString("10.50"), "Late fees for 'Test Book'")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, strings.HasPrefix(result.TransactionID, "txn_"))
	assert.Equal(t, TransactionCompleted, gw.VerifyPaymentStatus(result.TransactionID))
}

func TestStubGatewayProcessPaymentRejections(t *testing.T) {
	gw := NewStubGateway("")

	testCases := []struct {
		name     string
		patronID string
		amount   string
	}{
		{"short patron id", "12345", "5.00"},
		{"non-numeric patron id", "abc123", "5.00"},
		{"zero amount", "123456", "0.00"},
		{"negative amount", "123456", "-1.00"},
		{"amount above ceiling", "123456", "1000.01"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result, err := gw.ProcessPayment(tt.patronID, decimal.RequireFromString(tt.amount), "desc")
			require.NoError(t, err)
			assert.False(t, result.Accepted)
			assert.Empty(t, result.TransactionID)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestStubGatewayCeilingBoundary(t *testing.T) {
	gw := NewStubGateway("")

	result, err := gw.ProcessPayment("123456", decimal.NewFromInt(1000), "desc")
	require.NoError(t, err)
	assert.True(t, result.Accepted, "exactly the ceiling is accepted")
}

func TestStubGatewayRefund(t *testing.T) {
	gw := NewStubGateway("")

	result, err := gw.RefundPayment("txn_1234567890", decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	for _, badID := range []string{"", "txn_", "nope_123", "txn_12a4"} {
		result, err := gw.RefundPayment(badID, decimal.RequireFromString("5.00"))
		require.NoError(t, err)
		assert.False(t, result.Accepted, "id %q accepted", badID)
	}

	result, err = gw.RefundPayment("txn_1234567890", decimal.Zero)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
}

func TestStubGatewayVerifyStatus(t *testing.T) {
	gw := NewStubGateway("")

	// No ledger: status is inferred from the id shape alone.
	assert.Equal(t, TransactionCompleted, gw.VerifyPaymentStatus("txn_000000"))
	assert.Equal(t, TransactionNotFound, gw.VerifyPaymentStatus("txn_"))
	assert.Equal(t, TransactionNotFound, gw.VerifyPaymentStatus(""))
	assert.Equal(t, TransactionNotFound, gw.VerifyPaymentStatus("payment_123"))
	assert.Equal(t, TransactionNotFound, gw.VerifyPaymentStatus("txn_12ab"))
}

func TestTransactionIDShape(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := newTransactionID()
		assert.True(t, wellFormedTransactionID(id), "generated id %q", id)
		assert.Len(t, id, len(txnPrefix)+txnDigits)
	}
}
