package payment

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureIsHexSHA512OfConcatenation(t *testing.T) {
	sum := sha512.Sum512([]byte("genius-1" + "200" + "200000.00" + "server-key"))

	got := Signature("genius-1", "200", "200000.00", "server-key")

	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Len(t, got, 128)
}

func TestVerifySignature(t *testing.T) {
	g := NewMidtransGateway("server-key", false)
	valid := Signature("genius-1", "200", "200000.00", "server-key")

	tests := []struct {
		name      string
		gateway   *MidtransGateway
		amount    string
		signature string
		want      bool
	}{
		{name: "matching", gateway: g, amount: "200000.00", signature: valid, want: true},
		{name: "tampered amount", gateway: g, amount: "1.00", signature: valid, want: false},
		{name: "empty signature", gateway: g, amount: "200000.00", signature: "", want: false},
		{name: "no server key", gateway: NewMidtransGateway("", false), amount: "200000.00", signature: Signature("genius-1", "200", "200000.00", ""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.gateway.VerifySignature("genius-1", "200", tt.amount, tt.signature))
		})
	}
}

func TestUnconfiguredGatewayRefusesCalls(t *testing.T) {
	g := NewMidtransGateway("", false)

	_, err := g.CreateCheckout(CheckoutRequest{OrderId: "genius-1", Amount: 1})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.CheckStatus("genius-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
