package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutRail_Initiate(t *testing.T) {
	rail, err := NewCheckoutRail("https://pay.example.sn/checkout")
	require.NoError(t, err)

	link, err := rail.Initiate(context.Background(), portssvc.PaymentInitiation{
		Reference: "PAY-ABC",
		Amount:    decimal.NewFromInt(1500),
		Currency:  "XOF",
		Method:    domain.PaymentWave,
	})
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/checkout/wave", u.Path)
	assert.Equal(t, "PAY-ABC", u.Query().Get("reference"))
	assert.Equal(t, "1500", u.Query().Get("amount"))
	assert.Equal(t, "XOF", u.Query().Get("currency"))
}

func TestCheckoutRail_InvalidInput(t *testing.T) {
	_, err := NewCheckoutRail("not a url")
	assert.Error(t, err)

	rail, err := NewCheckoutRail("https://pay.example.sn")
	require.NoError(t, err)
	_, err = rail.Initiate(context.Background(), portssvc.PaymentInitiation{Reference: "PAY-1", Method: "cash"})
	assert.Error(t, err)
}
