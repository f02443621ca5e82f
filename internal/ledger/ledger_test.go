package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestApplyRejectsOverpayment(t *testing.T) {
	_, _, err := Apply(d(1000), d(700), d(400))
	require.True(t, IsOverpayment(err))

	var over *OverpaymentError
	require.True(t, errors.As(err, &over))
	require.True(t, over.Remaining().Equal(d(300)))
}

func TestApplyExactSettles(t *testing.T) {
	left, status, err := Apply(d(1000), d(700), d(300))
	require.NoError(t, err)
	require.Equal(t, StatusPaid, status)
	require.True(t, left.IsZero())
}

func TestApplyPartialStaysPending(t *testing.T) {
	left, status, err := Apply(d(1000), decimal.Zero, d(200))
	require.NoError(t, err)
	require.Equal(t, StatusPending, status)
	require.True(t, left.Equal(d(800)))
}

func TestApplyInvalidAmount(t *testing.T) {
	_, _, err := Apply(d(1000), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = Apply(d(1000), decimal.Zero, d(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestApplyRejectsFractionsOfACent(t *testing.T) {
	_, _, err := Apply(d(100), decimal.Zero, decimal.RequireFromString("99.995"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = Apply(d(100), decimal.Zero, decimal.RequireFromString("0.001"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	left, status, err := Apply(d(100), decimal.Zero, decimal.RequireFromString("99.99"))
	require.NoError(t, err)
	require.Equal(t, StatusPending, status)
	require.Equal(t, "0.01", left.String())
}

func TestValidAmount(t *testing.T) {
	for _, raw := range []string{"0.01", "1", "250.50", "999999999999.99"} {
		require.NoError(t, ValidAmount(decimal.RequireFromString(raw)), raw)
	}
	for _, raw := range []string{"0", "-1", "0.001", "10.105", "1000000000000"} {
		require.ErrorIs(t, ValidAmount(decimal.RequireFromString(raw)), ErrInvalidAmount, raw)
	}
	require.Equal(t, "18.00", Cents(decimal.RequireFromString("18.0018")).StringFixed(2))
}

func TestOverpaymentMessageShowsExactBalance(t *testing.T) {
	err := &OverpaymentError{Owed: decimal.RequireFromString("118.0118"), Paid: decimal.RequireFromString("118.01"), Attempted: decimal.RequireFromString("0.01")}
	require.Equal(t, "ledger: payment of 0.01 exceeds remaining balance 0.0018", err.Error())

	err = &OverpaymentError{Owed: d(1000), Paid: d(700), Attempted: d(400)}
	require.Equal(t, "ledger: payment of 400.00 exceeds remaining balance 300.00", err.Error())
}

func TestApplyOnSettledBalance(t *testing.T) {
	_, _, err := Apply(d(1000), d(1000), d(1))
	require.True(t, IsOverpayment(err))
}

func TestParseStatusNormalisesCasing(t *testing.T) {
	for raw, want := range map[string]Status{"Paid": StatusPaid, "paid": StatusPaid, " pending ": StatusPending} {
		got, err := ParseStatus(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseStatus("void")
	require.Error(t, err)
}

func TestDuplicateChargeErrorUnwraps(t *testing.T) {
	cause := errors.New("unique violation")
	err := error(&DuplicateChargeError{Kind: KindDepositOverdue, OwnerID: 4, Period: "July 2020", Err: cause})
	require.True(t, IsDuplicateCharge(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "July 2020")
}

func TestErrorsCarryHTTPStatus(t *testing.T) {
	type coder interface{ StatusCode() int }
	require.Equal(t, 404, ErrNotFound.(coder).StatusCode())
	require.Equal(t, 400, ErrInvalidAmount.(coder).StatusCode())
	require.Equal(t, 409, (&DuplicateChargeError{}).StatusCode())
	require.Equal(t, 422, (&OverpaymentError{}).StatusCode())
}
