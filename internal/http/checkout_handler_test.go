package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CheckoutMock struct {
	summary    *checkout.Summary
	prepareErr error
	result     *checkout.Result
	submitErr  error
	forms      []checkout.Form
}

func (c *CheckoutMock) Prepare(context.Context) (*checkout.Summary, error) {
	return c.summary, c.prepareErr
}

func (c *CheckoutMock) Submit(_ context.Context, _ *checkout.Summary, form checkout.Form) (*checkout.Result, error) {
	c.forms = append(c.forms, form)
	return c.result, c.submitErr
}

func TestGetSummary_Success(t *testing.T) {
	svc := &CheckoutMock{summary: &checkout.Summary{
		Subtotal: decimal.NewFromInt(500),
		Discount: decimal.NewFromInt(50),
		Shipping: decimal.NewFromInt(50),
		Total:    decimal.NewFromInt(500),
	}}
	handler := NewCheckoutHandler(svc, 5*time.Second, nil)

	recorder := httptest.NewRecorder()
	handler.GetSummary(recorder, httptest.NewRequest("GET", "/checkout", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response checkout.Summary
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.True(t, response.Total.Equal(decimal.NewFromInt(500)))
}

func TestPlaceOrder_Cash(t *testing.T) {
	svc := &CheckoutMock{
		summary: &checkout.Summary{},
		result: &checkout.Result{
			PaymentMethod: domain.PaymentCash,
			OrderID:       "ord-1",
			NavigateTo:    "/order-confirmation/ord-1",
			CartCleared:   true,
		},
	}
	handler := NewCheckoutHandler(svc, 5*time.Second, nil)

	body := []byte(`{"shipping_address":"12 Rose Lane","payment_method":"cash"}`)
	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/checkout", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, recorder.Code)
	var response checkout.Result
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "/order-confirmation/ord-1", response.NavigateTo)
	require.Len(t, svc.forms, 1)
	assert.Equal(t, checkout.Form{ShippingAddress: "12 Rose Lane", PaymentMethod: "cash"}, svc.forms[0])
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := &CheckoutMock{summary: &checkout.Summary{}, submitErr: domain.ErrEmptyCart}
	handler := NewCheckoutHandler(svc, 5*time.Second, nil)

	body := []byte(`{"shipping_address":"12 Rose Lane","payment_method":"cash"}`)
	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/checkout", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestPlaceOrder_PrepareFailsBeforeSubmit(t *testing.T) {
	svc := &CheckoutMock{prepareErr: domain.ErrUnauthenticated}
	handler := NewCheckoutHandler(svc, 5*time.Second, nil)

	body := []byte(`{"shipping_address":"12 Rose Lane","payment_method":"cash"}`)
	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/checkout", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, svc.forms)
}

func TestPlaceOrder_InvalidJSON(t *testing.T) {
	svc := &CheckoutMock{}
	handler := NewCheckoutHandler(svc, 5*time.Second, nil)

	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/checkout", bytes.NewReader([]byte("{"))))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, svc.forms)
}
