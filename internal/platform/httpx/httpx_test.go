package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/shared"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.Validationf("bad"), http.StatusBadRequest},
		{fmt.Errorf("invoice %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: stock", shared.ErrConflict), http.StatusConflict},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		RespondError(rr, req, nil, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestRespondErrorDoesNotLeakInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), nil, errors.New("password=hunter2"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Empty(t, body.Detail)
	require.NotContains(t, rr.Body.String(), "hunter2")
}

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","quantity":0}`))
	var dst sampleRequest
	err := Decode(req, &dst)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "name failed on required")
	require.Contains(t, err.Error(), "quantity failed on gt")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"frames","quantity":2}`))
	require.NoError(t, Decode(req, &dst))
	require.Equal(t, 2, dst.Quantity)
}

func TestUUIDParam(t *testing.T) {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	_, err := UUIDParam(req, "id")
	require.ErrorIs(t, err, shared.ErrValidation)
}

type optionalBody struct {
	Method string `json:"method" validate:"omitempty,oneof=cash card"`
}

func TestDecodeOptionalAcceptsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(""))
	req.ContentLength = -1
	var got optionalBody
	require.NoError(t, DecodeOptional(req, &got))
	require.Empty(t, got.Method)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"method":"card"}`))
	require.NoError(t, DecodeOptional(req, &got))
	require.Equal(t, "card", got.Method)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"method":`))
	require.ErrorIs(t, DecodeOptional(req, &got), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"method":"cheque"}`))
	require.ErrorIs(t, DecodeOptional(req, &optionalBody{}), shared.ErrValidation)
}
