package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"go-signpdf/internal/signing"
	"go-signpdf/internal/users"
)

func TestNumberDecoding(t *testing.T) {
	cases := []struct {
		in      string
		present bool
		invalid bool
		value   float64
	}{
		{`{"n": 12}`, true, false, 12},
		{`{"n": 12.5}`, true, false, 12.5},
		{`{"n": "40"}`, true, false, 40},
		{`{"n": " 7.25 "}`, true, false, 7.25},
		{`{"n": null}`, false, false, 0},
		{`{}`, false, false, 0},
		{`{"n": "abc"}`, true, true, 0},
		{`{"n": ""}`, true, true, 0},
		{`{"n": true}`, true, true, 0},
		{`{"n": "NaN"}`, true, true, 0},
	}
	for _, c := range cases {
		var v struct {
			N number `json:"n"`
		}
		require.NoError(t, json.Unmarshal([]byte(c.in), &v), c.in)
		require.Equal(t, c.present, v.N.present, c.in)
		require.Equal(t, c.invalid, v.N.invalid, c.in)
		require.Equal(t, c.value, v.N.value, c.in)
	}
}

func TestNumberInt(t *testing.T) {
	i, ok := number{}.int()
	require.True(t, ok)
	require.Nil(t, i)

	i, ok = number{present: true, value: 3}.int()
	require.True(t, ok)
	require.Equal(t, 3, *i)

	_, ok = number{present: true, value: 2.5}.int()
	require.False(t, ok)
	_, ok = number{present: true, invalid: true}.int()
	require.False(t, ok)
}

func TestNumberTruncated(t *testing.T) {
	i, ok := number{}.truncated()
	require.True(t, ok)
	require.Nil(t, i)

	for _, in := range []string{`{"n": 12.5}`, `{"n": "12.9"}`, `{"n": 12}`} {
		var v struct {
			N number `json:"n"`
		}
		require.NoError(t, json.Unmarshal([]byte(in), &v), in)
		i, ok = v.N.truncated()
		require.True(t, ok, in)
		require.Equal(t, 12, *i, in)
	}

	_, ok = number{present: true, invalid: true}.truncated()
	require.False(t, ok)
	_, ok = number{present: true, value: 1e12}.truncated()
	require.False(t, ok)
}

func TestWriteSigningError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/pdf/sign/x", nil)

	rr := httptest.NewRecorder()
	writeSigningError(rr, r, &signing.Error{Kind: signing.ErrForbidden, Message: "nope"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.JSONEq(t, `{"success":false,"message":"nope"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	writeSigningError(rr, r, errors.New("db password is hunter2"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"success":false,"message":"Internal server error"}`, rr.Body.String())
}

func TestWriteUserError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	cases := []struct {
		err    error
		status int
	}{
		{&users.InputError{Message: "Passwords do not match"}, http.StatusBadRequest},
		{users.ErrEmailTaken, http.StatusBadRequest},
		{users.ErrInvalidCredentials, http.StatusUnauthorized},
		{users.ErrInvalidResetToken, http.StatusBadRequest},
		{users.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		writeUserError(rr, r, c.err)
		require.Equal(t, c.status, rr.Code, c.err.Error())
	}
}
