package bind_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/bind"
)

type input struct {
	Name string `json:"name" validate:"required,max=10"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestJSONDecodesAndValidates(t *testing.T) {
	var in input
	errs, err := bind.JSON(request(`{"name":"ok"}`), &in)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "ok", in.Name)

	errs, err = bind.JSON(request(`{"name":""}`), &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "name")
}

func TestJSONRejectsUnknownFields(t *testing.T) {
	var in input
	_, err := bind.JSON(request(`{"name":"ok","extra":1}`), &in)
	assert.ErrorContains(t, err, "unknown field")
}

func TestJSONRejectsTrailingData(t *testing.T) {
	var in input
	_, err := bind.JSON(request(`{"name":"a"}{"name":"b"}`), &in)
	assert.Error(t, err)
}

func TestJSONLimit(t *testing.T) {
	var in input
	_, err := bind.JSONLimit(request(`{"name":"`+strings.Repeat("x", 100)+`"}`), &in, 16)
	assert.ErrorIs(t, err, bind.ErrBodyTooLarge)
}

func TestJSONEmptyBody(t *testing.T) {
	var in input
	_, err := bind.JSON(request(""), &in)
	assert.ErrorIs(t, err, bind.ErrEmptyBody)
}
