package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesDerivedSentinel(t *testing.T) {
	derived := ErrInvalidFilterConfig.Derive("size=%d", 0)
	wrapped := fmt.Errorf("create: %w", derived)

	assert.True(t, errors.Is(wrapped, ErrInvalidFilterConfig))
	assert.False(t, errors.Is(wrapped, ErrFilterNotCreated))
	assert.Equal(t, "size=0", derived.Detail)
	assert.Equal(t, "size and num_hashes must be positive", ErrInvalidFilterConfig.Detail)
}

func TestFromErrorWalksChain(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrTooManySessions)

	e, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, e.HTTPStatus())
	assert.Equal(t, codes.ResourceExhausted, e.GRPCCode())

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrFilterNotCreated.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrInvalidFilterConfig.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrServiceUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrRenderFailed.HTTPStatus())
}

func TestWrapKeepsClassification(t *testing.T) {
	err := Wrap(ErrUnknownDigest, ErrInternal, "parse digest")
	assert.Equal(t, ErrInvalidArg, err.Type)
	assert.True(t, errors.Is(err, ErrUnknownDigest))
	assert.Nil(t, Wrap(nil, ErrInternal, "noop"))
	assert.NotEmpty(t, err.Stack)
}

func TestGRPCStatus(t *testing.T) {
	st, ok := status.FromError(fmt.Errorf("wrapped: %w", ErrFilterNotCreated))
	require.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Contains(t, st.Message(), "bloom filter not created yet")
}
