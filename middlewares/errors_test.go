package middlewares_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/middlewares"
)

func TestPanicErrorHelpers(t *testing.T) {
	t.Parallel()

	pe := internal.NewPanicError("boom", 0, 0)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "direct", err: pe, want: true},
		{name: "wrapped", err: fmt.Errorf("handler: %w", pe), want: true},
		{name: "joined", err: errors.Join(http.ErrNoCookie, pe), want: true},
		{name: "plain error", err: http.ErrNoCookie, want: false},
		{name: "http error", err: internal.ErrNotFound("gone"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, middlewares.IsPanicError(tt.err))

			got, ok := middlewares.AsPanicError(tt.err)
			require.Equal(t, tt.want, ok)
			if tt.want {
				require.Same(t, pe, got)
				require.Equal(t, "panic: boom", got.Error())
			}
		})
	}
}
