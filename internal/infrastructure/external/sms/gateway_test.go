package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGatewaySender_Send(t *testing.T) {
	t.Run("posts json with bearer key", func(t *testing.T) {
		var got sendRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		s := NewGatewaySender(GatewayConfig{URL: srv.URL, APIKey: "k1", SenderID: "EXPPAY"}, zap.NewNop())
		require.NoError(t, s.Send(context.Background(), "+919876543210", "Your OTP is 123456"))

		assert.Equal(t, "Bearer k1", auth)
		assert.Equal(t, "+919876543210", got.To)
		assert.Equal(t, "Your OTP is 123456", got.Message)
		assert.Equal(t, "EXPPAY", got.Sender)
	})

	t.Run("non 2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid number", http.StatusBadRequest)
		}))
		defer srv.Close()

		s := NewGatewaySender(GatewayConfig{URL: srv.URL}, zap.NewNop())
		err := s.Send(context.Background(), "+91", "x")
		assert.ErrorContains(t, err, "400")
		assert.ErrorContains(t, err, "invalid number")
	})

	t.Run("empty phone", func(t *testing.T) {
		s := NewGatewaySender(GatewayConfig{URL: "http://127.0.0.1:1"}, zap.NewNop())
		assert.Error(t, s.Send(context.Background(), "", "x"))
	})
}
