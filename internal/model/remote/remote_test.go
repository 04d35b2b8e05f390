package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/tensor"
)

func TestEmbedRoundTripsOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		require.Equal(t, "dusk castle", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	r := New(srv.URL)
	emb, err := r.Embed(context.Background(), "dusk castle")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, []float32(emb))
}

func TestVAERoundTripsOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req payloadWire
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(req)
	}))
	defer srv.Close()

	r := New(srv.URL)
	in := tensor.SolidColor(2, 2, 0.1, 0.2, 0.3)
	out, err := r.Encode(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, in.H, out.H)
	require.Equal(t, in.Data, out.Data)
}

func TestServerErrorSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(srv.URL)
	_, err := r.Embed(context.Background(), "x")
	require.Error(t, err)
}
