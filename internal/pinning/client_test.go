package pinning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "diploma.pdf", header.Filename)
		assert.Equal(t, "certificate bytes", string(content))
		assert.JSONEq(t, `{"name":"diploma.pdf"}`, r.FormValue("pinataMetadata"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"IpfsHash":"QmTest","PinSize":17,"Timestamp":"2025-01-01T00:00:00Z"}`)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, GatewayURL: "https://gateway.pinata.cloud/", JWT: "test-jwt"})

	pin, err := c.PinFile(context.Background(), "diploma.pdf", strings.NewReader("certificate bytes"))
	require.NoError(t, err)
	assert.Equal(t, "QmTest", pin.CID)
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmTest", pin.URL)
	assert.EqualValues(t, 17, pin.Size)
}

func TestPinJSON_APIKeyAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		var body struct {
			Content  map[string]string `json:"pinataContent"`
			Metadata map[string]string `json:"pinataMetadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body.Content["recipient"])
		assert.Equal(t, "meta.json", body.Metadata["name"])

		_, _ = io.WriteString(w, `{"IpfsHash":"QmJSON"}`)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, GatewayURL: "https://gw.example", APIKey: "key", SecretAPIKey: "secret"})

	pin, err := c.PinJSON(context.Background(), "meta.json", map[string]string{"recipient": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/QmJSON", pin.URL)
}

func TestPin_RejectedUpload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":"Invalid authentication"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, GatewayURL: "https://gw.example"})

	_, err := c.PinFile(context.Background(), "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUploadFailed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestPin_SingleAttemptByDefault(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, GatewayURL: "https://gw.example"})

	_, err := c.PinFile(context.Background(), "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUploadFailed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestPin_RetriesWhenConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"IpfsHash":"QmRetry"}`)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL, GatewayURL: "https://gw.example", RetryMax: 1})
	c.http.RetryWaitMin = 0
	c.http.RetryWaitMax = 0

	pin, err := c.PinFile(context.Background(), "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "QmRetry", pin.CID)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}
