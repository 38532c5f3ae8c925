package filedock_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signatureQuery(credential, amzDate, expires, signature string) url.Values {
	return url.Values{
		"X-Amz-Algorithm":     []string{filedock.SignatureAlgorithm},
		"X-Amz-Credential":    []string{credential},
		"X-Amz-Date":          []string{amzDate},
		"X-Amz-Expires":       []string{expires},
		"X-Amz-SignedHeaders": []string{"host"},
		"X-Amz-Signature":     []string{signature},
	}
}

func TestSignatureVerifier_Verify(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{
		"AKIATEST": "testsecret",
	})

	verifier := filedock.NewSignatureVerifier("us-east-1", "s3", store)

	validTime := time.Now().UTC().Add(-30 * time.Minute)
	validDateStamp := validTime.Format(filedock.DateFormat)
	validAmzDate := validTime.Format(filedock.DateTimeFormat)
	validCredential := fmt.Sprintf("AKIATEST/%s/us-east-1/s3/aws4_request", validDateStamp)

	oldTime := time.Now().UTC().Add(-2 * time.Hour)
	oldCredential := fmt.Sprintf("AKIATEST/%s/us-east-1/s3/aws4_request", oldTime.Format(filedock.DateFormat))

	wrongAlgorithm := signatureQuery(validCredential, validAmzDate, "3600", "abc123")
	wrongAlgorithm.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA1")

	missingAlgorithm := signatureQuery(validCredential, validAmzDate, "3600", "abc123")
	missingAlgorithm.Del("X-Amz-Algorithm")

	tests := []struct {
		name      string
		query     url.Values
		wantError string
	}{
		{
			name:      "empty query",
			query:     url.Values{},
			wantError: "missing required signature parameters",
		},
		{
			name:      "missing algorithm",
			query:     missingAlgorithm,
			wantError: "missing required signature parameters",
		},
		{
			name:      "invalid algorithm",
			query:     wrongAlgorithm,
			wantError: "invalid algorithm",
		},
		{
			name:      "invalid date format",
			query:     signatureQuery(validCredential, "invalid-date", "3600", "abc123"),
			wantError: "invalid X-Amz-Date format",
		},
		{
			name:      "expires zero",
			query:     signatureQuery(validCredential, validAmzDate, "0", "abc123"),
			wantError: "invalid X-Amz-Expires",
		},
		{
			name:      "expires too large",
			query:     signatureQuery(validCredential, validAmzDate, "604801", "abc123"),
			wantError: "invalid X-Amz-Expires",
		},
		{
			name:      "expired signature",
			query:     signatureQuery(oldCredential, oldTime.Format(filedock.DateTimeFormat), "3600", "abc123"),
			wantError: "signature expired",
		},
		{
			name:      "invalid credential format",
			query:     signatureQuery("AKIATEST/invalid", validAmzDate, "3600", "abc123"),
			wantError: "invalid X-Amz-Credential format",
		},
		{
			name:      "invalid terminator",
			query:     signatureQuery(fmt.Sprintf("AKIATEST/%s/us-east-1/s3/wrong", validDateStamp), validAmzDate, "3600", "abc123"),
			wantError: "invalid X-Amz-Credential format",
		},
		{
			name:      "credential date mismatch",
			query:     signatureQuery("AKIATEST/20260101/us-east-1/s3/aws4_request", validAmzDate, "3600", "abc123"),
			wantError: "credential date mismatch",
		},
		{
			name:      "region mismatch",
			query:     signatureQuery(fmt.Sprintf("AKIATEST/%s/us-west-2/s3/aws4_request", validDateStamp), validAmzDate, "3600", "abc123"),
			wantError: "region mismatch",
		},
		{
			name:      "service mismatch",
			query:     signatureQuery(fmt.Sprintf("AKIATEST/%s/us-east-1/ec2/aws4_request", validDateStamp), validAmzDate, "3600", "abc123"),
			wantError: "service mismatch",
		},
		{
			name:      "unknown access key",
			query:     signatureQuery(fmt.Sprintf("WRONGKEY/%s/us-east-1/s3/aws4_request", validDateStamp), validAmzDate, "3600", "abc123"),
			wantError: "access key not found",
		},
		{
			name:      "signature mismatch",
			query:     signatureQuery(validCredential, validAmzDate, "3600", "wrongsignature123"),
			wantError: "signature mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			headers.Set("Host", "localhost:8080")

			err := verifier.Verify(http.MethodGet, "/objects/root/a.txt", tt.query, headers)

			require.Error(t, err)
			assert.ErrorIs(t, err, filedock.ErrUnauthorized)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestSigner_Presign(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"AKIATEST": "testsecret"})
	verifier := filedock.NewSignatureVerifier("us-east-1", "s3", store)
	signer := filedock.NewSigner("us-east-1", "s3", "AKIATEST", "testsecret")

	verify := func(t *testing.T, method, signed string) error {
		t.Helper()
		u, err := url.Parse(signed)
		require.NoError(t, err)
		headers := http.Header{}
		headers.Set("Host", u.Host)
		return verifier.Verify(method, u.Path, u.Query(), headers)
	}

	t.Run("round trip", func(t *testing.T) {
		before := time.Now()
		signed, expiresAt, err := signer.Presign(http.MethodPut, "http://localhost:8080/objects/root/1-a.txt", 15*time.Minute)
		require.NoError(t, err)

		assert.WithinDuration(t, before.Add(15*time.Minute), expiresAt, 5*time.Second)
		assert.NoError(t, verify(t, http.MethodPut, signed))
	})

	t.Run("existing query is signed", func(t *testing.T) {
		signed, _, err := signer.Presign(http.MethodGet, "http://localhost:8080/objects/root/a.pdf?disposition=attachment", time.Hour)
		require.NoError(t, err)
		assert.NoError(t, verify(t, http.MethodGet, signed))

		u, _ := url.Parse(signed)
		q := u.Query()
		q.Set("disposition", "inline")
		u.RawQuery = q.Encode()
		assert.ErrorContains(t, verify(t, http.MethodGet, u.String()), "signature mismatch")
	})

	t.Run("method is bound", func(t *testing.T) {
		signed, _, err := signer.Presign(http.MethodGet, "http://localhost:8080/objects/root/a.txt", time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, verify(t, http.MethodDelete, signed), filedock.ErrUnauthorized)
	})

	t.Run("host is bound", func(t *testing.T) {
		signed, _, err := signer.Presign(http.MethodGet, "http://localhost:8080/objects/root/a.txt", time.Hour)
		require.NoError(t, err)

		u, _ := url.Parse(signed)
		u.Host = "evil.example:8080"
		assert.ErrorIs(t, verify(t, http.MethodGet, u.String()), filedock.ErrUnauthorized)
	})

	t.Run("invalid expiry", func(t *testing.T) {
		_, _, err := signer.Presign(http.MethodGet, "http://localhost/x", 0)
		assert.Error(t, err)

		_, _, err = signer.Presign(http.MethodGet, "http://localhost/x", 8*24*time.Hour)
		assert.Error(t, err)
	})

	t.Run("url without host", func(t *testing.T) {
		_, _, err := signer.Presign(http.MethodGet, "/objects/x", time.Minute)
		assert.ErrorContains(t, err, "no host")
	})
}

func TestNewSignatureVerifier(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"test": "secret"})

	verifier := filedock.NewSignatureVerifier("us-west-1", "s3", store)

	assert.NotNil(t, verifier)
	assert.Equal(t, "us-west-1", verifier.Region)
	assert.Equal(t, "s3", verifier.Service)
}
