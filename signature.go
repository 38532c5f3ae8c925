package filedock

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"
)

const unsignedPayload = "UNSIGNED-PAYLOAD"

// SecretStore resolves an access key to its secret key.
// Lookup returns an error wrapping ErrUnauthorized for unknown keys.
type SecretStore interface {
	Lookup(accessKey string) (string, error)
}

// credentialScope is the date/region/service triple a SigV4 key is bound to.
type credentialScope struct {
	date    string
	region  string
	service string
}

func (s credentialScope) String() string {
	return s.date + "/" + s.region + "/" + s.service + "/aws4_request"
}

func (s credentialScope) signingKey(secretKey string) []byte {
	key := hmacSHA256([]byte("AWS4"+secretKey), s.date)
	key = hmacSHA256(key, s.region)
	key = hmacSHA256(key, s.service)
	return hmacSHA256(key, "aws4_request")
}

// sign computes the hex signature of a request whose query already carries
// every X-Amz-* parameter except the signature itself.
func sign(secretKey string, scope credentialScope, at time.Time, method, path string, query url.Values, headers http.Header, signedHeaders string) string {
	canonical := strings.Join([]string{
		method,
		path,
		canonicalQuery(query),
		canonicalHeaders(headers, signedHeaders),
		signedHeaders,
		unsignedPayload,
	}, "\n")

	digest := sha256.Sum256([]byte(canonical))
	stringToSign := strings.Join([]string{
		SignatureAlgorithm,
		at.Format(DateTimeFormat),
		scope.String(),
		hex.EncodeToString(digest[:]),
	}, "\n")

	return hex.EncodeToString(hmacSHA256(scope.signingKey(secretKey), stringToSign))
}

func canonicalQuery(query url.Values) string {
	params := make(url.Values, len(query))
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	return params.Encode()
}

// canonicalHeaders renders "name:value\n" for each signed header in name order.
func canonicalHeaders(headers http.Header, signedHeaders string) string {
	names := strings.Split(signedHeaders, ";")
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(headers.Get(name)))
		b.WriteByte('\n')
	}
	return b.String()
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// SignatureVerifier checks SigV4 presigned URLs, such as those issued by Signer.
type SignatureVerifier struct {
	Region  string
	Service string
	Store   SecretStore
	now     func() time.Time
}

func NewSignatureVerifier(region, service string, store SecretStore) *SignatureVerifier {
	return &SignatureVerifier{
		Region:  region,
		Service: service,
		Store:   store,
		now:     time.Now,
	}
}

// presignedParams are the X-Amz-* query parameters of a presigned URL.
type presignedParams struct {
	accessKey     string
	scope         credentialScope
	issuedAt      time.Time
	expires       time.Duration
	signedHeaders string
	signature     string
}

func parsePresigned(query url.Values) (presignedParams, error) {
	var p presignedParams

	algorithm := query.Get("X-Amz-Algorithm")
	credential := query.Get("X-Amz-Credential")
	date := query.Get("X-Amz-Date")
	expires := query.Get("X-Amz-Expires")
	p.signedHeaders = query.Get("X-Amz-SignedHeaders")
	p.signature = query.Get("X-Amz-Signature")

	for _, v := range []string{algorithm, credential, date, expires, p.signedHeaders, p.signature} {
		if v == "" {
			return p, fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
		}
	}

	if algorithm != SignatureAlgorithm {
		return p, fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, algorithm, ErrUnauthorized)
	}

	issuedAt, err := time.Parse(DateTimeFormat, date)
	if err != nil {
		return p, fmt.Errorf("invalid X-Amz-Date format: %w", ErrUnauthorized)
	}
	p.issuedAt = issuedAt

	seconds, err := strconv.Atoi(expires)
	if err != nil || seconds <= 0 || seconds > MaxExpiresSeconds {
		return p, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}
	p.expires = time.Duration(seconds) * time.Second

	parts := strings.Split(credential, "/")
	if len(parts) != 5 || parts[4] != "aws4_request" {
		return p, fmt.Errorf("invalid X-Amz-Credential format: %w", ErrUnauthorized)
	}
	p.accessKey = parts[0]
	p.scope = credentialScope{date: parts[1], region: parts[2], service: parts[3]}

	return p, nil
}

// Verify checks a presigned request: parameter presence and format, expiry,
// that the credential scope matches the request date, region and service,
// and finally the signature itself. Every failure wraps ErrUnauthorized.
func (v *SignatureVerifier) Verify(method, path string, query url.Values, headers http.Header) error {
	p, err := parsePresigned(query)
	if err != nil {
		return err
	}

	now := time.Now
	if v.now != nil {
		now = v.now
	}
	if now().After(p.issuedAt.Add(p.expires)) {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	switch {
	case p.scope.date != p.issuedAt.Format(DateFormat):
		return fmt.Errorf("credential date mismatch: %w", ErrUnauthorized)
	case p.scope.region != v.Region:
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, p.scope.region, ErrUnauthorized)
	case p.scope.service != v.Service:
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, p.scope.service, ErrUnauthorized)
	}

	secretKey, err := v.Store.Lookup(p.accessKey)
	if err != nil {
		return fmt.Errorf("invalid access key: %w", err)
	}

	expected := sign(secretKey, p.scope, p.issuedAt, method, path, query, headers, p.signedHeaders)
	if !hmac.Equal([]byte(expected), []byte(p.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

// Signer issues SigV4 presigned URLs that SignatureVerifier accepts.
// Only the host header is signed; the payload is UNSIGNED-PAYLOAD.
type Signer struct {
	Region    string
	Service   string
	AccessKey string
	SecretKey string
	now       func() time.Time
}

func NewSigner(region, service, accessKey, secretKey string) *Signer {
	return &Signer{
		Region:    region,
		Service:   service,
		AccessKey: accessKey,
		SecretKey: secretKey,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Presign returns rawURL with the X-Amz-* query parameters appended, and the
// moment the URL stops being valid. Existing query parameters are signed too.
func (s *Signer) Presign(method, rawURL string, expires time.Duration) (string, time.Time, error) {
	seconds := int(expires.Seconds())
	if seconds <= 0 || seconds > MaxExpiresSeconds {
		return "", time.Time{}, fmt.Errorf("presign: expires must be between 1 and %d seconds", MaxExpiresSeconds)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign: parse url: %w", err)
	}
	if u.Host == "" {
		return "", time.Time{}, fmt.Errorf("presign: url %q has no host", rawURL)
	}

	now := s.now()
	scope := credentialScope{date: now.Format(DateFormat), region: s.Region, service: s.Service}

	query := u.Query()
	query.Set("X-Amz-Algorithm", SignatureAlgorithm)
	query.Set("X-Amz-Credential", s.AccessKey+"/"+scope.String())
	query.Set("X-Amz-Date", now.Format(DateTimeFormat))
	query.Set("X-Amz-Expires", strconv.Itoa(seconds))
	query.Set("X-Amz-SignedHeaders", "host")

	headers := http.Header{}
	headers.Set("host", u.Host)

	query.Set("X-Amz-Signature", sign(s.SecretKey, scope, now, method, u.Path, query, headers, "host"))
	u.RawQuery = query.Encode()

	return u.String(), now.Add(time.Duration(seconds) * time.Second), nil
}
