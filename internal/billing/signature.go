package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// replay window for signed timestamps
const DefaultTolerance = 5 * time.Minute

// checks Stripe-Signature headers against the endpoint secret
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	return &Verifier{secret: secret, tolerance: tolerance, now: time.Now}
}

// verifies header "t=<unix>,v1=<hex hmac>[,v1=...]" over "<t>.<payload>"
func (v *Verifier) Verify(payload []byte, header string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	ts, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}

	age := v.now().Sub(time.Unix(unix, 0))
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := Sign(v.secret, ts, payload)

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// computes the v1 signature for a timestamp and payload
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp + "." + string(payload)))

	return hex.EncodeToString(mac.Sum(nil))
}

// builds a header value the way Stripe sends it; used by tests and tooling
func SignatureHeader(secret string, at time.Time, payload []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + Sign(secret, ts, payload)
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string

	signatures := []string{}

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return "", nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	return timestamp, signatures, nil
}
