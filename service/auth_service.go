package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lam0glia/social-service/domain"
)

type authChallenge struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// hmacVerifier accepts a first message of the form
// {"address":"0x..","timestamp":<unix seconds>,"signature":"<hex>"} where
// the signature is HMAC-SHA256 over "<address>:<timestamp>".
type hmacVerifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

func (v *hmacVerifier) Verify(_ context.Context, message []byte) (string, error) {
	var c authChallenge
	if err := json.Unmarshal(message, &c); err != nil {
		return "", fmt.Errorf("%w: decode: %s", domain.ErrAuthentication, err)
	}

	if c.Address == "" || c.Signature == "" {
		return "", fmt.Errorf("%w: missing address or signature", domain.ErrAuthentication)
	}

	signed := time.Unix(c.Timestamp, 0)
	if skew := v.now().Sub(signed).Abs(); skew > v.maxSkew {
		return "", fmt.Errorf("%w: timestamp skew %s", domain.ErrAuthentication, skew)
	}

	got, err := hex.DecodeString(c.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex signature", domain.ErrAuthentication)
	}

	if !hmac.Equal(got, Sign(v.secret, c.Address, c.Timestamp)) {
		return "", fmt.Errorf("%w: signature mismatch", domain.ErrAuthentication)
	}

	return domain.NormalizeAddress(c.Address), nil
}

// Sign returns the raw signature a client must send for address at ts.
func Sign(secret []byte, address string, ts int64) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(address + ":" + strconv.FormatInt(ts, 10)))

	return mac.Sum(nil)
}

func NewHMACVerifier(secret string, maxSkew time.Duration) *hmacVerifier {
	return &hmacVerifier{
		secret:  []byte(secret),
		maxSkew: maxSkew,
		now:     time.Now,
	}
}
