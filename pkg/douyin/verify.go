package douyin

import (
	"math/rand"
	"strings"
	"time"
)

// VerifyParams are the browser-fingerprint parameters attached to
// signed calls. They are generated once per run and reused.
type VerifyParams struct {
	MsToken  string
	WebID    string
	VerifyFp string
	SVWebID  string
}

// NewVerifyParams builds a parameter set. A pre-captured msToken can
// be supplied through config; otherwise a synthetic one is generated.
func NewVerifyParams(msToken string) *VerifyParams {
	if msToken == "" {
		msToken = genMsToken()
	}
	fp := genVerifyFp()
	return &VerifyParams{
		MsToken:  msToken,
		WebID:    genWebID(),
		VerifyFp: fp,
		SVWebID:  genVerifyFp(),
	}
}

const base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// genMsToken produces a synthetic 128-character token in the shape
// the platform issues.
func genMsToken() string {
	var b strings.Builder
	for i := 0; i < 126; i++ {
		b.WriteByte(base62[rand.Intn(len(base62))])
	}
	return b.String() + "=="
}

// genWebID produces a 19-digit device identifier.
func genWebID() string {
	digits := make([]byte, 19)
	digits[0] = byte('1' + rand.Intn(9))
	for i := 1; i < 19; i++ {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}

// genVerifyFp produces a verifyFp value: "verify_" plus the current
// millisecond timestamp in base36 plus a 36-character suffix with
// fixed separators and a version marker.
func genVerifyFp() string {
	millis := time.Now().UnixMilli()
	var ts []byte
	for millis > 0 {
		rem := millis % 36
		if rem < 10 {
			ts = append([]byte{byte('0' + rem)}, ts...)
		} else {
			ts = append([]byte{byte('a' + rem - 10)}, ts...)
		}
		millis /= 36
	}

	suffix := make([]byte, 36)
	suffix[8], suffix[13], suffix[18], suffix[23] = '_', '_', '_', '_'
	suffix[14] = '4'
	for i := range suffix {
		if suffix[i] != 0 {
			continue
		}
		n := rand.Intn(len(base62))
		if i == 19 {
			n = 3&n | 8
		}
		suffix[i] = base62[n]
	}

	return "verify_" + string(ts) + "_" + string(suffix)
}
