// Package pay verifies server-to-server notifications from the payment
// gateway.
//
// The gateway signs every notification by concatenating the sorted
// form fields, appending a shared key and hashing the result with MD5.
// The hash is weak but it is the scheme the gateway speaks, the shared
// key never travels over the wire.
package pay

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/timeshards/timeshards/internal/catalog"
	"github.com/timeshards/timeshards/internal/krypto"
)

const (
	signField     = "sign"
	signTypeField = "sign_type"
	statusField   = "trade_status"
	orderField    = "out_trade_no"
	tradeField    = "trade_no"

	statusSuccess  = "TRADE_SUCCESS"
	statusFinished = "TRADE_FINISHED"
)

// MD5Verifier returns a verifier for the gateway's MD5 signing scheme.
func MD5Verifier(key krypto.Secret) catalog.VerifierFunc {
	return func(_ context.Context, form url.Values) (catalog.PaymentNotification, error) {
		sign := form.Get(signField)
		if sign == "" {
			return catalog.PaymentNotification{}, fmt.Errorf("notification carries no signature")
		}

		want := Sign(form, key)
		if subtle.ConstantTimeCompare([]byte(sign), []byte(want)) != 1 {
			return catalog.PaymentNotification{}, fmt.Errorf("notification signature mismatch")
		}

		n := catalog.PaymentNotification{
			OrderNo: form.Get(orderField),
			TradeNo: form.Get(tradeField),
			Status:  form.Get(statusField),
		}

		if n.OrderNo == "" {
			return catalog.PaymentNotification{}, fmt.Errorf("notification carries no order number")
		}

		if n.Status != statusSuccess && n.Status != statusFinished {
			return catalog.PaymentNotification{}, fmt.Errorf("unexpected trade status %q", n.Status)
		}

		return n, nil
	}
}

// Sign computes the gateway signature over the form: every field except
// the signature itself is sorted by key, joined as k=v pairs with & and
// suffixed with the shared key before hashing.
func Sign(form url.Values, key krypto.Secret) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		if k == signField || k == signTypeField || form.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+form.Get(k))
	}

	payload := strings.Join(pairs, "&") + string(key.SecretValue())

	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
