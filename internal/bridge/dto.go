package bridge

import "github.com/arityo/merchant-bridge/internal"

// BridgeDTO is the bridge invocation body: {code}, {email, access_token,
// merchant_id} on the retry path, or {code, email} when the caller already
// knows the email.
type BridgeDTO struct {
	Code        string `json:"code,omitempty"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	MerchantID  string `json:"merchant_id,omitempty"`
}

func (d BridgeDTO) Validate() error {
	if d.Code == "" && (d.AccessToken == "" || d.MerchantID == "") {
		return internal.ErrInvalidRequest
	}
	return nil
}

// hasToken reports whether a prior partial run already exchanged the code.
func (d BridgeDTO) hasToken() bool {
	return d.AccessToken != "" && d.MerchantID != ""
}
