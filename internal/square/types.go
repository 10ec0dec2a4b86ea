package square

// TokenGrant is what one authorization code buys: an ephemeral access token
// scoped to a single merchant. Held only for the duration of the bridging
// flow (or one NeedsEmail retry round-trip).
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	MerchantID  string `json:"merchant_id"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// Merchant is the provider-side merchant profile. Every email field is
// optional; ContactEmail applies the fixed priority order.
type Merchant struct {
	ID                    string `json:"id"`
	BusinessName          string `json:"business_name"`
	Country               string `json:"country,omitempty"`
	PrimaryContactEmail   string `json:"primary_contact_email,omitempty"`
	SecondaryContactEmail string `json:"secondary_contact_email,omitempty"`
	BusinessEmail         string `json:"business_email,omitempty"`
}

// ContactEmail resolves the merchant's best-known email: primary contact,
// then secondary contact, then the business email. Empty when none exist.
func (m *Merchant) ContactEmail() string {
	if m.PrimaryContactEmail != "" {
		return m.PrimaryContactEmail
	}
	if m.SecondaryContactEmail != "" {
		return m.SecondaryContactEmail
	}
	return m.BusinessEmail
}

// TeamMember is a provider-side staff record.
type TeamMember struct {
	ID           string `json:"id"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Status       string `json:"status,omitempty"`
	IsOwner      bool   `json:"is_owner,omitempty"`
}

func (t *TeamMember) DisplayName() string {
	switch {
	case t.GivenName != "" && t.FamilyName != "":
		return t.GivenName + " " + t.FamilyName
	case t.GivenName != "":
		return t.GivenName
	default:
		return t.FamilyName
	}
}

// Customer is a provider-side customer record, consumed by the
// fire-and-forget customer sync collaborator.
type Customer struct {
	ID           string `json:"id"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type merchantEnvelope struct {
	Merchant Merchant `json:"merchant"`
}

type teamMembersEnvelope struct {
	TeamMembers []TeamMember `json:"team_members"`
	Cursor      string       `json:"cursor,omitempty"`
}

type customersEnvelope struct {
	Customers []Customer `json:"customers"`
	Cursor    string     `json:"cursor,omitempty"`
}
