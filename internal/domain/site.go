package domain

// SiteContext describes the storefront account this gateway serves.
// It is loaded once at startup and treated as immutable.
type SiteContext struct {
	SiteID             string
	Currency           string
	SponsorID          string
	CheckoutBannerURL  string
	StorePrefix        string
	PublicBaseURL      string
	IsTestUser         bool
	CurrencyConversion bool
	Debug              bool
}

// AccountCurrency returns the currency of the vendor account for the site
func (s SiteContext) AccountCurrency() string {
	switch s.SiteID {
	case SiteArgentina:
		return "ARS"
	case SiteBrazil:
		return "BRL"
	case SiteMexico:
		return "MXN"
	default:
		return ""
	}
}
