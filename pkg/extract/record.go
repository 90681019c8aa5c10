package extract

// TopupStatus reports the outcome carried by a topup reply.
type TopupStatus string

const (
	TopupSuccess TopupStatus = "success"
	TopupFailed  TopupStatus = "failed"
)

// Record is the typed output of the extractor. At most one of the three
// fields is set; a nil *Record means no structured shape was recognized.
type Record struct {
	Topup   *TopupResult   `json:"topupResult,omitempty"`
	Account *AccountStatus `json:"accountStatus,omitempty"`
	Prices  *PriceList     `json:"priceList,omitempty"`
}

// CorrelationValue returns the identifier callers correlate replies on.
//
// Only topup replies carry one (the target account UID); other record
// kinds return the empty string.
func (r *Record) CorrelationValue() string {
	if r == nil || r.Topup == nil || r.Topup.User == nil {
		return ""
	}
	return r.Topup.User.UID
}

// TopupResult is the structured form of a topup confirmation reply.
//
// Status is TopupSuccess only when both the order ID and the user name
// were recovered from the text; a limit-over reply produces a minimal
// TopupFailed record with at most an order ID.
type TopupResult struct {
	Status  TopupStatus   `json:"status"`
	OrderID int           `json:"orderId,omitempty"`
	User    *TopupUser    `json:"user,omitempty"`
	Product *TopupProduct `json:"product,omitempty"`
	Payment *TopupPayment `json:"payment,omitempty"`
	Meta    *TopupMeta    `json:"meta,omitempty"`
}

// TopupUser identifies the account a topup was applied to.
type TopupUser struct {
	Name string `json:"name,omitempty"`
	UID  string `json:"uid,omitempty"`
}

// TopupProduct describes what was purchased. UnitPrice is derived from
// total/quantity and absent when either side is missing.
type TopupProduct struct {
	Type      string   `json:"type"`
	Quantity  int      `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
}

// TopupPayment carries the monetary fields of a topup reply. Every field
// is optional: a label whose value fails numeric parsing stays nil while
// the rest of the record is still produced.
type TopupPayment struct {
	UsedCodes  []string `json:"usedUc,omitempty"`
	FeePerUnit *float64 `json:"feePerUnit,omitempty"`
	Total      *float64 `json:"total,omitempty"`
	Paid       *float64 `json:"paid,omitempty"`
	Due        *float64 `json:"due,omitempty"`
}

// TopupMeta carries non-monetary reply metadata.
type TopupMeta struct {
	DurationSec *float64 `json:"durationSec,omitempty"`
	Provider    string   `json:"provider,omitempty"`
}

// AccountStatus is the structured form of an account balance reply. The
// record only exists when a user name was recovered; wallet fields are
// independently optional.
type AccountStatus struct {
	User     AccountUser `json:"user"`
	Wallet   Wallet      `json:"wallet"`
	Currency string      `json:"currency"`
}

// AccountUser names the account holder.
type AccountUser struct {
	Name string `json:"name"`
}

// Wallet holds the balance figures found in an account status reply.
type Wallet struct {
	Due      *float64 `json:"due,omitempty"`
	Balance  *float64 `json:"balance,omitempty"`
	DueLimit *float64 `json:"dueLimit,omitempty"`
}

// PriceList is the structured form of a price list reply. Both slices
// preserve input order; the record only exists when at least one entry
// was recovered.
type PriceList struct {
	UnitPrices []UnitPrice `json:"ucPriceList"`
	Packages   []Package   `json:"specialPackages"`
}

// UnitPrice is one per-unit pricing row.
type UnitPrice struct {
	Type    string `json:"type"`
	Amount  int    `json:"amount"`
	Price   int    `json:"price"`
	Payment string `json:"payment"`
}

// Package is one named special-package row.
type Package struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Payment string  `json:"payment"`
}
