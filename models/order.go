package models

// CartItem is one line of the cart. Insertion order is display order.
type CartItem struct {
	RestaurantID string `json:"id"`
	Restaurant   string `json:"rest"`
	Item         string `json:"item"`
	Price        int64  `json:"price"`
}

// PaymentMode is stored verbatim on the order document.
type PaymentMode string

const (
	ModeWallet PaymentMode = "Wallet"
	ModeCash   PaymentMode = "Cash"
	ModePayPal PaymentMode = "PayPal (Test)"
	ModeStripe PaymentMode = "Stripe Payment"
)

// PaymentModes lists the modes offered in the payment panel.
var PaymentModes = []PaymentMode{ModePayPal, ModeWallet, ModeCash, ModeStripe}

func ValidPaymentMode(m PaymentMode) bool {
	for _, v := range PaymentModes {
		if v == m {
			return true
		}
	}
	return false
}

// Order is immutable once written.
type Order struct {
	ID    string      `json:"id,omitempty"`
	When  string      `json:"when"`
	Mode  PaymentMode `json:"mode"`
	Total int64       `json:"total"`
	Items []CartItem  `json:"items"`
	User  string      `json:"user,omitempty"`
}

// CartTotal returns the sum of item prices.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price
	}
	return total
}

type Wallet struct {
	Balance int64 `json:"balance"`
}
