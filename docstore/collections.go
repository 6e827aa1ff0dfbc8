package docstore

// Shared collections.
const (
	Restaurants = "restaurants"
	Credentials = "credentials"
	Employees   = "employees"
	AllOrders   = "allOrders"
	Wallets     = "wallets"
)

// UserOrders is the per-user order history.
func UserOrders(userKey string) string {
	return "users/" + userKey + "/orders"
}

// UserMessHistory is the per-user meal booking history.
func UserMessHistory(userKey string) string {
	return "users/" + userKey + "/messHistory"
}
