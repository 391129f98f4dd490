package contract

import "fmt"

// Amount is a quantity of some fungible unit (a currency code, typically).
// Amounts of different units are never comparable or summable.
type Amount struct {
	Quantity int64  `json:"quantity"`
	Unit     string `json:"unit"`
}

// String renders the amount as "100 USD".
func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Quantity, a.Unit)
}
