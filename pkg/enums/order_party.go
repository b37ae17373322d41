package enums

import "slices"

// OrderParty filters order listings by the caller's side of the order.
type OrderParty string

const (
	OrderPartyAny    OrderParty = "any"
	OrderPartyBuyer  OrderParty = "buyer"
	OrderPartySeller OrderParty = "seller"
)

var validOrderParties = []OrderParty{
	OrderPartyAny,
	OrderPartyBuyer,
	OrderPartySeller,
}

func (p OrderParty) IsValid() bool {
	return slices.Contains(validOrderParties, p)
}

// ParseOrderParty converts the raw string to OrderParty; empty means any.
func ParseOrderParty(value string) (OrderParty, error) {
	if value == "" {
		return OrderPartyAny, nil
	}
	return parse(validOrderParties, value, "order party")
}
