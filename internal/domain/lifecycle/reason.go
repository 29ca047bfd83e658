package lifecycle

// Reason enumerates why a customer cancels or returns an order.
type Reason string

const (
	ReasonChangedMind       Reason = "changed_mind"
	ReasonDefective         Reason = "defective"
	ReasonWrongItem         Reason = "wrong_item"
	ReasonNotAsDescribed    Reason = "not_as_described"
	ReasonDamagedInShipping Reason = "damaged_in_shipping"
	ReasonNoLongerNeeded    Reason = "no_longer_needed"
	ReasonFoundBetterPrice  Reason = "found_better_price"
)

// SellerFault reports whether the seller caused the problem. Seller-caused
// returns get their shipping cost refunded and free return shipping; any
// unknown reason is treated as buyer-caused.
func (r Reason) SellerFault() bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonDamagedInShipping:
		return true
	}
	return false
}
