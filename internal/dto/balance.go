package dto

// BalanceOptions selects how the balance engine answers "who owes whom".
type BalanceOptions struct {
	// Simplified runs the debt simplifier, collapsing the direct debt graph
	// into a minimum-transaction settlement plan.
	Simplified bool

	// TargetCurrency converts every resulting entry into one display currency.
	// Conversion is applied after simplification.
	TargetCurrency *string

	// Tag restricts the computation to expenses carrying the tag.
	Tag *string
}
