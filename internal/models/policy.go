package models

// Policy holds the compliance threshold constants used by the risk heuristic,
// the statement categorizer, and the project completion schedule. The source
// values are hardcoded in the upstream simulator and may drift from the
// authoritative calculation services, so they are kept configurable here
// rather than treated as fixed truths.
type Policy struct {
	// LargeCreditThreshold is the naira amount above which a transfer credit
	// is bucketed as sales and queued for human review, and at or above which
	// cash-based expenses raise an advisory flag.
	LargeCreditThreshold int64

	// VATRate is the value-added tax rate applied to sales and expense totals
	// when estimating VAT exposure (e.g. 0.075 for 7.5%).
	VATRate float64

	// NINLength is the exact digit count of a national identity number.
	NINLength int

	// TINMinLength is the minimum digit count of a tax identification number.
	TINMinLength int

	// ExcessFreeBand is the portion of a completed project's excess taxed at 0%.
	ExcessFreeBand int64

	// ExcessRate is the rate applied to excess above the free band (e.g. 0.15).
	ExcessRate float64

	// RentalWithholdingRate is the flat withholding rate on rental income.
	RentalWithholdingRate float64

	// MinimumWage is the monthly minimum wage used for exemption checks.
	MinimumWage int64
}

// DefaultPolicy returns the threshold constants the upstream simulator ships with.
func DefaultPolicy() Policy {
	return Policy{
		LargeCreditThreshold:  500_000,
		VATRate:               0.075,
		NINLength:             11,
		TINMinLength:          10,
		ExcessFreeBand:        800_000,
		ExcessRate:            0.15,
		RentalWithholdingRate: 0.10,
		MinimumWage:           70_000,
	}
}
