package domain

// ChargeStatus is the normalized answer of the PIX gateway for a charge.
type ChargeStatus string

const (
	ChargeApproved ChargeStatus = "approved"
	ChargePending  ChargeStatus = "pending"
	ChargeNotFound ChargeStatus = "not_found"
)

// Charge is a charge created at the gateway.
type Charge struct {
	ExternalID  string
	PayableCode string
}

// ChargeCheck is the gateway's view of a charge. RawStatus is the provider's wording, for display only.
type ChargeCheck struct {
	Status    ChargeStatus
	RawStatus string
}
