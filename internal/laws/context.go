package laws

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Role is the side of the contract the requesting user is on.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleClient Role = "client"
)

// EntityType describes the legal form of a party.
type EntityType string

const (
	EntityIndividual              EntityType = "individual"
	EntityOnePersonCorporation    EntityType = "one_person_corporation"
	EntityCorporationWithEmployee EntityType = "corporation_with_employees"
	EntityUnknown                 EntityType = "unknown"
)

// CapitalBracket is the counterpart's stated capital, bucketed by the
// thresholds the subcontract act uses.
type CapitalBracket string

const (
	CapitalOver300M  CapitalBracket = "over_300m"
	Capital10MTo300M CapitalBracket = "10m_to_300m"
	CapitalUnder10M  CapitalBracket = "under_10m"
	CapitalUnknown   CapitalBracket = "unknown"
)

// TriState is a boolean that may be unanswered.
type TriState string

const (
	Yes     TriState = "yes"
	No      TriState = "no"
	Unknown TriState = "unknown"
)

// ExpectedType is the contract type the user believes they are signing.
type ExpectedType string

const (
	ExpectCompletion  ExpectedType = "completion"
	ExpectBestEfforts ExpectedType = "best_efforts"
	ExpectNDA         ExpectedType = "nda"
	ExpectAdvisory    ExpectedType = "advisory"
	ExpectUnknown     ExpectedType = "unknown"
)

// ContractRole records whether the user signs as 甲 or 乙.
type ContractRole string

const (
	PartyA  ContractRole = "party_a"
	PartyB  ContractRole = "party_b"
	NoParty ContractRole = ""
)

// UserContext is the declared legal posture of the requesting party. It is a
// value type; callers pass it by value and never mutate a shared instance.
type UserContext struct {
	UserRole               Role           `json:"user_role" yaml:"user_role"`
	UserEntityType         EntityType     `json:"user_entity_type" yaml:"user_entity_type"`
	CounterpartyEntityType EntityType     `json:"counterparty_entity_type" yaml:"counterparty_entity_type"`
	CounterpartyCapital    CapitalBracket `json:"counterparty_capital" yaml:"counterparty_capital"`
	IsInvoiceRegistered    TriState       `json:"is_invoice_registered" yaml:"is_invoice_registered"`
	ExpectedContractType   ExpectedType   `json:"expected_contract_type" yaml:"expected_contract_type"`
	ContractDurationMonths *int           `json:"contract_duration_months,omitempty" yaml:"contract_duration_months,omitempty"`
	ContractRole           ContractRole   `json:"contract_role,omitempty" yaml:"contract_role,omitempty"`
}

// DefaultContext is the posture assumed before the user has said anything:
// an individual vendor facing a counterpart about whom nothing is known. It
// resolves to the widest set of protections.
func DefaultContext() UserContext {
	return UserContext{}.Normalize()
}

// Normalize returns a copy of c where every missing or unrecognized field is
// replaced by its safe default. User input is never rejected.
func (c UserContext) Normalize() UserContext {
	out := c

	switch c.UserRole {
	case RoleVendor, RoleClient:
	default:
		out.UserRole = RoleVendor
	}

	switch c.UserEntityType {
	case EntityIndividual, EntityOnePersonCorporation, EntityCorporationWithEmployee:
	default:
		out.UserEntityType = EntityIndividual
	}

	switch c.CounterpartyEntityType {
	case EntityIndividual, EntityOnePersonCorporation, EntityCorporationWithEmployee:
	default:
		out.CounterpartyEntityType = EntityUnknown
	}

	switch c.CounterpartyCapital {
	case CapitalOver300M, Capital10MTo300M, CapitalUnder10M:
	default:
		out.CounterpartyCapital = CapitalUnknown
	}

	switch c.IsInvoiceRegistered {
	case Yes, No:
	default:
		out.IsInvoiceRegistered = Unknown
	}

	switch c.ExpectedContractType {
	case ExpectCompletion, ExpectBestEfforts, ExpectNDA, ExpectAdvisory:
	default:
		out.ExpectedContractType = ExpectUnknown
	}

	if c.ContractDurationMonths != nil {
		if *c.ContractDurationMonths < 0 {
			out.ContractDurationMonths = nil
		} else {
			m := *c.ContractDurationMonths
			out.ContractDurationMonths = &m
		}
	}

	switch c.ContractRole {
	case PartyA, PartyB:
	default:
		out.ContractRole = NoParty
	}

	return out
}

// isSmallOperator reports whether an entity type sits in the lowest capital
// bracket for subcontract act purposes.
func isSmallOperator(e EntityType) bool {
	return e == EntityIndividual || e == EntityOnePersonCorporation
}

// UnmarshalJSON decodes a context field by field. A field of the wrong JSON
// type is dropped and left to Normalize; a context that is not an object at
// all decodes as empty.
func (c *UserContext) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		*c = UserContext{}
		return nil
	}

	var out UserContext
	out.UserRole = Role(stringField(fields, "user_role"))
	out.UserEntityType = EntityType(stringField(fields, "user_entity_type"))
	out.CounterpartyEntityType = EntityType(stringField(fields, "counterparty_entity_type"))
	out.CounterpartyCapital = CapitalBracket(stringField(fields, "counterparty_capital"))
	out.IsInvoiceRegistered = TriState(stringField(fields, "is_invoice_registered"))
	out.ExpectedContractType = ExpectedType(stringField(fields, "expected_contract_type"))
	out.ContractRole = ContractRole(stringField(fields, "contract_role"))
	out.ContractDurationMonths = monthsField(fields, "contract_duration_months")
	*c = out
	return nil
}

func stringField(fields map[string]json.RawMessage, name string) string {
	var s string
	if err := json.Unmarshal(fields[name], &s); err != nil {
		return ""
	}
	return s
}

// monthsField accepts a whole number or a numeric string.
func monthsField(fields map[string]json.RawMessage, name string) *int {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
