// Package laws decides which statutory regimes bind a contract given the
// requesting user's declared posture.
//
// Every unknown field is resolved here and nowhere else. Ambiguity always
// resolves toward the reading that triggers more protections: an unknown
// counterpart is assumed to employ staff, an unknown duration is assumed to be
// long enough for the continuous-contract rules.
package laws

// ApplicableLaws is the fixed-shape set of regimes derived from a UserContext.
// It has no lifecycle of its own and is recomputed on every Resolve call.
type ApplicableLaws struct {
	FreelanceProtectionBasic  bool `json:"freelance_protection_basic" yaml:"freelance_protection_basic"`
	FreelanceProtectionStrict bool `json:"freelance_protection_strict" yaml:"freelance_protection_strict"`
	SubcontractActApplies     bool `json:"subcontract_act_applies" yaml:"subcontract_act_applies"`
	CivilCodeApplies          bool `json:"civil_code_applies" yaml:"civil_code_applies"`
	CopyrightLawRelevant      bool `json:"copyright_law_relevant" yaml:"copyright_law_relevant"`
}

// continuousContractMonths is the duration at which the freelance act's
// continuous-contract duties (30-day termination notice) start.
const continuousContractMonths = 6

// Resolve derives the applicable regimes. It is total over UserContext.
func Resolve(c UserContext) ApplicableLaws {
	c = c.Normalize()

	basic := c.UserRole == RoleVendor && isSmallOperator(c.UserEntityType)

	counterpartEmploys := c.CounterpartyEntityType == EntityCorporationWithEmployee ||
		c.CounterpartyEntityType == EntityUnknown

	var subcontract bool
	if c.UserRole == RoleVendor {
		switch c.CounterpartyCapital {
		case CapitalOver300M:
			subcontract = true
		case Capital10MTo300M:
			subcontract = isSmallOperator(c.UserEntityType)
		}
	}

	copyright := c.ExpectedContractType != ExpectNDA && c.ExpectedContractType != ExpectAdvisory

	return ApplicableLaws{
		FreelanceProtectionBasic:  basic,
		FreelanceProtectionStrict: basic && counterpartEmploys,
		SubcontractActApplies:     subcontract,
		CivilCodeApplies:          true,
		CopyrightLawRelevant:      copyright,
	}
}

// MidTermNoticeRequired reports whether the client must give 30 days' notice
// before terminating: strict protection applies and the contract is a
// continuous one of six months or more. An unknown duration counts as six.
func MidTermNoticeRequired(c UserContext) bool {
	c = c.Normalize()
	if !Resolve(c).FreelanceProtectionStrict {
		return false
	}
	if c.ContractDurationMonths == nil {
		return true
	}
	return *c.ContractDurationMonths >= continuousContractMonths
}

// Explain lists one sentence per active regime in priority order: strict
// freelance protection, basic freelance protection, subcontract act, copyright.
// Inactive regimes and the always-on civil code are skipped.
func Explain(l ApplicableLaws) []string {
	var notes []string
	if l.FreelanceProtectionStrict {
		notes = append(notes, "相手方が従業員を使用する事業者（または不明）のため、フリーランス保護法の支払期日・禁止行為・ハラスメント対策義務が適用されます。")
	}
	if l.FreelanceProtectionBasic {
		notes = append(notes, "あなたは個人または一人法人の受託者のため、フリーランス保護法の取引条件明示義務が適用されます。")
	}
	if l.SubcontractActApplies {
		notes = append(notes, "相手方の資本金区分により、下請代金支払遅延等防止法（下請法）が適用される可能性があります。")
	}
	if l.CopyrightLawRelevant {
		notes = append(notes, "成果物に著作物が含まれ得るため、著作権の帰属・移転条件の確認が必要です。")
	}
	return notes
}
