package extract

import (
	"regexp"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Field names a commitment attribute a rule can populate.
type Field string

// Rule fields.
const (
	FieldTotalUnits    Field = "total_units"
	FieldLowIncome     Field = "low_income_units"
	FieldModerate      Field = "moderate_income_units"
	FieldType          Field = "commitment_type"
	FieldDeadline      Field = "deadline"
	FieldDateAnnounced Field = "date_announced"
	FieldDeveloper     Field = "developer"
	FieldAddress       Field = "location_address"
	FieldStatus        Field = "status"
)

// Preference marks the content type a rule is tuned for. Preferred rules are tried
// before the rest for that content type.
type Preference int

// Rule preferences.
const (
	AnyContent Preference = iota
	PreferPDF
	PreferHTML
)

// Rule is one declarative extraction entry. Value-producing rules capture group 1 of
// Pattern. Mapping rules (Maps set) contribute a vocabulary value when Pattern matches;
// among matching mapping rules for a field the lowest Precedence wins.
type Rule struct {
	Name       string
	Field      Field
	Pattern    *regexp.Regexp
	Maps       string
	Precedence int
	Prefer     Preference
}

const (
	number   = `(\d{1,3}(?:,\d{3})+|\d+)`
	month    = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	dateExpr = `(` + month + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+(?:19|20)\d{2}` +
		`|` + month + `,?\s+(?:19|20)\d{2}` +
		`|\d{1,2}[/-]\d{1,2}[/-](?:(?:19|20)\d{2}|\d{2})` +
		`|(?:19|20)\d{2})\b`
	streetSuffix = `(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct|Place|Pl|Parkway|Pkwy|Highway|Hwy|Turnpike|Terrace|Plaza)`
)

func rx(pattern string) *regexp.Regexp { return regexp.MustCompile(pattern) }

// DefaultRules is the built-in rule table.
var DefaultRules = []Rule{
	// Total units. PDFs carry tabular obligation figures; HTML carries narrative counts.
	{Name: "total-obligation", Field: FieldTotalUnits, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b(?:total|overall)\s+(?:affordable\s+)?(?:housing\s+)?obligation\s*(?:of|is|:)?\s*` + number)},
	{Name: "fair-share-obligation", Field: FieldTotalUnits, Prefer: PreferPDF,
		Pattern: rx(`(?i)\bfair\s*share\s+(?:obligation|requirement)\s*(?:of|is|:)?\s*` + number)},
	{Name: "round-obligation", Field: FieldTotalUnits, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b(?:third|fourth)\s+round\s+(?:prospective\s+need\s+)?(?:obligation|requirement)\s*(?:of|is|:)?\s*` + number)},
	{Name: "units-required", Field: FieldTotalUnits, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b` + number + `\s+(?:total\s+)?(?:affordable\s+)?units?\s+(?:obligation|required|committed)`)},
	{Name: "affordable-units", Field: FieldTotalUnits, Prefer: PreferHTML,
		Pattern: rx(`(?i)\b` + number + `\s+(?:new\s+)?(?:affordable|income[- ]restricted|deed[- ]restricted)\s+(?:housing\s+|rental\s+|residential\s+)?units?\b`)},
	{Name: "units-of-affordable-housing", Field: FieldTotalUnits, Prefer: PreferHTML,
		Pattern: rx(`(?i)\b` + number + `\s+units?\s+(?:of\s+)?affordable\s+housing`)},
	{Name: "total-of-units", Field: FieldTotalUnits, Prefer: PreferHTML,
		Pattern: rx(`(?i)\btotal\s+(?:of\s+)?` + number + `\s+(?:affordable\s+)?units?\b`)},
	{Name: "rehabilitation-obligation", Field: FieldTotalUnits, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b(?:rehabilitation|rehab)\s+(?:share|obligation)\s*(?:of|is|:)?\s*` + number)},
	{Name: "units-generic", Field: FieldTotalUnits,
		Pattern: rx(`(?i)\b` + number + `\s+(?:residential\s+|housing\s+|dwelling\s+)?units?\b`)},

	// Income tiers. Very-low-income units are a subset of low-income units.
	{Name: "low-income-units", Field: FieldLowIncome,
		Pattern: rx(`(?i)\b` + number + `\s+(?:(?:very[\s-]+)?low[\s-]+income)\b`)},
	{Name: "low-income-label", Field: FieldLowIncome, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b(?:very[\s-]+)?low[\s-]+income(?:\s+units)?\s*:\s*` + number)},
	{Name: "moderate-income-units", Field: FieldModerate,
		Pattern: rx(`(?i)\b` + number + `\s+moderate[\s-]+income\b`)},
	{Name: "moderate-income-label", Field: FieldModerate, Prefer: PreferPDF,
		Pattern: rx(`(?i)\bmoderate[\s-]+income(?:\s+units)?\s*:\s*` + number)},

	// Commitment type, highest precedence first.
	{Name: "court-order", Field: FieldType, Maps: string(housing.CommitmentCourtOrder), Precedence: 0,
		Pattern: rx(`(?i)\bcourt[\s-]+order(?:ed|s)?\b|\bconsent\s+(?:order|judgment|decree)\b|\bjudgment\s+of\s+(?:compliance|repose)\b|\bbuilder'?s'?\s+remedy\b`)},
	{Name: "coah-settlement", Field: FieldType, Maps: string(housing.CommitmentCOAHSettlement), Precedence: 1,
		Pattern: rx(`(?i)\bcoah\b|\bcouncil\s+on\s+affordable\s+housing\b|\bsettlement\s+agreement\b|\bmount\s+laurel\s+settlement\b`)},
	{Name: "voluntary", Field: FieldType, Maps: string(housing.CommitmentVoluntary), Precedence: 2,
		Pattern: rx(`(?i)\bvoluntar(?:y|ily)\b|\binclusionary\s+(?:zoning|development|ordinance)\b`)},
	{Name: "redevelopment-plan", Field: FieldType, Maps: string(housing.CommitmentRedevelopmentPlan), Precedence: 3,
		Pattern: rx(`(?i)\bredevelopment\s+(?:plan|agreement|area)\b`)},

	// Dates. Deadline cues look forward; announcement cues look back.
	{Name: "deadline-cue", Field: FieldDeadline,
		Pattern: rx(`(?i)\b(?:deadline|due(?:\s+date)?|completion\s+date|no\s+later\s+than|by|before|through)\s*(?:of|is|:)?\s*(?:the\s+end\s+of\s+)?` + dateExpr)},
	{Name: "deadline-target", Field: FieldDeadline,
		Pattern: rx(`(?i)\b((?:19|20)\d{2})\s+(?:deadline|goal|target)\b`)},
	{Name: "announced-on", Field: FieldDateAnnounced,
		Pattern: rx(`(?i)\b(?:announced|approved|adopted|signed|entered|executed|unveiled)\s+(?:on\s+|in\s+)?` + dateExpr)},
	{Name: "dated", Field: FieldDateAnnounced,
		Pattern: rx(`(?i)\b(?:dated|effective)\s+(?:as\s+of\s+)?` + dateExpr)},

	// Parties and places, matched against the original casing.
	{Name: "developer", Field: FieldDeveloper,
		Pattern: rx(`(?i:\b(?:re)?developer|\bbuilder|\bdeveloped\s+by|\bbuilt\s+by)(?:\s+is|\s+will\s+be|,|:)?\s+((?:[A-Z](?:[\w&'-]|\.\w)*)(?:\s+(?:[A-Z](?:[\w&'-]|\.\w)*|&|of))*)`)},
	{Name: "street-address", Field: FieldAddress,
		Pattern: rx(`\b(\d{1,5}(?:-\d{1,5})?\s+(?:[A-Z][\w.'-]*\s+){1,4}` + streetSuffix + `\b\.?)`)},
	{Name: "block-lot", Field: FieldAddress, Prefer: PreferPDF,
		Pattern: rx(`(?i)\b(block\s+\d+(?:\.\d+)?,?\s+lots?\s+\d+(?:\.\d+)?(?:\s*(?:,|and|&)\s*\d+(?:\.\d+)?)*)`)},

	// Status language, most decisive first.
	{Name: "status-cancelled", Field: FieldStatus, Maps: string(housing.StatusCancelled), Precedence: 0,
		Pattern: rx(`(?i)\b(?:cancel+ed|terminated|rescinded|abandoned)\b`)},
	{Name: "status-stalled", Field: FieldStatus, Maps: string(housing.StatusStalled), Precedence: 1,
		Pattern: rx(`(?i)\b(?:stalled|on\s+hold)\b`)},
	{Name: "status-delayed", Field: FieldStatus, Maps: string(housing.StatusDelayed), Precedence: 2,
		Pattern: rx(`(?i)\b(?:delayed|postponed|behind\s+schedule)\b`)},
	{Name: "status-completed", Field: FieldStatus, Maps: string(housing.StatusCompleted), Precedence: 3,
		Pattern: rx(`(?i)\b(?:completed|construction\s+(?:is\s+)?complete|ribbon[\s-]+cutting|now\s+leasing|fully\s+occupied)\b`)},
	{Name: "status-under-construction", Field: FieldStatus, Maps: string(housing.StatusUnderConstruction), Precedence: 4,
		Pattern: rx(`(?i)\b(?:under\s+construction|broke\s+ground|groundbreaking|construction\s+(?:began|started|is\s+underway|underway))\b`)},
	{Name: "status-approved", Field: FieldStatus, Maps: string(housing.StatusApproved), Precedence: 5,
		Pattern: rx(`(?i)\b(?:approved|granted\s+(?:final\s+|preliminary\s+)?(?:site\s+plan\s+)?approval)\b`)},
	{Name: "status-planning", Field: FieldStatus, Maps: string(housing.StatusPlanning), Precedence: 6,
		Pattern: rx(`(?i)\b(?:planning\s+(?:stage|phase|process)|proposed)\b`)},
	{Name: "status-announced", Field: FieldStatus, Maps: string(housing.StatusAnnounced), Precedence: 7,
		Pattern: rx(`(?i)\b(?:announced|unveiled)\b`)},
}
