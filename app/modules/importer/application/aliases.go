package importerservice

// Aliases maps normalized source headers to canonical target keys. The set of
// synonyms is operator-domain sports terminology, so it ships as data rather
// than code: deployments can extend or replace it via configuration.
type Aliases struct {
	// Fields resolve to standard player fields with high confidence.
	Fields map[string]string
	// Drills resolve to drill keys with medium confidence; drill vocabulary
	// is fuzzier than roster vocabulary (units and distances drift between
	// sheets), so these never claim the high tier.
	Drills map[string]string
}

// DefaultAliases is the stock synonym table. Keys are pre-normalized with the
// same rules applied to source headers (lowercase, punctuation stripped,
// plural collapsed).
func DefaultAliases() Aliases {
	return Aliases{
		Fields: map[string]string{
			"first":     "first_name",
			"firstname": "first_name",
			"fname":     "first_name",
			"given":     "first_name",

			"last":     "last_name",
			"lastname": "last_name",
			"lname":    "last_name",
			"surname":  "last_name",
			"family":   "last_name",

			"jersey":   "jersey_number",
			"jerseyno": "jersey_number",
			"number":   "jersey_number",
			"no":       "jersey_number",
			"num":      "jersey_number",
			"uniform":  "jersey_number",

			"pos":      "position",
			"position": "position",

			"class":    "grad_year",
			"classof":  "grad_year",
			"grad":     "grad_year",
			"gradyear": "grad_year",
			"year":     "grad_year",

			"email":        "email",
			"emailaddress": "email",
			"mail":         "email",

			"phone":     "phone",
			"cell":      "phone",
			"mobile":    "phone",
			"phoneno":   "phone",
			"telephone": "phone",

			"dob":         "birthdate",
			"birthday":    "birthdate",
			"birthdate":   "birthdate",
			"dateofbirth": "birthdate",
		},
		Drills: map[string]string{
			"40":         "40m_dash",
			"40yd":       "40m_dash",
			"40yard":     "40m_dash",
			"40yarddash": "40m_dash",
			"40time":     "40m_dash",
			"forty":      "40m_dash",
			"dash":       "40m_dash",

			"vert":         "vertical_jump",
			"vertical":     "vertical_jump",
			"verticaljump": "vertical_jump",

			"broad":     "broad_jump",
			"broadjump": "broad_jump",
			"longjump":  "broad_jump",

			"shuttle":    "shuttle",
			"proagility": "shuttle",
			"520":        "shuttle",

			"bench":      "bench_press",
			"benchpress": "bench_press",
			"rep":        "bench_press",

			"3cone":     "three_cone",
			"threecone": "three_cone",
			"ldrill":    "three_cone",
		},
	}
}

// FieldTarget resolves a normalized header through the field alias table.
func (a Aliases) FieldTarget(normalized string) (string, bool) {
	target, ok := a.Fields[normalized]
	return target, ok
}

// DrillTarget resolves a normalized header through the drill alias table.
func (a Aliases) DrillTarget(normalized string) (string, bool) {
	target, ok := a.Drills[normalized]
	return target, ok
}
