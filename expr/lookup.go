package expr

// Lookup identifies the comparison applied by a condition. The set is
// closed: a lookup suffix is resolved to exactly one Lookup value when
// the condition is constructed, never re-dispatched per row. Each
// dialect maps every Lookup to one SQL template.
type Lookup string

const (
	// Exact is the equality comparison, the default lookup.
	Exact Lookup = "exact"
	// IExact is case-insensitive equality.
	IExact Lookup = "iexact"
	// Gt is strictly greater than.
	Gt Lookup = "gt"
	// Gte is greater than or equal.
	Gte Lookup = "gte"
	// Lt is strictly less than.
	Lt Lookup = "lt"
	// Lte is less than or equal.
	Lte Lookup = "lte"
	// In tests membership in a value set; placeholders expand to the
	// operand arity.
	In Lookup = "in"
	// Contains is a substring match.
	Contains Lookup = "contains"
	// IContains is a case-insensitive substring match.
	IContains Lookup = "icontains"
	// StartsWith is a prefix match.
	StartsWith Lookup = "startswith"
	// IsNull tests for NULL (operand true) or NOT NULL (operand false).
	IsNull Lookup = "isnull"
)

var lookupNames = map[string]Lookup{
	"exact":      Exact,
	"iexact":     IExact,
	"gt":         Gt,
	"gte":        Gte,
	"lt":         Lt,
	"lte":        Lte,
	"in":         In,
	"contains":   Contains,
	"icontains":  IContains,
	"startswith": StartsWith,
	"isnull":     IsNull,
}

// KnownLookup reports whether name is a recognized lookup suffix.
func KnownLookup(name string) (Lookup, bool) {
	l, ok := lookupNames[name]
	return l, ok
}
