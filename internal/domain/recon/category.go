package recon

// Security categories used to split position reconciliations.
const (
	Cashlike      = "Cashlike"
	Marketable    = "Marketable"
	TruePE        = "True PE"
	NonMarketable = "Non Marketable"
)

var securityCategories = map[string]string{
	"ca": Cashlike,
	"pe": TruePE,
	"rp": TruePE,
	"en": NonMarketable,
	"hf": NonMarketable,
	"hp": NonMarketable,
	"lp": NonMarketable,
	"oa": NonMarketable,
	"pl": NonMarketable,
	"pp": NonMarketable,
	"zp": NonMarketable,
}

// Categories lists every category in report order.
var Categories = []string{Cashlike, Marketable, NonMarketable, TruePE}

// Classify maps a custodian security type code to its category. Unknown
// codes are marketable.
func Classify(securityType string) string {
	if c, ok := securityCategories[securityType]; ok {
		return c
	}
	return Marketable
}

// IsPriced reports whether units and price are meaningful for a category.
func IsPriced(category string) bool {
	return category != NonMarketable && category != TruePE
}
