package symbols

// Universe represents a predefined stock universe
type Universe string

const (
	UniverseLargeCap Universe = "large_cap"
	UniverseTech     Universe = "tech"
	UniverseSmallCap Universe = "small_cap"
	UniverseBiotech  Universe = "biotech"
	UniverseCrypto   Universe = "crypto"
	UniverseTrending Universe = "trending"
	UniversePenny    Universe = "penny"
	UniverseTest     Universe = "test" // Small set for testing
)

// Segments is the rotation order for the background segment scan.
var Segments = []Universe{
	UniverseLargeCap,
	UniverseTech,
	UniverseSmallCap,
	UniverseBiotech,
	UniverseCrypto,
}

// GetUniverse returns the list of symbols for a given universe
func GetUniverse(u Universe) []string {
	switch u {
	case UniverseLargeCap:
		return LargeCapSymbols
	case UniverseTech:
		return TechSymbols
	case UniverseSmallCap:
		return SmallCapSymbols
	case UniverseBiotech:
		return BiotechSymbols
	case UniverseCrypto:
		return CryptoSymbols
	case UniverseTrending:
		return TrendingSymbols
	case UniversePenny:
		return PennySymbols
	case UniverseTest:
		return TestSymbols
	default:
		return nil
	}
}

// HighVolume returns the quick-scan set: the most liquid names plus
// popular ETFs, deduplicated, preserving order.
func HighVolume() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, HighVolumeSymbols...), TrendingSymbols...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Extended returns the widened universe for the second scan pass when
// the primary pass finds too few candidates.
func Extended() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{SmallCapSymbols, BiotechSymbols, PennySymbols} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// TestSymbols is a small set for quick testing
var TestSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "AMD", "NFLX", "JPM",
}

// LargeCapSymbols is a representative S&P 500 subset. The full index
// would be too slow on free API tiers.
var LargeCapSymbols = []string{
	// Technology
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "NVDA", "META", "TSLA", "AVGO", "ORCL",
	"CRM", "ADBE", "AMD", "ACN", "CSCO", "INTC", "IBM", "TXN", "QCOM", "AMAT",
	// Financials
	"JPM", "V", "MA", "BAC", "WFC", "GS", "MS", "BLK", "SPGI", "AXP",
	"C", "SCHW", "CB", "ICE", "CME", "MCO", "USB", "PNC", "TFC", "COF",
	// Healthcare
	"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT", "DHR", "BMY",
	"AMGN", "MDT", "ISRG", "GILD", "CVS", "SYK", "REGN", "VRTX", "BSX", "CI",
	// Consumer
	"WMT", "PG", "KO", "PEP", "COST", "MCD", "NKE", "SBUX", "TGT", "LOW",
	"HD", "TJX", "BKNG", "DIS", "MDLZ", "MO", "CL", "F", "GM", "UBER",
	// Industrials and energy
	"XOM", "CVX", "BA", "CAT", "DE", "GE", "HON", "MMM", "LMT", "RTX",
	"UPS", "FDX", "UNP", "CSX", "NSC", "NEE", "SO", "DUK", "AEP", "EXC",
}

// TechSymbols is the NASDAQ growth set.
var TechSymbols = []string{
	"AAPL", "MSFT", "AMZN", "TSLA", "GOOGL", "GOOG", "META", "NVDA", "NFLX", "ADBE",
	"PYPL", "INTC", "CSCO", "CMCSA", "PEP", "COST", "AVGO", "TXN", "QCOM", "AMD",
	"INTU", "TMUS", "AMAT", "SBUX", "CHTR", "ISRG", "GILD", "BKNG", "REGN", "MU",
	"ADI", "CSX", "MRNA", "PANW", "ADP", "ILMN", "LRCX", "MDLZ", "KLAC", "KDP",
	"SNPS", "EXC", "CDNS", "MCHP", "ORLY", "CTAS", "BIIB", "LULU", "PLTR", "SNOW",
	"COIN", "RBLX", "U", "DKNG", "ROKU", "SQ", "SHOP", "PINS", "CRWD", "DDOG",
}

// SmallCapSymbols is the small-cap and retail-favorite set.
var SmallCapSymbols = []string{
	"AMC", "GME", "KOSS", "SNDL", "NOK", "BB", "PLTR", "WISH", "CLOV", "MVIS",
	"TLRY", "WKHS", "SPCE", "RKT", "SOFI", "OPEN", "HOOD", "AFRM", "UPST", "PENN",
	"FVRR", "ETSY", "PINS", "CRSR", "CRWD", "ZS", "OKTA", "DDOG", "NET", "FSLY",
	"ESTC", "TEAM", "PTON", "LMND", "CVNA", "BYND", "TDOC", "MRTX", "SAGE", "FOLD",
}

// BiotechSymbols is the biotech and pharma set.
var BiotechSymbols = []string{
	"MRNA", "BNTX", "NVAX", "OCGN", "INO", "VXRT", "CTXR", "BNGO", "SENS", "CPRX",
	"VERU", "SAVA", "AVXL", "BIIB", "GILD", "AMGN", "VRTX", "REGN", "ILMN", "TGTX",
	"FOLD", "BLUE", "EDIT", "CRSP", "NTLA", "BEAM", "PACB", "FATE", "BMRN", "RARE",
	"MYGN", "HALO", "AXSM", "ACAD", "INCY", "EXAS", "VEEV", "TDOC", "DXCM", "TECH",
}

// CryptoSymbols is the crypto-adjacent equity set.
var CryptoSymbols = []string{
	"COIN", "MSTR", "RIOT", "MARA", "BTBT", "HIVE", "BITF", "HUT", "CLSK", "CAN",
	"PYPL", "SQ", "HOOD", "SOFI", "AFRM", "UPST", "LC", "TREE", "LMND", "WULF",
}

// TrendingSymbols is the index ETF and high-attention set.
var TrendingSymbols = []string{
	"SPY", "QQQ", "IWM", "DIA", "VTI", "GLD", "SLV", "XLE", "XLF", "XLK",
	"XBI", "ARKK", "TLT", "HYG", "EEM", "BABA", "NIO", "XPEV", "LI", "PDD",
	"JD", "BIDU", "RIVN", "LCID", "NKLA",
}

// PennySymbols is the sub-dollar and micro-cap set used only by the
// extended scan pass.
var PennySymbols = []string{
	"GNUS", "XSPA", "UAVS", "VISL", "MARK", "AYTU", "IBIO", "OPK", "TOPS", "CTRM",
	"SNDL", "ZOM", "BNGO", "SENS", "CPRX", "PROG", "HCMC", "ASTI", "ALPP", "ABML",
}

// HighVolumeSymbols is the most liquid subset, scanned every minute.
var HighVolumeSymbols = []string{
	"AAPL", "TSLA", "NVDA", "AMD", "AMZN", "MSFT", "META", "GOOGL", "NFLX", "INTC",
	"F", "BAC", "PLTR", "SOFI", "AMC", "GME", "NIO", "RIVN", "COIN", "MARA",
}
