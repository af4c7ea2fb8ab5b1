package models

import "strings"

// CanonicalSymbol strips exchange specific separators so that symbols can be
// compared loosely across venues. Uses BTC instead of XBT.
func CanonicalSymbol(exchange Exchange, sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	switch exchange {
	case Binance:
		switch sym {
		case "1000BONKUSDT":
			sym = "BONKUSDT"
		case "1000PEPEUSDT":
			sym = "PEPEUSDT"
		case "1000SHIBUSDT":
			sym = "SHIBUSDT"
		}
	case Coinbase:
		sym = strings.ReplaceAll(sym, "-", "")
	case Kraken:
		sym = strings.ReplaceAll(sym, "/", "")
		sym = strings.ReplaceAll(sym, "-", "")
		// AssetPairs keys carry X/Z class prefixes, e.g. XXBTZUSD.
		if len(sym) == 8 && (sym[0] == 'X' || sym[0] == 'Z') && (sym[4] == 'X' || sym[4] == 'Z') {
			sym = sym[1:4] + sym[5:]
		}
	default:
		sym = strings.ReplaceAll(sym, "-", "")
		sym = strings.ReplaceAll(sym, "/", "")
	}
	if strings.HasPrefix(sym, "XBT") {
		sym = "BTC" + sym[3:]
	}
	return sym
}
