package types

// Market describes one tradeable volatility index.
type Market struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	TickMillis  int    `json:"tick_ms"`
}

// Markets is the supported volatility index catalogue. 1HZ symbols tick
// once per second, the rest every two seconds.
var Markets = []Market{
	{Symbol: "R_10", DisplayName: "Volatility 10 Index", TickMillis: 2000},
	{Symbol: "R_25", DisplayName: "Volatility 25 Index", TickMillis: 2000},
	{Symbol: "R_50", DisplayName: "Volatility 50 Index", TickMillis: 2000},
	{Symbol: "R_75", DisplayName: "Volatility 75 Index", TickMillis: 2000},
	{Symbol: "R_100", DisplayName: "Volatility 100 Index", TickMillis: 2000},
	{Symbol: "1HZ10V", DisplayName: "Volatility 10 (1s) Index", TickMillis: 1000},
	{Symbol: "1HZ25V", DisplayName: "Volatility 25 (1s) Index", TickMillis: 1000},
	{Symbol: "1HZ50V", DisplayName: "Volatility 50 (1s) Index", TickMillis: 1000},
	{Symbol: "1HZ75V", DisplayName: "Volatility 75 (1s) Index", TickMillis: 1000},
	{Symbol: "1HZ100V", DisplayName: "Volatility 100 (1s) Index", TickMillis: 1000},
}

// IsKnownSymbol reports whether symbol is in the catalogue.
func IsKnownSymbol(symbol string) bool {
	for _, m := range Markets {
		if m.Symbol == symbol {
			return true
		}
	}
	return false
}
