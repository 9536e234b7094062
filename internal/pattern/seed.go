package pattern

// Seeds returns the starter pattern set. The store is seeded with these only
// when it holds no patterns at all; after that they evolve independently.
func Seeds() []*Pattern {
	return []*Pattern{
		// Central bank
		New("fed_emergency", []string{"emergency meeting", "emergency session", "unscheduled fomc"}, Short, []string{"SPY", "QQQ"}, 3.0),
		New("fed_dovish", []string{"rate cut", "dovish", "pivot", "pause", "easing"}, Long, []string{"QQQ", "TLT"}, 2.0),
		New("fed_hawkish", []string{"rate hike", "hawkish", "tightening", "inflation fight"}, Short, []string{"QQQ", "TLT"}, 2.0),

		// Geopolitical
		New("military_action", []string{"military strike", "invasion", "missile strike", "troops deployed"}, Short, []string{"SPY", "EEM"}, 2.5),
		New("taiwan_crisis", []string{"taiwan strait", "china taiwan", "taiwan military", "blockade"}, Short, []string{"TSM", "SMH", "QQQ"}, 3.0),
		New("russia_escalation", []string{"russia escalat", "nato russia", "nuclear", "ukraine offensive"}, Short, []string{"SPY", "EWG"}, 2.5),
		New("middle_east_crisis", []string{"israel iran", "strait of hormuz", "saudi attack", "iran military"}, Long, []string{"XLE", "USO"}, 2.0),

		// Energy
		New("oil_supply_shock", []string{"opec cut", "pipeline attack", "oil embargo", "production halt"}, Long, []string{"XLE", "USO", "OXY"}, 2.0),
		New("oil_demand_collapse", []string{"oil demand fall", "opec discord", "production surge", "oil glut"}, Short, []string{"XLE", "USO"}, 2.0),

		// Economic data
		New("hot_inflation", []string{"cpi higher", "inflation surge", "inflation accelerat", "core cpi beat"}, Short, []string{"TLT", "QQQ"}, 1.8),
		New("cool_inflation", []string{"cpi lower", "inflation cool", "inflation slow", "cpi miss"}, Long, []string{"QQQ", "TLT"}, 1.8),
		New("jobs_weak", []string{"jobs miss", "payrolls plunge", "unemployment spike", "layoffs surge"}, Long, []string{"TLT"}, 1.5),

		// Financial stress
		New("bank_crisis", []string{"bank run", "bank failure", "liquidity crisis", "bailout", "bank collapse"}, Short, []string{"XLF", "KRE", "SPY"}, 3.0),
		New("credit_stress", []string{"credit spread", "high yield stress", "junk bond selloff"}, Short, []string{"HYG", "SPY"}, 2.0),

		// Tech / earnings
		New("mega_cap_beat", []string{"earnings crush", "revenue beat", "guidance raise", "record quarter"}, Long, []string{"QQQ"}, 1.5),
		New("mega_cap_miss", []string{"earnings miss", "revenue miss", "guidance cut", "disappoint"}, Short, []string{"QQQ"}, 1.5),

		// China
		New("china_stimulus", []string{"china stimulus", "pboc cut", "china easing", "china support"}, Long, []string{"FXI", "KWEB", "EEM"}, 1.5),
		New("china_slowdown", []string{"china pmi contract", "china exports fall", "china weak"}, Short, []string{"FXI", "EEM", "CAT"}, 1.5),

		// Leading indicators
		New("shipping_collapse", []string{"freight rates crash", "shipping collapse", "container rates plunge"}, Short, []string{"XRT", "XLY"}, 2.0),

		// Crypto
		New("crypto_positive", []string{"bitcoin etf approv", "crypto adoption", "institutional bitcoin"}, Long, []string{"BITO", "COIN"}, 1.5),
		New("crypto_crackdown", []string{"crypto ban", "sec crypto", "crypto crackdown"}, Short, []string{"BITO", "COIN"}, 1.5),

		// Volatility
		New("vix_spike", []string{"vix spike", "fear spike", "volatility surge"}, Short, []string{"SPY"}, 1.5),
	}
}
