package feed

import "testing"

func TestTitleHash_StablePrefix(t *testing.T) {
	long := "Fed announces emergency rate cut after markets tumble on bank failures"
	edited := long + " (updated)"
	if TitleHash(long) != TitleHash(edited) {
		t.Fatal("trailing edits past 50 chars should not change the hash")
	}
	if TitleHash("alpha") == TitleHash("beta") {
		t.Fatal("different titles should hash differently")
	}
}

func TestQuickSentiment(t *testing.T) {
	if s := QuickSentiment("Markets surge to record highs on strong earnings"); s <= 0 {
		t.Fatalf("want positive sentiment, got %.2f", s)
	}
	if s := QuickSentiment("Stocks plunge as bank crisis fears spread"); s >= 0 {
		t.Fatalf("want negative sentiment, got %.2f", s)
	}
	if s := QuickSentiment("Committee meets on Thursday"); s != 0 {
		t.Fatalf("want neutral sentiment, got %.2f", s)
	}
}

func TestCleanTitle(t *testing.T) {
	if got := cleanTitle("<b>Fed &amp; markets</b>  "); got != "Fed & markets" {
		t.Fatalf("want cleaned title, got %q", got)
	}
}

func TestParseTitles_RSSAndAtom(t *testing.T) {
	rss := []byte(`<?xml version="1.0"?><rss><channel><item><title>one</title></item><item><title>two</title></item></channel></rss>`)
	titles, err := parseTitles(rss)
	if err != nil {
		t.Fatalf("rss: %v", err)
	}
	if len(titles) != 2 || titles[0] != "one" {
		t.Fatalf("rss parse wrong: %v", titles)
	}

	atom := []byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><entry><title>three</title></entry></feed>`)
	titles, err = parseTitles(atom)
	if err != nil {
		t.Fatalf("atom: %v", err)
	}
	if len(titles) != 1 || titles[0] != "three" {
		t.Fatalf("atom parse wrong: %v", titles)
	}
}
