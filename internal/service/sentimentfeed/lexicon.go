package sentimentfeed

import (
	"strings"
	"unicode"

	"SignalForge/internal/domain/models"
)

const polarityCutoff = 0.2

var positiveWords = map[string]struct{}{
	"surge": {}, "surges": {}, "soar": {}, "soars": {}, "skyrockets": {}, "rally": {}, "rallies": {},
	"gain": {}, "gains": {}, "bull": {}, "bullish": {}, "record": {}, "high": {}, "up": {},
	"rise": {}, "rises": {}, "jump": {}, "jumps": {}, "boost": {}, "breakout": {}, "adoption": {},
	"approval": {}, "approved": {}, "growth": {}, "strong": {}, "win": {}, "wins": {}, "recover": {},
	"recovers": {}, "optimism": {}, "profit": {}, "profits": {}, "upgrade": {}, "partnership": {},
}

var negativeWords = map[string]struct{}{
	"crash": {}, "crashes": {}, "plunge": {}, "plunges": {}, "dump": {}, "dumps": {}, "fall": {},
	"falls": {}, "drop": {}, "drops": {}, "bear": {}, "bearish": {}, "loss": {}, "losses": {},
	"hack": {}, "hacked": {}, "scam": {}, "fraud": {}, "ban": {}, "bans": {}, "fear": {}, "fears": {},
	"lawsuit": {}, "sell-off": {}, "selloff": {}, "low": {}, "down": {}, "weak": {}, "collapse": {},
	"warning": {}, "risk": {}, "liquidation": {}, "liquidations": {}, "regulation": {},
}

// Polarity scores a headline in [-1, 1] from matched lexicon words.
func Polarity(headline string) float64 {
	words := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// Summarize counts headlines by polarity class.
func Summarize(headlines []string) models.SentimentSummary {
	var s models.SentimentSummary
	for _, h := range headlines {
		switch p := Polarity(h); {
		case p > polarityCutoff:
			s.Positive++
		case p < -polarityCutoff:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	return s
}
