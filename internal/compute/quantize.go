package compute

// scaleThreshold is the observed span above which total is divided by 100
// instead of available being multiplied by 100. Below it available <= total
// <= 10000, so available*100 always fits.
const scaleThreshold = 10000

// Percent floors available/total to an integer percentage in [0, 100].
// ok is false when total is zero, which callers treat as "no data".
func Percent(available, total uint64) (pct uint8, ok bool) {
	if total == 0 {
		return 0, false
	}
	if total > scaleThreshold {
		total /= 100
	} else {
		available *= 100
	}
	return uint8(available / total), true
}
