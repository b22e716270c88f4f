package ml

import "strings"

const (
	RecommendDairy    = "Consider dairy alternatives like almond milk or coconut yogurt."
	RecommendGluten   = "Try gluten-free alternatives like quinoa or rice."
	RecommendSpicy    = "Consider milder versions or reduce spice levels."
	RecommendMonitor  = "Monitor your symptoms and consider avoiding this food category temporarily."
	RecommendAllClear = "This food appears safe for you based on current data."
)

// Recommend picks the advice shown next to a prediction.
func Recommend(label Label, category string) string {
	if label != LabelLikely {
		return RecommendAllClear
	}
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "dairy":
		return RecommendDairy
	case "gluten":
		return RecommendGluten
	case "spicy":
		return RecommendSpicy
	default:
		return RecommendMonitor
	}
}
