package notify

import "fmt"

// Reminder texts keyed by language. Arabic mirrors the original
// coaching tone; anything else falls back to English.

func morningMessage(lang string) string {
	if lang == "ar" {
		return "صباح الخير! لم تسجل نومك بعد. كم ساعة نمت الليلة الماضية؟"
	}
	return "Good morning! You haven't logged your sleep yet. How many hours did you get last night?"
}

func eveningGapMessage(lang string, remaining int) string {
	if lang == "ar" {
		return fmt.Sprintf("مساء الخير! ما زال لديك حوالي %d سعرة حرارية لهذا اليوم. هل تريد اقتراح وجبة؟", remaining)
	}
	return fmt.Sprintf("Evening check-in: you still have about %d kcal left for today. Want a meal suggestion?", remaining)
}

func eveningNoMealsMessage(lang string) string {
	if lang == "ar" {
		return "مساء الخير! لم تسجل أي وجبات اليوم. أخبرني بما أكلت وسأسجله لك."
	}
	return "Evening check-in: no meals logged today. Tell me what you ate and I'll log it for you."
}
