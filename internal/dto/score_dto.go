package dto

// ScorePreviewTestCase is one hypothetical test case in a what-if computation.
type ScorePreviewTestCase struct {
	Name            string  `json:"name" validate:"required"`
	Weight          float64 `json:"weight" validate:"gte=0"`
	BonusMultiplier float64 `json:"bonus_multiplier" validate:"gte=0"`
	BonusPoints     float64 `json:"bonus_points" validate:"gte=0"`
	Visibility      string  `json:"visibility" validate:"omitempty,oneof=ALWAYS AFTER_DUE_DATE NEVER"`
	Passed          bool    `json:"passed"`
}

// ScorePreviewRequest lets instructor UIs preview a score for a hypothetical
// weight configuration without touching stored results.
type ScorePreviewRequest struct {
	MaxScore            float64                `json:"max_score" validate:"required,gt=0"`
	MaxBonusPoints      float64                `json:"max_bonus_points" validate:"gte=0"`
	IncludeAfterDueDate bool                   `json:"include_after_due_date"`
	TestCases           []ScorePreviewTestCase `json:"test_cases" validate:"dive"`
}

// ScorePreviewResponse is the outcome of a what-if computation.
type ScorePreviewResponse struct {
	Score        int    `json:"score"`
	ResultString string `json:"result_string"`
	Successful   bool   `json:"successful"`
}
