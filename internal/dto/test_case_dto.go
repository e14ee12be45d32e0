package dto

import "github.com/noah-isme/gradia-go-api/internal/models"

// TestCaseResponse is the API view of a test case.
type TestCaseResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Weight          float64 `json:"weight"`
	BonusMultiplier float64 `json:"bonus_multiplier"`
	BonusPoints     float64 `json:"bonus_points"`
	Active          bool    `json:"active"`
	Visibility      string  `json:"visibility"`
	Type            string  `json:"type,omitempty"`
}

// TestCaseWeightUpdate is one instructor-issued grading configuration change.
type TestCaseWeightUpdate struct {
	ID              uint     `json:"id" validate:"required"`
	Weight          float64  `json:"weight" validate:"gte=0"`
	BonusMultiplier *float64 `json:"bonus_multiplier" validate:"omitempty,gte=0"`
	BonusPoints     *float64 `json:"bonus_points" validate:"omitempty,gte=0"`
	Visibility      *string  `json:"visibility" validate:"omitempty,oneof=ALWAYS AFTER_DUE_DATE NEVER"`
}

// TestCaseWeightsRequest carries a batch of weight updates for one exercise.
type TestCaseWeightsRequest struct {
	Updates []TestCaseWeightUpdate `json:"updates" validate:"required,min=1,dive"`
}

// NewTestCaseResponse maps a test case model into its API view.
func NewTestCaseResponse(testCase models.TestCase) TestCaseResponse {
	return TestCaseResponse{
		ID:              testCase.ID,
		Name:            testCase.Name,
		Weight:          testCase.Weight,
		BonusMultiplier: testCase.BonusMultiplier,
		BonusPoints:     testCase.BonusPoints,
		Active:          testCase.Active,
		Visibility:      testCase.Visibility,
		Type:            testCase.Type,
	}
}

// NewTestCaseResponses maps a list of test cases into their API view.
func NewTestCaseResponses(testCases []models.TestCase) []TestCaseResponse {
	responses := make([]TestCaseResponse, 0, len(testCases))
	for _, testCase := range testCases {
		responses = append(responses, NewTestCaseResponse(testCase))
	}
	return responses
}
