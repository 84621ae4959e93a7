package jobs

import (
	"encoding/json"
	"time"
)

const (
	InterviewStatusScheduled = "scheduled"
	PrepTypeStudyGuide       = "study_guide"
)

type Interview struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	MatchID   string         `json:"match_id"`
	Title     string         `json:"title"`
	Company   string         `json:"company"`
	Status    string         `json:"status"`
	Date      time.Time      `json:"date"`
	Materials []PrepMaterial `json:"prep_materials,omitempty"`
}

// PrepMaterial is a generated document attached to an interview.
type PrepMaterial struct {
	ID          string          `json:"id"`
	InterviewID string          `json:"interview_id"`
	Type        string          `json:"type"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

type StudyGuide struct {
	CompanyCulture    []string       `json:"company_culture"`
	TechnicalGaps     []TechnicalGap `json:"technical_gaps"`
	Questions         []Question     `json:"questions"`
	SimulatedScenario Scenario       `json:"simulated_scenario"`
}

type TechnicalGap struct {
	Skill         string `json:"skill"`
	MissingReason string `json:"missing_reason"`
}

type Question struct {
	Question              string   `json:"question"`
	Difficulty            string   `json:"difficulty"`
	Topic                 string   `json:"topic"`
	SuggestedAnswerPoints []string `json:"suggested_answer_points"`
	Source                string   `json:"source"`
}

type Scenario struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
