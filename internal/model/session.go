package model

import "time"

// Attempt records one pointer event evaluated against an interactive step
type Attempt struct {
	StepID  string    `json:"stepId"`
	Order   int       `json:"order"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Correct bool      `json:"correct"`
	Attempt int       `json:"attempt"`
	At      time.Time `json:"at"`
}

// Answer records one question submission
type Answer struct {
	QuestionID string    `json:"questionId"`
	Option     int       `json:"option"`
	Correct    bool      `json:"correct"`
	At         time.Time `json:"at"`
}

// Session is the outcome of one viewing
type Session struct {
	ID               string       `json:"id"`
	Mode             LearningMode `json:"mode"`
	ProjectID        string       `json:"projectId"`
	CurrentStepIndex int          `json:"currentStepIndex"`
	Score            int          `json:"score"`
	MaxScore         int          `json:"maxScore"`
	Attempts         []Attempt    `json:"attempts"`
	CompletedSteps   []string     `json:"completedSteps"`
	Answers          []Answer     `json:"answers"`
	IsComplete       bool         `json:"isComplete"`
	StartedAt        time.Time    `json:"startedAt"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
}
