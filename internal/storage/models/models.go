package models

import "time"

// EvaluationRecord is one scored answer persisted for session history.
type EvaluationRecord struct {
	ID                 string
	QuestionID         string
	SessionID          string
	AnswerText         string
	SemanticSimilarity float64
	KeywordCoverage    float64
	CombinedScore      float64
	Band               string
	IsCorrect          bool
	CreatedAt          time.Time
}

// QuestionAggregate summarizes historical performance on one question.
type QuestionAggregate struct {
	QuestionID    string
	Evaluations   int
	AvgScore      float64
	CorrectCount  int
	LastEvaluated time.Time
}
