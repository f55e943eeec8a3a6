// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/classification.go -package=mocks . Classifier,ModelClient

type SignalSet struct {
	Exclusions []bool
	Strong     []bool
	Medium     []bool
}

type Method string

const (
	MethodRules        = Method("rules")
	MethodModel        = Method("model")
	MethodModelUnclear = Method("model_unclear")
)

type ClassificationResult struct {
	IsNewsletter bool
	Confidence   float64
	Method       Method
}

// Classifier never fails: implementations absorb their errors and degrade to a deterministic answer.
type Classifier interface {
	Classify(ctx context.Context, record *EmailRecord) *ClassificationResult
}

type GenerateRequest struct {
	Prompt      string
	Temperature float64
	NumPredict  int
}

type ModelClient interface {
	Ping(ctx context.Context) error
	Generate(ctx context.Context, request *GenerateRequest) (string, error)
}
