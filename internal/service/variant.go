package service

import (
	"math/rand/v2"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// RandomSource picks an index in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type defaultRandom struct{}

func (defaultRandom) IntN(n int) int { return rand.IntN(n) }

// Variant is the subject/body pair chosen for one send.
type Variant struct {
	Index   int
	Subject string
	Body    string
}

// SelectVariant picks one index and uses it for both subject and body.
// Only positions present in both lists are candidates.
func SelectVariant(step *model.SequenceStep, rnd RandomSource) (Variant, error) {
	n := min(len(step.SubjectVariants), len(step.BodyVariants))
	if n == 0 {
		return Variant{}, appErrors.ErrNoVariants
	}
	if rnd == nil {
		rnd = defaultRandom{}
	}
	i := rnd.IntN(n)
	return Variant{
		Index:   i,
		Subject: step.SubjectVariants[i],
		Body:    step.BodyVariants[i],
	}, nil
}
