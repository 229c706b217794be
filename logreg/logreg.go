// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logreg trains binary logistic regression models with the Newton-CG optimizer.
package logreg

import (
	"errors"
	"fmt"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/newtoncg"
	"github.com/curioloop/newtoncg/objective"
	"github.com/curioloop/newtoncg/primitives"
)

const (
	defaultTolerance     = 1e-4
	defaultMaxIterations = 100
	defaultMaxInner      = 100
)

// Descriptor configures the training.
type Descriptor struct {
	FitIntercept       bool    // Whether to fit a bias term.
	L2                 float64 // Penalty λ‖𝛃‖² on the coefficients.
	Tolerance          float64 // Gradient max-abs tolerance (default 1e-4).
	MaxIterations      int     // Outer Newton iterations (default 100).
	MaxInnerIterations int     // CG iterations per Newton system (default 100).
}

func (d Descriptor) withDefaults() Descriptor {
	if d.Tolerance == 0 {
		d.Tolerance = defaultTolerance
	}
	if d.MaxIterations == 0 {
		d.MaxIterations = defaultMaxIterations
	}
	if d.MaxInnerIterations == 0 {
		d.MaxInnerIterations = defaultMaxInner
	}
	return d
}

// Model is a trained logistic regression model.
type Model[F device.Float] struct {
	Coefficients []F
	Intercept    F
}

// TrainResult contains the model and the optimizer summary.
type TrainResult[F device.Float] struct {
	Model   Model[F]
	Summary newtoncg.Summary
	Loss    F
}

// Train fits the model on the row-major samples x with labels y ∈ {0,1}.
// Failing to converge within the iteration budget is not an error;
// inspect Summary.Status.
func Train[F device.Float](q *device.Queue, desc Descriptor, x device.Matrix[F], y []int32, logger *newtoncg.Logger) (*TrainResult[F], error) {
	desc = desc.withDefaults()
	if q == nil {
		q = device.Default()
	}

	loss, err := objective.NewLogLoss(q, x, y, desc.FitIntercept, desc.L2)
	if err != nil {
		return nil, err
	}

	p := newtoncg.Problem[F]{
		N:     loss.Dim(),
		Func:  loss,
		Queue: q,
		Stop: newtoncg.Termination{
			MaxIterations:      desc.MaxIterations,
			MaxInnerIterations: desc.MaxInnerIterations,
			GradTolerance:      desc.Tolerance,
		},
	}
	o, err := p.New(logger)
	if err != nil {
		return nil, fmt.Errorf("logreg: %w", err)
	}

	params := device.Alloc[F](loss.Dim())
	res, err := o.Fit(params, o.Init())
	if err != nil {
		return nil, fmt.Errorf("logreg: %w", err)
	}

	w := params.ToHost()
	model := Model[F]{Coefficients: w}
	if desc.FitIntercept {
		model.Intercept, model.Coefficients = w[0], w[1:]
	}
	return &TrainResult[F]{Model: model, Summary: res.Summary, Loss: res.F}, nil
}

// Probabilities returns P(y=1 | xᵢ) for every row of x.
func (m *Model[F]) Probabilities(q *device.Queue, x device.Matrix[F]) ([]F, error) {
	if len(m.Coefficients) == 0 {
		return nil, errors.New("logreg: model has no coefficients")
	}
	if q == nil {
		q = device.Default()
	}
	z := device.Alloc[F](x.Rows())
	ev := primitives.Fill(q, z, m.Intercept, nil)
	ev = primitives.Gemv(q, false, 1, x, device.Wrap(m.Coefficients), 1, z, device.Events{ev})
	ev = primitives.ElementWise(q, func(v, _ F) F {
		return F(objective.Sigmoid(float64(v)))
	}, z, 0, z, device.Events{ev})
	if err := ev.Wait(); err != nil {
		return nil, fmt.Errorf("logreg: %w", err)
	}
	return z.Data(), nil
}

// Infer returns the predicted label of every row of x.
func (m *Model[F]) Infer(q *device.Queue, x device.Matrix[F]) ([]int32, error) {
	prob, err := m.Probabilities(q, x)
	if err != nil {
		return nil, err
	}
	labels := make([]int32, len(prob))
	for i, p := range prob {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}
