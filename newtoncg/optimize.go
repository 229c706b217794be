// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newtoncg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/objective"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the exit summary
	LogLast LogLevel = 0
	// LogEval print also f, ‖g‖₁ and ‖g‖∞ at every outer iteration
	LogEval LogLevel = 1
	// LogTrace print details of every inner solve and line search
	LogTrace LogLevel = 99
)

// Logger handles logging output for the optimizer.
// Records are written as JSON lines; Msg must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log records.
}

type iterLogger struct {
	level LogLevel
	zerolog.Logger
}

func (l *iterLogger) enable(level LogLevel) bool {
	return l.level >= level
}

func newIterLogger(logger *Logger) iterLogger {
	if logger == nil || logger.Level < LogLast {
		return iterLogger{level: LogNoop, Logger: zerolog.Nop()}
	}
	msg := logger.Msg
	if msg == nil {
		msg = os.Stderr
	}
	return iterLogger{
		level:  logger.Level,
		Logger: zerolog.New(msg).With().Timestamp().Str("solver", "newton-cg").Logger(),
	}
}

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stop when the number of accepted outer iterations reaches limit.
	MaxIterations int
	// The conjugate gradient stop when the number of inner iterations of one solve reaches limit.
	MaxInnerIterations int
	// The iteration will stop when the gradient satisfied:
	//   𝚖𝚊𝚡( |gᵢ|ᵢ₌₁,...,ₙ ) < 𝚐𝚝𝚘𝚕
	GradTolerance float64
	// Solve the Newton system without truncation:
	// the inner tolerance 𝚖𝚒𝚗(√‖g‖₁, ½) is replaced by zero.
	ExactNewton bool
}

// SearchTol specifies the backtracking line search.
type SearchTol struct {
	// Step is the first step length tried (default 1).
	Step float64
	// Decrease is the constant c of the sufficient decrease condition
	//   𝒇(𝐱 + λ𝐝) ≤ 𝒇(𝐱) + cλ∇𝒇ᵀ𝐝 (default 10⁻⁴).
	Decrease float64
	// Contraction multiplies the step after each rejection (default ½).
	Contraction float64
	// MinStep stops the search when the next step would be smaller (default 10⁻²⁰).
	MinStep float64
}

// Progress reports the state of the optimizer after each gradient evaluation.
type Progress struct {
	Iter       int     // Accepted outer iterations so far.
	Loss       float64 // Objective value at the current iterate.
	GradNorm   float64 // ‖g‖₁ at the current iterate.
	GradMaxAbs float64 // ‖g‖∞ at the current iterate.
	InnerIter  int     // CG iterations spent on the last accepted step.
	Step       float64 // Step length of the last accepted step.
	UpdateNorm float64 // ‖𝐝‖₂ × step of the last accepted step.
}

// Problem specifies the problem for Newton-CG optimizer.
type Problem[F device.Float] struct {
	N       int                   // The problem dimension
	Func    objective.Function[F] // Objective function, gradient and Hessian products
	Queue   *device.Queue         // Device queue (device.Default when nil)
	Stop    Termination           // Stop condition
	Search  *SearchTol            // Optional line-search config
	Monitor func(Progress)        // Optional diagnostics hook
}

// New creates a new Newton-CG optimizer for given problem.
func (p *Problem[F]) New(logger *Logger) (optimizer *Optimizer[F], err error) {

	n, fn, stop := p.N, p.Func, p.Stop

	search := SearchTol{searchStep, searchDecrease, searchContraction, searchMinStep}
	if p.Search != nil {
		if p.Search.Step != zero {
			search.Step = p.Search.Step
		}
		if p.Search.Decrease != zero {
			search.Decrease = p.Search.Decrease
		}
		if p.Search.Contraction != zero {
			search.Contraction = p.Search.Contraction
		}
		if p.Search.MinStep != zero {
			search.MinStep = p.Search.MinStep
		}
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case fn == nil:
		err = errors.New("objective function is required")
	case stop.MaxIterations <= 0:
		err = errors.New("max iteration must greater than 0")
	case stop.MaxInnerIterations <= 0:
		err = errors.New("max inner iteration must greater than 0")
	case !(stop.GradTolerance > zero):
		err = errors.New("gradient tolerance must greater than 0")
	case !(search.Step > zero):
		err = errors.New("line search initial step must greater than 0")
	case !(search.Decrease > zero && search.Decrease < one):
		err = errors.New("line search decrease must between 0 and 1")
	case !(search.Contraction > zero && search.Contraction < one):
		err = errors.New("line search contraction must between 0 and 1")
	case !(search.MinStep > zero && search.MinStep <= search.Step):
		err = errors.New("line search min step must between 0 and initial step")
	case fn.Gradient().Len() != n:
		err = fmt.Errorf("gradient size %d must equal to n", fn.Gradient().Len())
	}

	if err != nil {
		return
	}

	queue := p.Queue
	if queue == nil {
		queue = device.Default()
	}

	optimizer = &Optimizer[F]{
		iterSpec[F]{
			n:       n,
			fn:      fn,
			queue:   queue,
			stop:    stop,
			search:  search,
			monitor: p.Monitor,
			logger:  newIterLogger(logger),
		},
	}
	return
}

type iterSpec[F device.Float] struct {
	n       int
	fn      objective.Function[F]
	queue   *device.Queue
	stop    Termination
	search  SearchTol
	monitor func(Progress)
	logger  iterLogger
}

// Optimizer implemented using the truncated Newton-CG algorithm.
type Optimizer[F device.Float] struct {
	iterSpec[F]
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n, the work space is F[4×n + 7] carved from one arena.
type Workspace[F device.Float] struct {
	n int
	iterCtx[F]
}

// Result contains the final result of the optimization process.
type Result[F device.Float] struct {
	OK         bool             // Whether the optimization was converged.
	F          F                // Function value at X.
	GradMaxAbs F                // ‖g‖∞ at X.
	X          device.Vector[F] // Final solution (the vector passed to Fit).
	Summary                     // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status       Status // Final task status after optimization.
	NumIter      int    // Number of accepted outer iterations.
	NumInner     int    // Total number of CG iterations.
	NumEval      int    // Number of function evaluations, line search trials included.
	NumSearchBad int    // Number of line searches that hit the minimum step.
}

// Init allocate the workspace for Newton-CG optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer only if its objective is not shared.
func (o *Optimizer[F]) Init() *Workspace[F] {
	w := new(Workspace[F])
	w.n = o.n
	w.init(w.n)
	return w
}

// Fit minimizes the objective starting from x and overwrites x with the final iterate.
// A non-nil error reports a fatal failure: x then holds the last accepted iterate.
// Exhausting the iteration budget is not an error; check Result.OK.
func (o *Optimizer[F]) Fit(x device.Vector[F], w *Workspace[F]) (*Result[F], error) {

	if x.Len() != o.n {
		panic("initial x dimension not match problem")
	}

	if w.n != o.n {
		panic("workspace dimension not match problem")
	}

	driver := iterDriver[F]{
		optimizer: o,
		workspace: w,
		x:         x,
	}

	last, task, err := driver.mainLoop(nil)
	if werr := last.Wait(); werr != nil && err == nil {
		task, err = DeviceFault, fmt.Errorf("newtoncg: commit iterate: %w", werr)
	}

	return &Result[F]{
		OK:         task == Converged,
		F:          w.f,
		GradMaxAbs: w.gradMax,
		X:          x,
		Summary: Summary{
			Status:       task,
			NumIter:      w.iter,
			NumInner:     w.inner,
			NumEval:      w.numEval,
			NumSearchBad: w.searchBad,
		},
	}, err
}

// NewtonCG minimizes f from the point x, overwriting x with the final iterate
// once the returned event completes. Kernels start after deps.
//
// It returns the number of accepted outer iterations and the total number of
// CG iterations. Immediate convergence at x reports zero outer iterations.
// Reaching maxIter without convergence is not an error.
func NewtonCG[F device.Float](q *device.Queue, f objective.Function[F], x device.Vector[F], tol F, maxIter, maxInner int, deps device.Events) (*device.Event, int, int, error) {
	p := Problem[F]{
		N:     x.Len(),
		Func:  f,
		Queue: q,
		Stop: Termination{
			MaxIterations:      maxIter,
			MaxInnerIterations: maxInner,
			GradTolerance:      float64(tol),
		},
	}
	o, err := p.New(nil)
	if err != nil {
		return device.Failed(err), 0, 0, err
	}
	w := o.Init()
	driver := iterDriver[F]{
		optimizer: o,
		workspace: w,
		x:         x,
	}
	last, _, err := driver.mainLoop(deps)
	return last, w.iter, w.inner, err
}

func finite[F device.Float](values ...F) bool {
	for _, v := range values {
		if !device.IsFinite(v) {
			return false
		}
	}
	return true
}

func sqrt[F device.Float](v F) F {
	return F(math.Sqrt(float64(v)))
}
