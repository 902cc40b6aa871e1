package learner

import (
	"fmt"
	"math"

	"govote/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errNotFitted = errors.InvalidInput("estimator is not fitted")

// LogisticRegression is a multinomial softmax model with an L2 penalty,
// fitted by full-batch gradient descent from zero weights. The step is
// LearningRate divided by a Lipschitz bound of the loss gradient.
type LogisticRegression struct {
	C            float64
	MaxIter      int
	LearningRate float64

	numClasses int
	w          *mat.Dense // features x classes
	b          []float64
}

func newLogisticRegression(p Params) (Estimator, error) {
	c, err := p.Float("C", 1.0)
	if err != nil {
		return nil, err
	}
	if c <= 0 {
		return nil, errors.ConfigurationError("parameter C must be positive, got %v", c)
	}
	iter, err := p.Int("max_iter", 200)
	if err != nil {
		return nil, err
	}
	lr, err := p.Float("learning_rate", 1.0)
	if err != nil {
		return nil, err
	}
	return &LogisticRegression{C: c, MaxIter: iter, LearningRate: lr}, nil
}

func (m *LogisticRegression) SetNumClasses(n int) { m.numClasses = n }

func (m *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	k := classCount(y, m.numClasses)

	target := mat.NewDense(n, k, nil)
	for i, c := range y {
		target.Set(i, int(c), 1)
	}

	m.w = mat.NewDense(d, k, nil)
	m.b = make([]float64, k)
	penalty := 1 / (m.C * float64(n))

	maxSq := 0.0
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, X)
		maxSq = math.Max(maxSq, floats.Dot(row, row)+1)
	}
	step := m.LearningRate / (0.5*maxSq + penalty)

	var grad, gradW mat.Dense
	for it := 0; it < m.MaxIter; it++ {
		probs := m.softmax(X)
		grad.Sub(probs, target)

		gradW.Mul(X.T(), &grad)
		gradW.Scale(1/float64(n), &gradW)
		var reg mat.Dense
		reg.Scale(penalty, m.w)
		gradW.Add(&gradW, &reg)

		gradW.Scale(step, &gradW)
		m.w.Sub(m.w, &gradW)
		for j := 0; j < k; j++ {
			m.b[j] -= step * floats.Sum(mat.Col(nil, j, &grad)) / float64(n)
		}
	}
	return nil
}

func (m *LogisticRegression) softmax(X mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(X, m.w)
	r, k := z.Dims()
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		floats.Add(row, m.b)
		shift := floats.Max(row)
		sum := 0.0
		for j := 0; j < k; j++ {
			row[j] = math.Exp(row[j] - shift)
			sum += row[j]
		}
		floats.Scale(1/sum, row)
	}
	return &z
}

func (m *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if m.w == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, m.w.RawMatrix().Rows); err != nil {
		return nil, err
	}
	return m.softmax(X), nil
}

func (m *LogisticRegression) Predict(X mat.Matrix) ([]float64, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxRows(p), nil
}

// LinearRegression is ordinary least squares with an intercept, solved by QR.
type LinearRegression struct {
	coef      []float64
	intercept float64
}

func newLinearRegression(Params) (Estimator, error) { return &LinearRegression{}, nil }

func (m *LinearRegression) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if n < d+1 {
		return fmt.Errorf("least squares needs at least %d examples, got %d", d+1, n)
	}

	a := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			a.Set(i, j+1, X.At(i, j))
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, append([]float64(nil), y...))); err != nil {
		return fmt.Errorf("least squares: %w", err)
	}

	m.intercept = beta.At(0, 0)
	m.coef = make([]float64, d)
	for j := 0; j < d; j++ {
		m.coef[j] = beta.At(j+1, 0)
	}
	return nil
}

func (m *LinearRegression) Predict(X mat.Matrix) ([]float64, error) {
	if m.coef == nil {
		return nil, errNotFitted
	}
	return linearPredict(X, m.coef, m.intercept)
}

// Ridge is L2-penalised least squares with an unpenalised intercept,
// solved through a Cholesky factorisation of the normal equations.
type Ridge struct {
	Alpha float64

	coef      []float64
	intercept float64
}

func newRidge(p Params) (Estimator, error) {
	alpha, err := p.Float("alpha", 1.0)
	if err != nil {
		return nil, err
	}
	if alpha < 0 {
		return nil, errors.ConfigurationError("parameter alpha must be non-negative, got %v", alpha)
	}
	return &Ridge{Alpha: alpha}, nil
}

func (m *Ridge) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}

	xMean := columnMeans(X)
	yMean := floats.Sum(y) / float64(n)

	xc := mat.NewDense(n, d, nil)
	yc := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xc.Set(i, j, X.At(i, j)-xMean[j])
		}
		yc[i] = y[i] - yMean
	}

	gram := mat.NewSymDense(d, nil)
	gram.SymOuterK(1, xc.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+m.Alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return fmt.Errorf("ridge: normal equations are not positive definite (alpha=%v)", m.Alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), mat.NewVecDense(n, yc))
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("ridge: %w", err)
	}

	m.coef = make([]float64, d)
	for j := 0; j < d; j++ {
		m.coef[j] = beta.AtVec(j)
	}
	m.intercept = yMean - floats.Dot(xMean, m.coef)
	return nil
}

func (m *Ridge) Predict(X mat.Matrix) ([]float64, error) {
	if m.coef == nil {
		return nil, errNotFitted
	}
	return linearPredict(X, m.coef, m.intercept)
}

func linearPredict(X mat.Matrix, coef []float64, intercept float64) ([]float64, error) {
	if err := checkWidth(X, len(coef)); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(coef), coef))
	res := make([]float64, r)
	for i := range res {
		res[i] = out.AtVec(i) + intercept
	}
	return res, nil
}

func checkXY(X mat.Matrix, y []float64) (int, int, error) {
	n, d := X.Dims()
	if n != len(y) {
		return 0, 0, fmt.Errorf("feature rows (%d) and targets (%d) differ", n, len(y))
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("cannot fit on zero examples")
	}
	return n, d, nil
}

func checkWidth(X mat.Matrix, d int) error {
	if _, c := X.Dims(); c != d {
		return fmt.Errorf("model was fitted on %d features, got %d", d, c)
	}
	return nil
}

// classCount is the number of probability columns: the shared encoding
// size, widened if y holds a larger code.
func classCount(y []float64, declared int) int {
	k := declared
	for _, c := range y {
		if int(c)+1 > k {
			k = int(c) + 1
		}
	}
	return k
}

func columnMeans(X mat.Matrix) []float64 {
	n, d := X.Dims()
	out := make([]float64, d)
	for j := 0; j < d; j++ {
		s := 0.0
		for i := 0; i < n; i++ {
			s += X.At(i, j)
		}
		out[j] = s / float64(n)
	}
	return out
}
