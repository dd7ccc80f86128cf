// Package analysis submits a resolved image for disease inference and turns
// the answer into the result line shown to the user.
package analysis

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
	"smartfarm-dashboard-go/internal/imagesource"
)

// FailureText is shown when a failure carries no message of its own.
const FailureText = "analysis failed"

// Result is a successful inference.
type Result struct {
	Label      string
	Code       string
	Confidence float64
}

// Text renders r as "{label} ({code}) · {percent}%".
func (r Result) Text() string {
	return Format(r.Label, r.Code, r.Confidence)
}

// Format renders a prediction with the confidence as a percentage rounded to
// one decimal, e.g. "Downy Mildew (DM01) · 92.3%".
func Format(label, code string, confidence float64) string {
	return fmt.Sprintf("%s (%s) · %s%%", label, code, toFixed1(confidence*100))
}

// toFixed1 rounds the exact binary value of v to one decimal place, picking
// the larger candidate on a tie.
func toFixed1(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	const prec = 2048
	x := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(10))
	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	digits := n.String()
	if len(digits) < 2 {
		digits = strings.Repeat("0", 2-len(digits)) + digits
	}
	out := digits[:len(digits)-1] + "." + digits[len(digits)-1:]
	if v < 0 {
		out = "-" + out
	}
	return out
}

// Predictor is the inference collaborator.
type Predictor interface {
	Predict(ctx context.Context, filename, mimeType string, data []byte) (*farmapi.Prediction, error)
}

// Pipeline is safe for concurrent use. It reports whether a submission is in
// flight but does not itself refuse concurrent submissions.
type Pipeline struct {
	api     Predictor
	log     *log.Logger
	pending atomic.Int32
}

func NewPipeline(api Predictor, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{api: api, log: logger.WithPrefix("Analysis")}
}

// Pending reports whether at least one submission is in flight.
func (p *Pipeline) Pending() bool {
	return p.pending.Load() > 0
}

// Submit posts payload and interprets the answer.
func (p *Pipeline) Submit(ctx context.Context, payload *imagesource.Payload) (*Result, error) {
	const op = "submit"
	if payload == nil || len(payload.Data) == 0 {
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, "choose an image first")
	}

	p.pending.Add(1)
	defer p.pending.Add(-1)

	start := time.Now()
	pred, err := p.api.Predict(ctx, payload.Filename, payload.MimeType, payload.Data)
	if err != nil {
		p.log.Warn("submission failed", "file", payload.Filename, "kind", farmerr.KindOf(err), "err", err)
		return nil, farmerr.Wrap(farmerr.KindTransport, op, "submit image", err)
	}

	res := &Result{Label: pred.Name, Code: pred.Code, Confidence: pred.Confidence}
	p.log.Info("prediction received",
		"file", payload.Filename,
		"code", res.Code,
		"confidence", res.Confidence,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}
