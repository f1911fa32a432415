package analyze

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/liac-group/outreach-cli/pkg/anthropic"
)

const classifySystemPrompt = `You are a company research classifier. For each company you are given, estimate:
1. The approximate employee count (a number, or null if you do not know the company).
2. Whether it likely has a DEDICATED internal talent acquisition/recruiting team, not just general HR ("yes", "no", or "unknown"). Only large companies (>500 employees) typically have dedicated TA teams; small companies (<100 employees) typically do not.
Respond with JSON only, keyed by the exact company name as given:
{"Microsoft": {"employee_count": 221000, "has_ta_team": "yes"}, "Small Startup": {"employee_count": 50, "has_ta_team": "no"}}`

// classification is the per-company answer from one batched model call.
type classification struct {
	EmployeeCount int    `json:"employee_count"`
	HasTATeam     string `json:"has_ta_team"` // "yes", "no" or "unknown"
}

type classifyReply struct {
	res classification
	err error
}

type classifyRequest struct {
	name  string
	reply chan classifyReply
}

// batcher coalesces concurrent classification requests into single model
// calls. A flush happens when batchSize requests have accumulated or maxWait
// has elapsed since the first pending request, whichever comes first.
type batcher struct {
	claude    anthropic.Client
	gate      Gate
	model     string
	batchSize int
	maxWait   time.Duration

	requests chan classifyRequest
}

func newBatcher(claude anthropic.Client, gate Gate, model string, batchSize int, maxWait time.Duration) *batcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &batcher{
		claude:    claude,
		gate:      gate,
		model:     model,
		batchSize: batchSize,
		maxWait:   maxWait,
		requests:  make(chan classifyRequest),
	}
}

// run services the request channel until ctx is cancelled. Callers blocked in
// classify are released with ctx.Err on shutdown.
func (b *batcher) run(ctx context.Context) {
	var pending []classifyRequest
	var timer *time.Timer
	var timeout <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timeout = nil
		batch := pending
		pending = nil
		b.flush(ctx, batch)
	}

	for {
		select {
		case req := <-b.requests:
			pending = append(pending, req)
			if len(pending) == 1 {
				timer = time.NewTimer(b.maxWait)
				timeout = timer.C
			}
			if len(pending) >= b.batchSize {
				flush()
			}
		case <-timeout:
			flush()
		case <-ctx.Done():
			for _, req := range pending {
				req.reply <- classifyReply{err: ctx.Err()}
			}
			return
		}
	}
}

// classify submits one company and blocks until its batch is answered.
func (b *batcher) classify(ctx context.Context, name string) (classification, error) {
	req := classifyRequest{name: name, reply: make(chan classifyReply, 1)}
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return classification{}, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.res, rep.err
	case <-ctx.Done():
		return classification{}, ctx.Err()
	}
}

func (b *batcher) flush(ctx context.Context, batch []classifyRequest) {
	results, err := b.classifyBatch(ctx, batch)
	for _, req := range batch {
		if err != nil {
			req.reply <- classifyReply{err: err}
			continue
		}
		// A company the model left out of its answer stays unknown.
		req.reply <- classifyReply{res: results[req.name]}
	}
}

func (b *batcher) classifyBatch(ctx context.Context, batch []classifyRequest) (map[string]classification, error) {
	if _, err := b.gate.Acquire(ctx, "claude"); err != nil {
		return nil, err
	}

	names := make([]string, len(batch))
	for i, req := range batch {
		names[i] = req.name
	}

	resp, err := b.claude.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     b.model,
		MaxTokens: 1024,
		System:    []anthropic.SystemBlock{{Text: classifySystemPrompt}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: "Classify these companies:\n" + strings.Join(names, "\n"),
		}},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(b.model, "analyze")

	results := make(map[string]classification, len(batch))
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &results); err != nil {
		return nil, eris.Wrap(err, "analyze: unmarshal classification")
	}

	zap.L().Debug("classified batch",
		zap.Int("requested", len(batch)),
		zap.Int("answered", len(results)),
	)
	return results, nil
}

// stripFences removes a markdown code fence the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
