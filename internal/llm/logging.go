package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CallRecord is one provider call as seen by the logging decorator.
type CallRecord struct {
	Provider     string
	Model        string
	Purpose      string
	LearnerID    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// Recorder persists call records. The audit store implements it.
type Recorder interface {
	RecordLLMCall(ctx context.Context, rec CallRecord) error
}

// LoggingProvider logs every call and hands it to an optional Recorder.
type LoggingProvider struct {
	inner    Provider
	provider string
	recorder Recorder
	logger   *slog.Logger
}

// WithLogging wraps a Provider with call logging. recorder may be nil.
func WithLogging(p Provider, providerName string, recorder Recorder, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: providerName, recorder: recorder, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	rec := CallRecord{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LearnerID:   LearnerFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		rec.ResponseBody = string(resp.Content)
	}

	if err != nil {
		rec.ErrorMessage = err.Error()
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) && len(inv.Content) > 0 {
			rec.ResponseBody = inv.Raw()
		}
		l.logger.Warn("llm: call failed",
			"purpose", purpose,
			"model", rec.Model,
			"latency_ms", rec.LatencyMs,
			"error", err,
		)
	} else {
		l.logger.Debug("llm: call",
			"purpose", purpose,
			"model", rec.Model,
			"latency_ms", rec.LatencyMs,
			"input_tokens", rec.InputTokens,
			"output_tokens", rec.OutputTokens,
		)
	}

	if l.recorder != nil {
		// Audit failures never fail the call.
		if recErr := l.recorder.RecordLLMCall(context.WithoutCancel(ctx), rec); recErr != nil {
			l.logger.Warn("llm: record call", "error", recErr)
		}
	}

	return resp, labelError(ctx, l.provider, err)
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}

	return b.String()
}
