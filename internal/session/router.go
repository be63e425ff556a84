package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/interviewfeed/internal/conversation"
	"github.com/foxseedlab/interviewfeed/internal/metrics"
	"github.com/foxseedlab/interviewfeed/internal/speaker"
	"github.com/foxseedlab/interviewfeed/internal/translator"
)

// Router decides which viewer needs a translated copy of an utterance and
// produces both renderings. Translation is fail-open: any failure leaves
// the original text in place.
type Router struct {
	translator translator.Translator
	timeout    time.Duration
	metrics    *metrics.Metrics
}

func NewRouter(tr translator.Translator, timeout time.Duration) *Router {
	return &Router{
		translator: tr,
		timeout:    timeout,
		metrics:    metrics.DefaultMetrics,
	}
}

type routedText struct {
	OriginalLanguage    string
	InvestigatorDisplay string
	ParticipantDisplay  string
}

// Route never fails to produce both displays. The returned error only
// reports a translation failure that was absorbed.
func (r *Router) Route(ctx context.Context, text string, role speaker.Role, langs conversation.Languages) (routedText, error) {
	spokenIn, target := langs.Participant, langs.Investigator
	if role == speaker.Investigator {
		spokenIn, target = langs.Investigator, langs.Participant
	}
	// Regional variants share one language ("en-US" and "en-GB"); both sides
	// read the original text and the translator is not called.
	sameLanguage := translator.PrimarySubtag(langs.Investigator) == translator.PrimarySubtag(langs.Participant)

	translated, detected, err := text, "", error(nil)
	if !sameLanguage {
		translated, detected, err = r.translate(ctx, text, target)
	}
	if detected == "" {
		detected = translator.PrimarySubtag(spokenIn)
	}

	out := routedText{OriginalLanguage: detected}
	if role == speaker.Investigator {
		out.InvestigatorDisplay = text
		out.ParticipantDisplay = translated
	} else {
		out.InvestigatorDisplay = translated
		out.ParticipantDisplay = text
	}
	return out, err
}

func (r *Router) translate(ctx context.Context, text, targetLang string) (string, string, error) {
	target := translator.PrimarySubtag(targetLang)
	if target == "" {
		r.metrics.RecordTranslation("skipped", 0)
		return text, "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	res, err := r.call(ctx, text, target)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.metrics.RecordTranslation("timeout", elapsed)
			return text, "", fmt.Errorf("translation to %s timed out after %s", target, r.timeout)
		}
		r.metrics.RecordTranslation("error", elapsed)
		return text, "", fmt.Errorf("translation to %s failed: %w", target, err)
	}
	detected := translator.PrimarySubtag(res.DetectedSourceLanguage)
	if detected == target || strings.TrimSpace(res.Text) == "" {
		r.metrics.RecordTranslation("passthrough", elapsed)
		return text, detected, nil
	}
	r.metrics.RecordTranslation("translated", elapsed)
	return res.Text, detected, nil
}

type translateOutcome struct {
	res translator.Result
	err error
}

// call bounds the collaborator by ctx even when it does not honour ctx itself.
func (r *Router) call(ctx context.Context, text, target string) (translator.Result, error) {
	done := make(chan translateOutcome, 1)
	go func() {
		res, err := r.translator.Translate(ctx, text, translator.AutoDetect, target)
		done <- translateOutcome{res: res, err: err}
	}()
	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return translator.Result{}, ctx.Err()
	}
}
