package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/addislabs/jobsift/internal/ai"
	"github.com/addislabs/jobsift/internal/dedup"
	"github.com/addislabs/jobsift/internal/detect"
	"github.com/addislabs/jobsift/internal/extract"
	"github.com/addislabs/jobsift/internal/logger"
	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/store"
	"github.com/addislabs/jobsift/internal/textnorm"
)

type stubRecognizer struct {
	entities []ai.Entity
	err      error
}

func (s *stubRecognizer) Recognize(context.Context, string) ([]ai.Entity, error) {
	return s.entities, s.err
}

func newTestPipeline(t *testing.T, st *store.Memory, recognizer ai.Recognizer) *Pipeline {
	t.Helper()

	cfg := detect.DefaultConfig()

	extractors := []extract.Extractor{extract.NewRuleExtractor(cfg.Locations)}
	if recognizer != nil {
		extractors = append(extractors, extract.NewNLPExtractor(recognizer, nil))
	}

	p, err := New(DefaultConfig(), Deps{
		Normalizer: textnorm.New(nil),
		Detector:   detect.New(cfg),
		Extractors: extractors,
		Checker:    dedup.New(dedup.DefaultConfig(), st, nil, nil),
		Store:      st,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func message(id, text string) posting.RawMessage {
	return posting.RawMessage{
		SourceChannelID: "jobs_addis",
		MessageID:       id,
		PostedAt:        time.Now(),
		Text:            text,
	}
}

const richPosting = "Hiring Python Developer in Addis Ababa, salary 15000-20000 ETB, remote ok. Apply now!"

func TestProcessAcceptsPosting(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	p := newTestPipeline(t, st, nil)

	result, err := p.Process(context.Background(), message("1", richPosting))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != Accepted {
		t.Fatalf("expected accepted, got %s", result.Outcome)
	}
	if result.PostingID == "" {
		t.Fatalf("accepted result must carry the posting id")
	}

	stored, err := st.FindActive(context.Background())
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored posting, got %d", len(stored))
	}

	got := stored[0]
	if got.Title != "Python Developer" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if got.Location != "Addis Ababa" {
		t.Fatalf("unexpected location: %q", got.Location)
	}
	if got.SalaryMin != 15000 || got.SalaryMax != 20000 {
		t.Fatalf("unexpected salary: %d-%d", got.SalaryMin, got.SalaryMax)
	}
	if got.Fingerprint == "" {
		t.Fatalf("fingerprint must be set before insert")
	}
}

func TestProcessRejectsChatter(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	p := newTestPipeline(t, st, nil)

	result, err := p.Process(context.Background(),
		message("1", "Good morning everyone, hope you all have a wonderful day today!"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != NotCandidate {
		t.Fatalf("expected not_candidate, got %s", result.Outcome)
	}
	if st.Len() != 0 {
		t.Fatalf("rejected message must not be stored")
	}
}

func TestProcessRejectsCandidateWithoutTitle(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	p := newTestPipeline(t, st, nil)

	// Scores as a candidate (keyword, salary, location, length) but no rule
	// yields a usable title: the only line is labelled-looking and too long.
	text := "urgent vacancy announcement: our growing organization is looking to fill several positions, salary 9000 ETB, location Hawassa, send your documents soon"

	result, err := p.Process(context.Background(), message("1", text))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != NoTitle {
		t.Fatalf("expected no_title, got %s", result.Outcome)
	}
	if st.Len() != 0 {
		t.Fatalf("titleless message must not be stored")
	}
}

func TestProcessDeduplicatesRepost(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	p := newTestPipeline(t, st, nil)

	first, err := p.Process(context.Background(), message("1", richPosting))
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	if first.Outcome != Accepted {
		t.Fatalf("expected first accepted, got %s", first.Outcome)
	}

	second, err := p.Process(context.Background(), message("2", "**"+richPosting+"**"))
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if second.Outcome != Duplicate {
		t.Fatalf("expected duplicate, got %s", second.Outcome)
	}
	if second.DuplicateOf != first.PostingID {
		t.Fatalf("expected duplicate of %s, got %s", first.PostingID, second.DuplicateOf)
	}
	if st.Len() != 1 {
		t.Fatalf("duplicate must not be stored twice")
	}
}

func TestProcessNLPOverridesRuleFields(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	recognizer := &stubRecognizer{entities: []ai.Entity{
		{Field: posting.FieldCompany, Value: "addis software plc", Confidence: 0.95},
	}}
	p := newTestPipeline(t, st, recognizer)

	result, err := p.Process(context.Background(), message("1", richPosting))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != Accepted {
		t.Fatalf("expected accepted, got %s", result.Outcome)
	}

	stored, _ := st.FindActive(context.Background())
	if len(stored) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(stored))
	}
	if stored[0].Company != "Addis Software Plc" {
		t.Fatalf("nlp company not applied: %q", stored[0].Company)
	}
	if stored[0].Confidence[posting.FieldCompany] != 0.95 {
		t.Fatalf("nlp confidence not carried: %v", stored[0].Confidence)
	}
}

func TestProcessSurvivesRecognizerFailure(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	p := newTestPipeline(t, st, &stubRecognizer{err: errors.New("quota exceeded")})

	result, err := p.Process(context.Background(), message("1", richPosting))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != Accepted {
		t.Fatalf("expected accepted despite recognizer failure, got %s", result.Outcome)
	}
}

func TestProcessLogsSourceFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	st := store.NewMemory()
	cfg := detect.DefaultConfig()

	p, err := New(DefaultConfig(), Deps{
		Normalizer: textnorm.New(nil),
		Detector:   detect.New(cfg),
		Extractors: []extract.Extractor{extract.NewRuleExtractor(cfg.Locations)},
		Checker:    dedup.New(dedup.DefaultConfig(), st, nil, nil),
		Store:      st,
		Logger:     zap.New(core),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := p.Process(context.Background(), message("42", richPosting)); err != nil {
		t.Fatalf("process: %v", err)
	}

	entries := logs.FilterMessage("posting accepted").All()
	if len(entries) != 1 {
		t.Fatalf("expected one accepted entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields[logger.FieldChannel] != "jobs_addis" {
		t.Fatalf("channel field not attached: %v", fields)
	}
	if fields[logger.FieldMessage] != "42" {
		t.Fatalf("message field not attached: %v", fields)
	}
}

func TestNewValidatesDeps(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig(), Deps{})
	if err == nil {
		t.Fatalf("expected error for missing deps")
	}

	_, err = New(DefaultConfig(), Deps{
		Normalizer: textnorm.New(nil),
		Detector:   detect.New(detect.DefaultConfig()),
		Store:      store.NewMemory(),
	})
	if err == nil {
		t.Fatalf("expected error for missing extractors")
	}
}
