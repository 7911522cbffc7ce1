package parsers

import (
	"context"
	"errors"
	"testing"

	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

type stubProducer struct {
	name   string
	closed bool
}

func (s *stubProducer) Name() string { return s.name }
func (s *stubProducer) FetchRaw(context.Context) (*models.RawExtraction, error) {
	return &models.RawExtraction{Source: s.name}, nil
}
func (s *stubProducer) Close() error { s.closed = true; return nil }

var built []*stubProducer

func init() {
	Register("stub-registry-test", func(name string, _ config.SourceConfig) (Producer, error) {
		p := &stubProducer{name: name}
		built = append(built, p)
		return p, nil
	})
}

func TestBuild(t *testing.T) {
	built = nil
	cfg := &config.Config{
		Poller: config.PollerConfig{EnabledSources: []string{"a", "b"}},
		Sources: map[string]config.SourceConfig{
			"a": {Kind: "stub-registry-test"},
			"b": {Kind: "STUB-registry-test"},
		},
	}
	ps, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(ps) != 2 || ps[0].Name() != "a" || ps[1].Name() != "b" {
		t.Errorf("producers = %v", ps)
	}
}

func TestBuild_UnknownClosesBuilt(t *testing.T) {
	built = nil
	cfg := &config.Config{
		Poller: config.PollerConfig{EnabledSources: []string{"a", "nope"}},
		Sources: map[string]config.SourceConfig{
			"a": {Kind: "stub-registry-test"},
		},
	}
	_, err := Build(cfg)
	if !errors.Is(err, ErrUnknownProducer) {
		t.Fatalf("err = %v, want ErrUnknownProducer", err)
	}
	if len(built) != 1 || !built[0].closed {
		t.Error("already built producers should be closed")
	}
}

func TestExtractionError(t *testing.T) {
	base := errors.New("timeout")
	err := NewExtractionError("betmgm", base)
	if !errors.Is(err, base) {
		t.Error("ExtractionError should unwrap to its cause")
	}
	if NewExtractionError("fanduel", err) != err {
		t.Error("an existing ExtractionError should not be wrapped twice")
	}
	if NewExtractionError("x", nil) != nil {
		t.Error("nil error should stay nil")
	}
	if got := err.Error(); got != "betmgm: extraction failed: timeout" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSignedToken(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{" +130 ", "+130", true},
		{"−110", "-110", true},
		{"EVEN", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := SignedToken(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SignedToken(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
