package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ildar2244/advent4/format"
	"github.com/ildar2244/advent4/llm"
)

type nopClient struct{}

func (nopClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	return llm.Result{}, nil
}

func newTestRegistry(t *testing.T) *llm.Registry {
	t.Helper()
	r := llm.NewRegistry()
	if err := r.Register(llm.ModelOption{ID: "gpt", DisplayName: "GPT-4o Mini", Client: nopClient{}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(llm.ModelOption{ID: "claude", DisplayName: "Claude 3.5 Haiku", Client: nopClient{}}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestGetStateDefaults(t *testing.T) {
	s := NewStore(newTestRegistry(t))
	st := s.GetState(42)
	if st.SelectedModel != "gpt" {
		t.Fatalf("default model = %q, want gpt", st.SelectedModel)
	}
	if st.ResponseFormat != format.FormatText {
		t.Fatalf("default format = %q, want text", st.ResponseFormat)
	}
}

func TestSwitchSequencesKeepLastValid(t *testing.T) {
	s := NewStore(newTestRegistry(t))

	if err := s.SetModel(1, "claude"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFormat(1, format.FormatJSON); err != nil {
		t.Fatal(err)
	}
	if err := s.SetModel(1, "gemini"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
	if err := s.SetFormat(1, "xml"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}

	st := s.GetState(1)
	if st.SelectedModel != "claude" || st.ResponseFormat != format.FormatJSON {
		t.Fatalf("state after invalid switches = %+v", st)
	}
}

func TestFormatSwitchIsIdempotent(t *testing.T) {
	s := NewStore(newTestRegistry(t))
	if err := s.SetFormat(7, format.FormatJSON); err != nil {
		t.Fatal(err)
	}
	once := s.GetState(7)
	if err := s.SetFormat(7, format.FormatJSON); err != nil {
		t.Fatal(err)
	}
	twice := s.GetState(7)
	if once != twice {
		t.Fatalf("states differ: %+v vs %+v", once, twice)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	s := NewStore(newTestRegistry(t))
	if err := s.SetModel(1, "claude"); err != nil {
		t.Fatal(err)
	}
	if st := s.GetState(2); st.SelectedModel != "gpt" {
		t.Fatalf("user 2 state affected by user 1 switch: %+v", st)
	}
}

func TestConcurrentSwitchesStayConsistent(t *testing.T) {
	s := NewStore(newTestRegistry(t))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "gpt"
			if i%2 == 0 {
				id = "claude"
			}
			_ = s.SetModel(9, id)
			_ = s.SetFormat(9, format.FormatJSON)
			_ = s.GetState(9)
		}(i)
	}
	wg.Wait()

	st := s.GetState(9)
	if st.SelectedModel != "gpt" && st.SelectedModel != "claude" {
		t.Fatalf("torn state: %+v", st)
	}
	if st.ResponseFormat != format.FormatJSON {
		t.Fatalf("format = %q, want json", st.ResponseFormat)
	}
}
