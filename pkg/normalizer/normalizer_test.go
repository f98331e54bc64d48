package normalizer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/campusmenu/pkg/llm"
	"github.com/jmylchreest/campusmenu/pkg/menu"
)

type reply struct {
	items []string
	err   error
}

// scriptedExtractor answers by slot text. A text with several replies
// consumes them in order and repeats the last one.
type scriptedExtractor struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   map[string]int
}

func newScripted(replies map[string][]reply) *scriptedExtractor {
	return &scriptedExtractor{replies: replies, calls: map[string]int{}}
}

func (s *scriptedExtractor) ExtractItems(ctx context.Context, text string) ([]string, error) {
	s.mu.Lock()
	n := s.calls[text]
	s.calls[text]++
	rs := s.replies[text]
	s.mu.Unlock()

	if len(rs) == 0 {
		return nil, fmt.Errorf("no reply scripted for %q", text)
	}
	if n >= len(rs) {
		n = len(rs) - 1
	}
	return rs[n].items, rs[n].err
}

func (s *scriptedExtractor) count(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[text]
}

func rawMenu(slots ...string) *menu.RawMenuData {
	raw := menu.NewRawMenuData("20240325", menu.Dodam)
	for _, label := range slots {
		raw.SetSlot(label, label+" text")
	}
	return raw
}

func fastRetry() Option { return WithRetry(3, 0) }

func TestNormalize_PartialFailureMatchesFailedSet(t *testing.T) {
	labels := []string{"중식1", "중식2", "석식1"}

	for mask := 0; mask < 1<<len(labels); mask++ {
		var failed []string
		replies := map[string][]reply{}
		for i, label := range labels {
			if mask&(1<<i) != 0 {
				failed = append(failed, label)
				replies[label+" text"] = []reply{{err: errors.New("model refused")}}
			} else {
				replies[label+" text"] = []reply{{items: []string{label + " 메뉴"}}}
			}
		}

		t.Run(fmt.Sprintf("failed=%v", failed), func(t *testing.T) {
			parsed, err := New(newScripted(replies), fastRetry()).Normalize(context.Background(), rawMenu(labels...))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}

			var gotFailed []string
			for label := range parsed.SlotErrors {
				gotFailed = append(gotFailed, label)
			}
			sort.Strings(gotFailed)
			wantFailed := append([]string(nil), failed...)
			sort.Strings(wantFailed)
			if !reflect.DeepEqual(gotFailed, wantFailed) && !(len(gotFailed) == 0 && len(wantFailed) == 0) {
				t.Errorf("slot errors = %v, want %v", gotFailed, wantFailed)
			}
			if parsed.Success != (len(failed) == 0) {
				t.Errorf("Success = %v with failed %v", parsed.Success, failed)
			}
			if !reflect.DeepEqual(parsed.AllSlots(), labels) {
				t.Errorf("slot order = %v", parsed.AllSlots())
			}
			for _, label := range failed {
				if len(parsed.Items(label)) != 0 {
					t.Errorf("failed slot %s has items", label)
				}
			}
		})
	}
}

func TestNormalize_StripsDecorations(t *testing.T) {
	ex := newScripted(map[string][]reply{
		"중식 text": {{items: []string{"★오꼬노미돈까스", "잡곡밥", "**김치", "잡곡밥", "  ", "*Hot dog"}}},
	})

	parsed, err := New(ex, fastRetry()).Normalize(context.Background(), rawMenu("중식"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := []string{"오꼬노미돈까스", "잡곡밥", "김치", "*Hot dog"}
	if got := parsed.Items("중식"); !reflect.DeepEqual(got, want) {
		t.Errorf("items = %q, want %q", got, want)
	}
}

func TestNormalize_EmptyResultIsSlotError(t *testing.T) {
	ex := newScripted(map[string][]reply{
		"중식 text": {{items: []string{}}},
		"석식 text": {{items: []string{"카레"}}},
	})

	parsed, err := New(ex, fastRetry()).Normalize(context.Background(), rawMenu("중식", "석식"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if msg := parsed.SlotErrors["중식"]; msg != ErrNoMenuItems.Error() {
		t.Errorf("slot error = %q", msg)
	}
	if !parsed.IsPartialSuccess() {
		t.Error("expected partial success")
	}
}

func TestNormalize_BlankItemsAreSlotError(t *testing.T) {
	ex := newScripted(map[string][]reply{
		"중식 text": {{items: []string{" ", "  ", "\t"}}},
		"석식 text": {{items: []string{"카레"}}},
	})

	parsed, err := New(ex, fastRetry()).Normalize(context.Background(), rawMenu("중식", "석식"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if msg := parsed.SlotErrors["중식"]; msg != ErrNoMenuItems.Error() {
		t.Errorf("slot error = %q, want %q", msg, ErrNoMenuItems)
	}
	if parsed.Success {
		t.Error("a slot that cleans down to nothing must not count as success")
	}
	if got := parsed.SuccessfulSlots(); !reflect.DeepEqual(got, []string{"석식"}) {
		t.Errorf("successful slots = %v", got)
	}
}

func TestNormalize_EmptyTextSkipsExtractor(t *testing.T) {
	ex := newScripted(nil)
	raw := menu.NewRawMenuData("20240325", menu.Faculty)
	raw.SetSlot("중식", "   ")

	parsed, err := New(ex, fastRetry()).Normalize(context.Background(), raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if parsed.SlotErrors["중식"] != ErrEmptySlot.Error() {
		t.Errorf("slot errors = %v", parsed.SlotErrors)
	}
	if ex.count("   ") != 0 {
		t.Error("extractor should not be called for empty text")
	}
}

func TestNormalize_TransientFailureRetriesWholePass(t *testing.T) {
	ex := newScripted(map[string][]reply{
		"중식 text": {{items: []string{"비빔밥"}}},
		"석식 text": {{err: llm.ErrRateLimited}, {items: []string{"짜장면"}}},
	})

	parsed, err := New(ex, fastRetry()).Normalize(context.Background(), rawMenu("중식", "석식"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !parsed.IsCompleteSuccess() {
		t.Errorf("expected complete success, got %v", parsed)
	}
	if ex.count("중식 text") != 2 || ex.count("석식 text") != 2 {
		t.Errorf("expected both slots to run twice, got %d and %d", ex.count("중식 text"), ex.count("석식 text"))
	}
}

func TestNormalize_RetryExhaustion(t *testing.T) {
	ex := newScripted(map[string][]reply{
		"중식 text": {{err: fmt.Errorf("openai: %w", llm.ErrUnavailable)}},
	})

	_, err := New(ex, WithRetry(3, 0)).Normalize(context.Background(), rawMenu("중식"))
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}
	if ex.count("중식 text") != 3 {
		t.Errorf("expected 3 attempts, got %d", ex.count("중식 text"))
	}
}

type blockingExtractor struct{}

func (blockingExtractor) ExtractItems(ctx context.Context, text string) ([]string, error) {
	if strings.HasPrefix(text, "slow") {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []string{"국수"}, nil
}

func TestNormalize_SlotTimeoutIsSlotFailure(t *testing.T) {
	raw := menu.NewRawMenuData("20240325", menu.Haksik)
	raw.SetSlot("중식", "slow text")
	raw.SetSlot("석식", "fast text")

	parsed, err := New(blockingExtractor{}, fastRetry(), WithSlotTimeout(20*time.Millisecond)).
		Normalize(context.Background(), raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if _, failed := parsed.SlotErrors["중식"]; !failed {
		t.Error("timed-out slot should be recorded as failed")
	}
	if got := parsed.Items("석식"); len(got) != 1 {
		t.Errorf("other slot should succeed, got %v", got)
	}
}

func TestNormalize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(blockingExtractor{}, fastRetry()).Normalize(ctx, rawMenu("중식"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalize_ConcurrencyKeepsOrder(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e"}
	replies := map[string][]reply{}
	for _, l := range labels {
		replies[l+" text"] = []reply{{items: []string{l}}}
	}

	parsed, err := New(newScripted(replies), fastRetry(), WithConcurrency(4)).
		Normalize(context.Background(), rawMenu(labels...))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(parsed.AllSlots(), labels) {
		t.Errorf("order = %v", parsed.AllSlots())
	}
}

func TestNormalize_InvalidInput(t *testing.T) {
	n := New(newScripted(nil))
	if _, err := n.Normalize(context.Background(), nil); err == nil {
		t.Error("expected error for nil input")
	}
	if _, err := n.Normalize(context.Background(), menu.NewRawMenuData("2024", menu.Dodam)); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestStripDecorations(t *testing.T) {
	tests := map[string]string{
		"★오꼬노미돈까스": "오꼬노미돈까스",
		"잡곡밥":      "잡곡밥",
		"☆☆떡볶이":    "떡볶이",
		"※ 김치":     "※ 김치",
		"*Salad":   "*Salad",
		"돈까스*":     "돈까스*",
		"밥*국":      "밥국",
	}
	for in, want := range tests {
		if got := StripDecorations(in); got != want {
			t.Errorf("StripDecorations(%q) = %q, want %q", in, got, want)
		}
	}
}
