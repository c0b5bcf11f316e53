package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/model"
)

func testNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	n.Client = srv.Client()
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`)
	}))
	defer srv.Close()

	err := testNotifier(srv).Send(context.Background(), "x")
	assert.ErrorContains(t, err, "status 429")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
	assert.Equal(t, 7*time.Second, retryDelay(err, time.Second))
	assert.Equal(t, time.Second, retryDelay(errors.New("boom"), time.Second))
}

func TestSend_OKFalseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	err := testNotifier(srv).Send(context.Background(), "x")
	assert.ErrorContains(t, err, "chat not found")
}

func TestSendWithRetry_PermanentRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: can't parse entities"}`)
	}))
	defer srv.Close()

	err := testNotifier(srv).SendWithRetry(context.Background(), "<b>x", 3)
	assert.ErrorContains(t, err, "message rejected")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_SplitsLongMessages(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		texts = append(texts, body["text"])
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	line := "<b>AAPL</b> " + strings.Repeat("x", 988) + "\n"
	require.NoError(t, testNotifier(srv).Send(context.Background(), strings.Repeat(line, 5)))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 2)
	assert.Equal(t, strings.TrimRight(strings.Repeat(line, 4), "\n"), texts[0])
	assert.Equal(t, strings.TrimRight(line, "\n"), texts[1])
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaaa", "bbb"}, splitMessage("aaaa\nbbb", 5))
	assert.Equal(t, []string{"aaaaa", "aa\nb"}, splitMessage("aaaaaaa\nb", 5))
	assert.Equal(t, []string{"ééé", "é"}, splitMessage("éééé", 3))
}

func TestSendWithRetry_RecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv).SendWithRetry(context.Background(), "x", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendWithRetry_NoRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testNotifier(srv).SendWithRetry(context.Background(), "x", 0)
	assert.ErrorContains(t, err, "all 1 retries exhausted")
}

func TestSendWithRetry_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := testNotifier(srv).SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartPolling_DispatchesCommands(t *testing.T) {
	type sent struct{ chat, text string }
	var (
		mu      sync.Mutex
		replies []sent
		polls   atomic.Int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			var req struct {
				Offset  int      `json:"offset"`
				Allowed []string `json:"allowed_updates"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"message"}, req.Allowed)
			if polls.Add(1) == 1 {
				assert.Equal(t, 0, req.Offset)
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":7,"message":{"chat":{"id":42},"text":" /quote AAPL "}},
					{"update_id":8,"message":null},
					{"update_id":9,"message":{"chat":{"id":42},"text":"/silent"}},
					{"update_id":10,"message":{"chat":{"id":42},"text":"good morning"}},
					{"update_id":11,"message":{"chat":{"id":99},"text":"/watchlist"}}]}`)
				return
			}
			assert.Equal(t, 12, req.Offset)
			cancel()
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			replies = append(replies, sent{body["chat_id"], body["text"]})
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1}}`)
		}
	}))
	defer srv.Close()

	var commands []string
	handler := func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		if cmd == "/silent" {
			return ""
		}
		return "reply to " + cmd
	}

	done := make(chan struct{})
	go func() {
		testNotifier(srv).StartPolling(ctx, handler)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	assert.Equal(t, []string{"/quote AAPL", "/silent"}, commands)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []sent{{"42", "reply to /quote AAPL"}}, replies)
}

func TestStartPolling_AnyChatWhenUnconfigured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chats := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getUpdates") {
			fmt.Fprint(w, `{"ok":true,"result":[{"update_id":1,"message":{"chat":{"id":-100123},"text":"/help"}}]}`)
			return
		}
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chats <- body["chat_id"]
		cancel()
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	n := testNotifier(srv)
	n.ChatID = ""
	n.StartPolling(ctx, func(context.Context, string) string { return "help" })
	assert.Equal(t, "-100123", <-chats)
}

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Symbol:         "AAPL",
		DisplayName:    "Apple Inc.",
		CurrentPrice:   180,
		PreviousClose:  178,
		PriceChange:    2,
		PriceChangePct: 1.12,
		High52w:        200,
		Low52w:         150,
		Volume:         52000000,
		AvgVolume:      61000000,
		PERatio:        model.NewPERatio(29.5),
		MarketCap:      "$2.80T",
		TechnicalAnalysis: model.IndicatorSet{
			SMA20: 175, RSI: 61.2,
			Signals: []string{"Price above 20-day MA"},
		},
		Provenance: model.Provenance{Source: "robinhood"},
	}
}

func TestFormatSnapshot(t *testing.T) {
	msg := FormatSnapshot(sampleSnapshot())
	assert.Contains(t, msg, "<b>AAPL</b> Apple Inc.")
	assert.Contains(t, msg, "Price: 180.00 (+2.00, +1.12%)")
	assert.Contains(t, msg, "52w: 150.00 - 200.00 (at 60%)")
	assert.Contains(t, msg, "Volume: 52,000,000 (avg 61,000,000)")
	assert.Contains(t, msg, "P/E: 29.50 | Mkt cap: $2.80T")
	assert.Contains(t, msg, "• Price above 20-day MA")
	assert.Contains(t, msg, "Source: robinhood")
	assert.NotContains(t, msg, "[synthetic]")

	synth := sampleSnapshot()
	synth.IsSynthetic = true
	synth.PERatio = model.PERatio{}
	msg = FormatSnapshot(synth)
	assert.Contains(t, msg, "[synthetic]")
	assert.Contains(t, msg, "P/E: N/A")
}

func TestFormatDigest(t *testing.T) {
	down := sampleSnapshot()
	down.Symbol = "MSFT"
	down.PriceChange = -1
	down.PriceChangePct = -0.3
	down.IsSynthetic = true

	msg := FormatDigest([]*model.Snapshot{sampleSnapshot(), down, nil}, time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC))
	assert.Contains(t, msg, "2024-06-03 14:30")
	assert.Contains(t, msg, "🟢 <b>AAPL</b> 180.00 +1.12% RSI 61 | Price above 20-day MA\n")
	assert.Contains(t, msg, "🔴 <b>MSFT</b> 180.00 -0.30% RSI 61 | Price above 20-day MA <i>[synthetic]</i>")
	assert.Contains(t, msg, "1 of 3 quotes are synthetic")
}

func TestFormatHelp(t *testing.T) {
	assert.Contains(t, FormatHelp(), "/quote SYMBOL")
	assert.Contains(t, FormatHelp(), "/watchlist")
}
