package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func TestLogCall(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	r := httptest.NewRequest("POST", "/v1/advance?log=error", nil)
	logCall(r, "advance", 200, time.Now(), 10, 20, nil)
	if buf.Len() != 0 {
		t.Fatalf("success logged at error level: %q", buf.String())
	}
	logCall(r, "advance", 422, time.Now(), 10, 0, errors.New("budget"))
	if !strings.Contains(buf.String(), `"status":422`) || !strings.Contains(buf.String(), `"error":"budget"`) {
		t.Fatalf("failure not logged: %q", buf.String())
	}

	buf.Reset()
	r = httptest.NewRequest("POST", "/v1/advance?log=debug", nil)
	logCall(r, "advance", 200, time.Now(), 10, 20, nil)
	if !strings.Contains(buf.String(), `"bytes_out":20`) {
		t.Fatalf("debug sizes missing: %q", buf.String())
	}
}
