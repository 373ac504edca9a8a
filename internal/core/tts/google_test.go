package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func batchexecuteResponse(audio []byte) string {
	b64 := base64.StdEncoding.EncodeToString(audio)
	return ")]}'\n\n" +
		"123\n" +
		`[["wrb.fr","jQ1olc","[\"` + b64 + `\"]",null,null,null,"generic"],["di",56],["af.httprm",55,"1",12]]` + "\n" +
		"25\n" +
		`[["e",4,null,null,139]]` + "\n"
}

// decodeRPC returns the [text, lang, speed, "null"] parameter of a request.
func decodeRPC(r *http.Request) ([]any, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	var rpc [][][]any
	if err := json.Unmarshal([]byte(r.PostForm.Get("f.req")), &rpc); err != nil {
		return nil, fmt.Errorf("f.req is not JSON: %w", err)
	}
	if len(rpc) != 1 || len(rpc[0]) != 1 || len(rpc[0][0]) != 4 {
		return nil, fmt.Errorf("unexpected rpc shape %v", rpc)
	}
	if rpc[0][0][0] != googleRPC {
		return nil, fmt.Errorf("rpc id = %v, want %s", rpc[0][0][0], googleRPC)
	}
	encoded, _ := rpc[0][0][1].(string)
	var param []any
	if err := json.Unmarshal([]byte(encoded), &param); err != nil {
		return nil, fmt.Errorf("rpc parameter is not JSON: %w", err)
	}
	if len(param) != 4 {
		return nil, fmt.Errorf("parameter has %d fields, want 4", len(param))
	}
	return param, nil
}

func TestGoogleSynthesize(t *testing.T) {
	var mu sync.Mutex
	var texts []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get("Referer") == "" {
			t.Error("missing Referer")
		}

		param, err := decodeRPC(r)
		if err != nil {
			t.Error(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if param[1] != "en" {
			t.Errorf("lang = %v, want en", param[1])
		}
		if param[2] != nil {
			t.Errorf("speed = %v, want null", param[2])
		}
		if param[3] != "null" {
			t.Errorf("param[3] = %v, want \"null\"", param[3])
		}

		mu.Lock()
		texts = append(texts, param[0].(string))
		n := len(texts)
		mu.Unlock()

		fmt.Fprint(w, batchexecuteResponse([]byte(fmt.Sprintf("part%d;", n))))
	}))
	defer srv.Close()

	g := &Google{Client: srv.Client(), TLD: "com", BaseURL: srv.URL}
	got, err := g.Synthesize(context.Background(), Request{Text: "First sentence. Second <one> & more.", Lang: "en"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if string(got.Data) != "part1;part2;" {
		t.Errorf("Data = %q, want part1;part2;", got.Data)
	}
	if got.Format != "mp3" {
		t.Errorf("Format = %q, want mp3", got.Format)
	}
	want := []string{"First sentence", "Second <one> & more"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("texts sent = %q, want %q", texts, want)
	}
}

func TestGoogleSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		param, err := decodeRPC(r)
		if err != nil {
			t.Error(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if param[2] != true {
			t.Errorf("speed = %v, want true", param[2])
		}
		fmt.Fprint(w, batchexecuteResponse([]byte("slow")))
	}))
	defer srv.Close()

	g := &Google{Client: srv.Client(), TLD: "com", BaseURL: srv.URL}
	if _, err := g.Synthesize(context.Background(), Request{Text: "hi", Lang: "en", Slow: true}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
}

func TestGoogleErrors(t *testing.T) {
	tests := []struct {
		name    string
		tld     string
		status  int
		body    string
		wantMsg string
		wantErr error
	}{
		{"forbidden", "com", http.StatusForbidden, "", "bad token", nil},
		{"bad tld", "xx", http.StatusNotFound, "", `unsupported tld "xx"`, nil},
		{"upstream", "com", http.StatusBadGateway, "", "upstream API error", nil},
		{"no audio", "com", http.StatusOK, ")]}'\n\n[]\n", `unsupported language "en"`, ErrNoAudioStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			g := &Google{Client: srv.Client(), TLD: tt.tld, BaseURL: srv.URL}
			_, err := g.Synthesize(context.Background(), Request{Text: "hello", Lang: "en"})

			var gerr *GoogleError
			if !errors.As(err, &gerr) {
				t.Fatalf("err = %v, want *GoogleError", err)
			}
			if gerr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", gerr.StatusCode, tt.status)
			}
			if !strings.Contains(gerr.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", gerr.Msg, tt.wantMsg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want errors.Is %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoogleNoText(t *testing.T) {
	g := &Google{TLD: "com", BaseURL: "http://127.0.0.1:0"}
	if _, err := g.Synthesize(context.Background(), Request{Text: " ... "}); !errors.Is(err, ErrNoText) {
		t.Errorf("err = %v, want ErrNoText", err)
	}
}

func TestGoogleEndpoint(t *testing.T) {
	g := NewGoogle("co.uk", 0)
	want := "https://translate.google.co.uk/_/TranslateWebserverUi/data/batchexecute"
	if got := g.endpoint(); got != want {
		t.Errorf("endpoint = %q, want %q", got, want)
	}
}
