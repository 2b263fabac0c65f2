package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	testhelpers "mercator-hq/relay/internal/providers"
	"mercator-hq/relay/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer) *Provider {
	t.Helper()
	p, err := NewProvider(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()+"/v1"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestOpenAIProvider_Stream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		Events: testhelpers.OpenAIStream("He", "llo", "!"),
	})

	p := newTestProvider(t, mock)

	messages := []providers.Message{
		{Role: providers.RoleSystem, Content: "be brief"},
		{Role: providers.RoleUser, Content: "Hi"},
	}
	stream, err := p.Open(context.Background(), "gpt-test", messages)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer stream.Close()

	var got []providers.ChunkEvent
	for {
		chunk, err := stream.Recv(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got = append(got, chunk)
	}

	want := []providers.ChunkEvent{{Content: "He"}, {Content: "llo"}, {Content: "!"}, {IsFinal: true}}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	req, _ := mock.LastRequest()
	var body struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("upstream body is not JSON: %v", err)
	}
	if body.Model != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", body.Model)
	}
	if !body.Stream {
		t.Error("stream = false, want true")
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "Hi" {
		t.Errorf("messages = %+v, want system then user", body.Messages)
	}
	if got := req.Headers.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", got)
	}
}

func TestOpenAIProvider_UnavailableIsNotRetried(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       map[string]any{"error": map[string]any{"message": "overloaded"}},
	})

	p := newTestProvider(t, mock)

	_, err := p.Open(context.Background(), "gpt-test", testhelpers.UserMessages("Hi"))
	if !errors.Is(err, providers.ErrUpstreamUnavailable) {
		t.Fatalf("Open() error = %v, want ErrUpstreamUnavailable", err)
	}

	var unavailable *providers.UnavailableError
	if errors.As(err, &unavailable) && unavailable.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", unavailable.StatusCode)
	}
	if n := mock.RequestCount(); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
}

func TestOpenAIProvider_EmptyMessagesMakeNoRequest(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	p := newTestProvider(t, mock)

	_, err := p.Open(context.Background(), "gpt-test", []providers.Message{})
	if !errors.Is(err, providers.ErrInvalidRequest) {
		t.Fatalf("Open() error = %v, want ErrInvalidRequest", err)
	}
	if n := mock.RequestCount(); n != 0 {
		t.Errorf("upstream requests = %d, want 0", n)
	}
}

func TestOpenAIProvider_CloseReleasesUpstream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		Events: []testhelpers.SSEFrame{testhelpers.OpenAIChunk("He", "")},
		Hold:   true,
	})

	p := newTestProvider(t, mock)

	stream, err := p.Open(context.Background(), "gpt-test", testhelpers.UserMessages("Hi"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if chunk, err := stream.Recv(context.Background()); err != nil || chunk.Content != "He" {
		t.Fatalf("Recv() = %+v, %v, want He", chunk, err)
	}

	stream.Close()

	select {
	case <-mock.Disconnects():
	case <-time.After(2 * time.Second):
		t.Fatal("upstream did not observe the disconnect after Close")
	}
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "openai", Type: "openai"})

	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "api_key" {
		t.Fatalf("NewProvider() error = %v, want api_key ConfigError", err)
	}
}
