package apis

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/memebot/testutil"
)

// rewriteTransport sends every request to the test server.
type rewriteTransport struct {
	Transport http.RoundTripper
	host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	if t.host != "" {
		host := t.host
		host = strings.TrimPrefix(host, "http://")
		host = strings.TrimPrefix(host, "https://")
		req.URL.Host = host
	}
	return t.Transport.RoundTrip(req)
}

func testClient(m *testutil.MockAPIServer) *http.Client {
	return &http.Client{Transport: &rewriteTransport{Transport: http.DefaultTransport, host: m.URL}}
}

func TestImgurSearchGallery(t *testing.T) {
	tests := []struct {
		name     string
		response any
		status   int
		want     []string
		wantErr  bool
	}{
		{
			name: "links extracted",
			response: map[string]any{"data": []map[string]any{
				{"link": "https://i.imgur.com/a.png"},
				{"title": "no link"},
				{"link": "https://i.imgur.com/b.png"},
			}},
			status: http.StatusOK,
			want:   []string{"https://i.imgur.com/a.png", "https://i.imgur.com/b.png"},
		},
		{
			name:     "missing data key",
			response: map[string]any{"success": true},
			status:   http.StatusOK,
			want:     []string{},
		},
		{
			name:    "non-200",
			status:  http.StatusTooManyRequests,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.NewMockAPIServer(t)
			if tt.status == http.StatusOK {
				m.Handle("/3/gallery/search", func(w http.ResponseWriter, r *http.Request) {
					if got := r.Header.Get("Authorization"); got != "Client-ID cid" {
						t.Errorf("Authorization = %q", got)
					}
					if got := r.URL.Query().Get("q"); got != "cats and dogs" {
						t.Errorf("q = %q", got)
					}
					w.Header().Set("Content-Type", "application/json")
					_ = jsonEncode(w, tt.response)
				})
			} else {
				m.Status("/3/gallery/search", tt.status)
			}

			c := NewImgur("cid", testClient(m))
			got, err := c.SearchGallery(context.Background(), "cats and dogs")
			if tt.wantErr {
				var terr *TransportError
				if !errors.As(err, &terr) || terr.Status != tt.status {
					t.Fatalf("SearchGallery() error = %v, want TransportError(%d)", err, tt.status)
				}
				return
			}
			if err != nil {
				t.Fatalf("SearchGallery() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchGallery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImgurMissingClientID(t *testing.T) {
	c := NewImgur("", nil)
	if _, err := c.SearchGallery(context.Background(), "x"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("error = %v, want ErrMissingKey", err)
	}
}

func TestImgurClimateMemesSkipsFailedGalleries(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/3/gallery/r/climate/hot", map[string]any{"data": []map[string]string{{"link": "http://c/1"}}})
	m.JSON("/3/gallery/r/climatechange/hot", map[string]any{"data": []map[string]string{{"link": "http://cc/1"}}})
	// every other gallery answers 404

	got, err := NewImgur("cid", testClient(m)).ClimateMemes(context.Background())
	if err != nil {
		t.Fatalf("ClimateMemes() error: %v", err)
	}
	want := []string{"http://cc/1", "http://c/1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClimateMemes() = %v, want %v", got, want)
	}
	if m.Hits("/3/gallery/r/change/hot") != 1 {
		t.Error("expected every gallery to be queried")
	}
}

func TestImgurClimateMemesAllFail(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	_, err := NewImgur("cid", testClient(m)).ClimateMemes(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Errorf("ClimateMemes() error = %v, want TransportError", err)
	}
}

func TestNinjasDefaults(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handle("/v1/hobbies", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing X-Api-Key header")
		}
		if r.URL.Query().Get("category") != "general" {
			t.Errorf("category = %q", r.URL.Query().Get("category"))
		}
		_ = jsonEncode(w, map[string]string{"hobby": "Knitting"})
	})
	m.JSON("/v1/passwordgenerator", map[string]string{})
	m.JSON("/v1/iplookup", map[string]any{"is_valid": true, "country": "Canada", "address": "1.2.3.4"})

	c := NewNinjas("key", testClient(m))
	ctx := context.Background()

	hobby, err := c.Hobby(ctx)
	if err != nil {
		t.Fatalf("Hobby() error: %v", err)
	}
	want := Hobby{Name: "Knitting", Category: "No category found", Link: "No link available"}
	if hobby != want {
		t.Errorf("Hobby() = %+v, want %+v", hobby, want)
	}

	pw, err := c.Password(ctx, 12)
	if err != nil || pw != "No password generated." {
		t.Errorf("Password() = %q, %v", pw, err)
	}

	ip, err := c.IPLookup(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("IPLookup() error: %v", err)
	}
	if ip.Country != "Canada" || ip.Region != "unknown" || ip.IP != "1.2.3.4" {
		t.Errorf("IPLookup() = %+v", ip)
	}
}

func TestNinjasPasswordLengthQuery(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handle("/v1/passwordgenerator", func(w http.ResponseWriter, r *http.Request) {
		_ = jsonEncode(w, map[string]string{"random_password": strings.Repeat("x", atoi(r.URL.Query().Get("length")))})
	})
	pw, err := NewNinjas("key", testClient(m)).Password(context.Background(), 16)
	if err != nil || len(pw) != 16 {
		t.Errorf("Password(16) = %q, %v", pw, err)
	}
}

func TestNinjasFacts(t *testing.T) {
	tests := []struct {
		name     string
		response any
		want     []string
	}{
		{
			name:     "capped",
			response: []map[string]string{{"fact": "a"}, {"fact": "b"}, {"nope": "x"}, {"fact": "c"}, {"fact": "d"}},
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "not a list",
			response: map[string]string{"fact": "a"},
			want:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.NewMockAPIServer(t)
			m.JSON("/v1/facts", tt.response)
			got, err := NewNinjas("key", testClient(m)).Facts(context.Background())
			if err != nil {
				t.Fatalf("Facts() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Facts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNinjasInvalidJSON(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handle("/v1/facts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	_, err := NewNinjas("key", testClient(m)).Facts(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Errorf("Facts() error = %v, want TransportError", err)
	}
}

func TestWeatherCurrent(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handle("/v1/current.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "wkey" || r.URL.Query().Get("q") != "New York" {
			t.Errorf("query = %v", r.URL.Query())
		}
		_ = jsonEncode(w, map[string]any{
			"location": map[string]any{"name": "New York"},
			"current":  map[string]any{"temp_c": 21.5, "condition": map[string]string{"text": "Sunny"}},
		})
	})
	got, err := NewWeatherAPI("wkey", testClient(m)).Current(context.Background(), "New York")
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	want := Weather{Location: "New York", TempC: 21.5, Condition: "Sunny"}
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestWeatherNoData(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/v1/current.json", map[string]any{"error": map[string]string{"message": "No matching location found."}})
	_, err := NewWeatherAPI("wkey", testClient(m)).Current(context.Background(), "Atlantis")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Current() error = %v, want ErrNoData", err)
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handle("/v1/facts", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := NewNinjas("key", testClient(m))
	c.Timeout = 50 * time.Millisecond
	_, err := c.Facts(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Facts() error = %v, want TransportError wrapping deadline", err)
	}
}
