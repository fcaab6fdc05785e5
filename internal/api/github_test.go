package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/wesm/issue-overseer/internal/models"
)

const apiPrefix = "/api/v3"

func newTestGitHubClient(t *testing.T, mux *http.ServeMux) *GitHubClient {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewGitHubClient(server.Client(), server.URL+"/")
	if err != nil {
		t.Fatalf("NewGitHubClient() error: %v", err)
	}
	return client
}

func TestListRepositoriesPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		fmt.Fprint(w, `[{"name":"web","archived":false},{"name":"old","archived":true}]`)
	})
	client := newTestGitHubClient(t, mux)

	repos, err := client.ListRepositoriesPage(context.Background(), "acme", 2)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Repository{{Name: "web"}, {Name: "old", Archived: true}}
	if !reflect.DeepEqual(repos, want) {
		t.Errorf("ListRepositoriesPage() = %+v, want %+v", repos, want)
	}
}

func TestListRepositoriesPage_TransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	})
	client := newTestGitHubClient(t, mux)

	_, err := client.ListRepositoriesPage(context.Background(), "acme", 1)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", transportErr.StatusCode)
	}
	if transportErr.Message != "Bad credentials" {
		t.Errorf("Message = %q, want %q", transportErr.Message, "Bad credentials")
	}
}

func TestListLabels_FollowsPages(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/repos/acme/web/labels", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s%s/repos/acme/web/labels?page=2>; rel="next"`, server.URL, apiPrefix))
			fmt.Fprint(w, `[{"name":"bug","color":"d73a4a"}]`)
		case "2":
			fmt.Fprint(w, `[{"name":"answering: answered","color":"00a000"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := NewGitHubClient(server.Client(), server.URL+"/")
	if err != nil {
		t.Fatalf("NewGitHubClient() error: %v", err)
	}

	labels, err := client.ListLabels(context.Background(), "acme", "web")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Label{
		{Name: "bug", Color: "d73a4a"},
		{Name: "answering: answered", Color: "00a000"},
	}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("ListLabels() = %+v, want %+v", labels, want)
	}
}

func TestCreateLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/repos/acme/web/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["name"] != "answering: answered" || body["color"] != "00a000" {
			t.Errorf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"name":"answering: answered","color":"00a000"}`)
	})
	client := newTestGitHubClient(t, mux)

	err := client.CreateLabel(context.Background(), "acme", "web", models.Label{Name: "answering: answered", Color: "00a000"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddIssueLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/repos/acme/web/issues/7/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body []string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if !reflect.DeepEqual(body, []string{"answering: not answered"}) {
			t.Errorf("unexpected body: %v", body)
		}
		fmt.Fprint(w, `[{"name":"answering: not answered"}]`)
	})
	client := newTestGitHubClient(t, mux)

	err := client.AddIssueLabel(context.Background(), "https://github.com/acme/web/issues/7", "answering: not answered")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveIssueLabel_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/repos/acme/web/issues/7/labels/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Label does not exist"}`)
	})
	client := newTestGitHubClient(t, mux)

	err := client.RemoveIssueLabel(context.Background(), "https://github.com/acme/web/issues/7", "answered")

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

func TestRemoveIssueLabel_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/repos/acme/web/issues/7/labels/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client := newTestGitHubClient(t, mux)

	err := client.RemoveIssueLabel(context.Background(), "https://github.com/acme/web/issues/7", "answered")

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if IsNotFound(err) {
		t.Error("502 must not be reported as not found")
	}
}

func TestParseIssueURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    IssueRef
		wantErr bool
	}{
		{
			name: "github.com issue",
			url:  "https://github.com/acme/web/issues/12",
			want: IssueRef{Owner: "acme", Repo: "web", Number: 12},
		},
		{
			name: "enterprise host",
			url:  "https://git.example.com/acme/web/issues/3",
			want: IssueRef{Owner: "acme", Repo: "web", Number: 3},
		},
		{
			name:    "pull request",
			url:     "https://github.com/acme/web/pull/12",
			wantErr: true,
		},
		{
			name:    "non numeric",
			url:     "https://github.com/acme/web/issues/abc",
			wantErr: true,
		},
		{
			name:    "too short",
			url:     "https://github.com/acme/issues/1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIssueURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIssueURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseIssueURL(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}
