//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/db"
	"github.com/quill-blog/quill/internal/server"
	"go.uber.org/zap"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setEnv()

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestPostLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	author := fmt.Sprintf("author_%d", suffix)
	other := fmt.Sprintf("other_%d", suffix)

	authorToken, err := registerUser(t, baseURL, author, "testpass123!")
	if err != nil {
		t.Fatalf("register author: %v", err)
	}
	otherToken, err := registerUser(t, baseURL, other, "testpass123!")
	if err != nil {
		t.Fatalf("register other: %v", err)
	}

	created, status, err := sendPost(t, baseURL, http.MethodPost, "/api/posts", authorToken, "Hello", "World")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if status != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", status)
	}
	if created.ID == 0 || created.Created.IsZero() {
		t.Fatalf("expected id and created to be set: %+v", created)
	}
	if created.AuthorUsername != author {
		t.Fatalf("unexpected author: %q", created.AuthorUsername)
	}

	path := fmt.Sprintf("/api/posts/%d", created.ID)
	if _, status, err := sendPost(t, baseURL, http.MethodPut, path, otherToken, "Hacked", ""); err != nil || status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author update, got %d (%v)", status, err)
	}

	updated, status, err := sendPost(t, baseURL, http.MethodPut, path, authorToken, "Hello again", "Updated")
	if err != nil || status != http.StatusOK {
		t.Fatalf("update post: %d (%v)", status, err)
	}
	if updated.Title != "Hello again" || !updated.Created.Equal(created.Created) {
		t.Fatalf("unexpected updated post: %+v", updated)
	}

	if status := deletePost(t, baseURL, path, authorToken); status != http.StatusNoContent {
		t.Fatalf("delete post: %d", status)
	}
	if status := deletePost(t, baseURL, path, authorToken); status != http.StatusNotFound {
		t.Fatalf("expected deleted post to be missing, got %d", status)
	}
}

func TestBrowserFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("browser_%d", time.Now().UnixNano())

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	steps := []struct {
		path     string
		form     url.Values
		location string
	}{
		{"/auth/register", url.Values{"username": {username}, "password": {"pw"}}, "/auth/login"},
		{"/auth/login", url.Values{"username": {username}, "password": {"pw"}}, "/"},
		{"/create", url.Values{"title": {"From the browser " + username}, "body": {"hi"}}, "/"},
	}
	for _, step := range steps {
		resp, err := client.PostForm(baseURL+step.path, step.form)
		if err != nil {
			t.Fatalf("post %s: %v", step.path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != step.location {
			t.Fatalf("post %s: status %d location %q", step.path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, err := client.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "From the browser "+username) {
		t.Fatalf("index does not list the new post")
	}
}

type postResponse struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	AuthorUsername string    `json:"author_username"`
	Created        time.Time `json:"created"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/auth/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func sendPost(t *testing.T, baseURL, method, path, token, title, text string) (postResponse, int, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"title": title, "body": text})
	if err != nil {
		return postResponse{}, 0, err
	}

	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return postResponse{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return postResponse{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return postResponse{}, resp.StatusCode, nil
	}

	var parsed postResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return postResponse{}, resp.StatusCode, err
	}
	return parsed, resp.StatusCode, nil
}

func deletePost(t *testing.T, baseURL, path, token string) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, baseURL+path, nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations() error {
	cfg := config.LoadConfig()
	migrator, err := db.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close()
	}()
	return migrator.Up()
}

func setEnv() {
	_ = os.Setenv("SESSION_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "quill")
	_ = os.Setenv("DB_PASSWORD", "quill")
	_ = os.Setenv("DB_NAME", "quill")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("BCRYPT_COST", "4")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
