package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// These tests run against a live server (docker compose up) and are skipped
// unless BASE_URL is set.

type TestClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewTestClient(t *testing.T) *TestClient {
	t.Helper()

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		t.Skip("BASE_URL is not set")
	}

	return &TestClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Price string `json:"price"`
	Stock int64  `json:"stock"`
}

type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type Order struct {
	ID     string      `json:"id"`
	UserID string      `json:"user_id"`
	Status string      `json:"status"`
	Total  string      `json:"total"`
	Items  []OrderItem `json:"items"`
}

func (c *TestClient) doJSON(
	ctx context.Context,
	t *testing.T,
	method string,
	path string,
	bearer string,
	body any,
) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("http.NewRequest failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		t.Fatalf("HTTP.Do failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return resp, data
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

// JSONを任意の型にデコード。
func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json.Unmarshal(%T) failed: %v body=%s", v, err, string(body))
	}
	return v
}

func uniqueSuffix() string {
	return time.Now().Format("150405.000000000")
}

func login(t *testing.T, c *TestClient, ctx context.Context, email, password string) string {
	t.Helper()

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	requireStatus(t, resp, http.StatusOK, body)

	tp := mustDecode[TokenPair](t, body)
	if strings.TrimSpace(tp.AccessToken) == "" {
		t.Fatalf("access token is empty: body=%s", string(body))
	}
	return tp.AccessToken
}

// 管理者は ADMIN_EMAIL / ADMIN_PASSWORD で起動時に作られている前提。
func adminLogin(t *testing.T, c *TestClient, ctx context.Context) string {
	t.Helper()

	email, password := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("ADMIN_EMAIL / ADMIN_PASSWORD are not set")
	}
	return login(t, c, ctx, email, password)
}

// 顧客を登録してログインし、(user, access_token) を返す。
func registerCustomer(t *testing.T, c *TestClient, ctx context.Context) (UserDTO, string) {
	t.Helper()

	s := strings.ReplaceAll(uniqueSuffix(), ".", "")
	email := "e2e-" + s + "@example.com"
	password := "password123"

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/usuario", "", map[string]string{
		"username": "e2e" + s,
		"email":    email,
		"password": password,
	})
	requireStatus(t, resp, http.StatusCreated, body)
	user := mustDecode[UserDTO](t, body)

	return user, login(t, c, ctx, email, password)
}

// 商品を作成する（admin）
func createProduct(t *testing.T, c *TestClient, ctx context.Context, admin, price string, stock int64) Product {
	t.Helper()

	resp, body := c.doJSON(ctx, t, http.MethodPost, "/producto", admin, map[string]any{
		"name":        "E2E Product " + uniqueSuffix(),
		"description": "created by e2e",
		"price":       price,
		"stock":       stock,
	})
	requireStatus(t, resp, http.StatusCreated, body)
	return mustDecode[Product](t, body)
}
