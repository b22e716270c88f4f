// Package client is a REST client for the tracker API.
package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"tummy-tracker/internal/events"
	"tummy-tracker/internal/ml"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

type Client struct {
	base string
	rest *resty.Client
}

func NewREST(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	r.SetJSONMarshaler(json.Marshal)
	r.SetJSONUnmarshaler(json.Unmarshal)
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tummy: %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do[T any](c *Client, method, path string, body any, query url.Values) (T, error) {
	var out envelope[T]
	req := c.rest.R().SetResult(&out).SetError(&out)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return out.Data, err
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: "HTTP_ERROR", Message: resp.Status()}
		if out.Error != nil {
			apiErr.Code = out.Error.Code
			apiErr.Message = out.Error.Message
		}
		return out.Data, apiErr
	}
	return out.Data, nil
}

func userPath(user, suffix string) string {
	return "/api/v1/users/" + url.PathEscape(user) + suffix
}

func (c *Client) LogMeal(user string, m events.MealEvent) (events.MealEvent, error) {
	return do[events.MealEvent](c, resty.MethodPost, userPath(user, "/meals"), m, nil)
}

func (c *Client) LogSymptom(user string, s events.SymptomEvent) (events.SymptomEvent, error) {
	return do[events.SymptomEvent](c, resty.MethodPost, userPath(user, "/symptoms"), s, nil)
}

func (c *Client) Meals(user string) ([]events.MealEvent, error) {
	return do[[]events.MealEvent](c, resty.MethodGet, userPath(user, "/meals"), nil, nil)
}

// RecentMeals lists meals inside window; zero uses the server default.
func (c *Client) RecentMeals(user string, window time.Duration) ([]events.MealEvent, error) {
	q := url.Values{}
	if window > 0 {
		q.Set("window", window.String())
	}
	return do[[]events.MealEvent](c, resty.MethodGet, userPath(user, "/meals/recent"), nil, q)
}

func (c *Client) Analytics(user string) (events.Analytics, error) {
	return do[events.Analytics](c, resty.MethodGet, userPath(user, "/analytics"), nil, nil)
}

func (c *Client) Train(user string) (ml.TrainReport, error) {
	return do[ml.TrainReport](c, resty.MethodPost, userPath(user, "/train"), nil, nil)
}

func (c *Client) Predict(user string, m events.MealEvent) (ml.Result, error) {
	return do[ml.Result](c, resty.MethodPost, userPath(user, "/predict"), m, nil)
}

func (c *Client) Status(user string) (ml.Status, error) {
	return do[ml.Status](c, resty.MethodGet, userPath(user, "/status"), nil, nil)
}

func (c *Client) Importance(user string) ([]ml.FeatureStats, error) {
	return do[[]ml.FeatureStats](c, resty.MethodGet, userPath(user, "/importance"), nil, nil)
}

// Health reports whether the server answers its health check.
func (c *Client) Health() error {
	_, err := do[map[string]any](c, resty.MethodGet, "/health", nil, nil)
	return err
}
