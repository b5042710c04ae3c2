// Package httpstore implements store.Store against the crucible HTTP API.
package httpstore

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
)

// Client talks to the entity API. The base URL is injected; there is no
// process-wide default.
type Client struct {
	http *resty.Client
	reg  *schema.Registry
	log  *zap.Logger
}

// New creates a client rooted at baseURL (e.g. "http://localhost:8001").
func New(baseURL string, reg *schema.Registry, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http: resty.New().SetBaseURL(baseURL).SetHeader("Content-Type", "application/json"),
		reg:  reg,
		log:  log,
	}
}

func (c *Client) path(entityType string) (string, error) {
	es, err := c.reg.Lookup(entityType)
	if err != nil {
		return "", err
	}
	return "/" + es.APIPath + "/", nil
}

// List returns the raw entities of a type matching the filter.
func (c *Client) List(ctx context.Context, entityType string, filter store.Filter) ([]map[string]any, error) {
	p, err := c.path(entityType)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	req := c.http.R().SetContext(ctx).SetResult(&out)
	for k, v := range filter {
		req.SetQueryParam(k, v)
	}
	resp, err := req.Get(p)
	if err := wrap("list "+entityType, resp, err); err != nil {
		return nil, err
	}
	c.log.Debug("listed entities", zap.String("type", entityType), zap.Int("count", len(out)))
	return out, nil
}

// Create persists a new entity and returns its stored form.
func (c *Client) Create(ctx context.Context, entityType string, payload map[string]any) (map[string]any, error) {
	p, err := c.path(entityType)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).SetResult(&out).Post(p)
	if err := wrap("create "+entityType, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces an existing entity and returns its stored form.
func (c *Client) Update(ctx context.Context, entityType, id string, payload map[string]any) (map[string]any, error) {
	p, err := c.path(entityType)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).SetResult(&out).Put(p + id + "/")
	if err := wrap("update "+entityType, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an entity.
func (c *Client) Delete(ctx context.Context, entityType, id string) error {
	p, err := c.path(entityType)
	if err != nil {
		return err
	}
	resp, err := c.http.R().SetContext(ctx).Delete(p + id + "/")
	return wrap("delete "+entityType, resp, err)
}

// Find returns the first entity whose id or name matches, or nil.
func (c *Client) Find(ctx context.Context, entityType, nameOrID string) (map[string]any, error) {
	for _, key := range []string{"id", "name"} {
		res, err := c.List(ctx, entityType, store.Filter{key: nameOrID})
		if err != nil {
			return nil, err
		}
		if len(res) > 0 {
			return res[0], nil
		}
	}
	return nil, nil
}

func wrap(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &store.CollaboratorError{Op: op, Err: err}
	}
	if resp.IsError() {
		return &store.CollaboratorError{Op: op, Err: fmt.Errorf("%s: %s", resp.Status(), resp.String())}
	}
	return nil
}
