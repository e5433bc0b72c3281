package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const restPrefix = "/rest/v1/"

// Eq builds a PostgREST equality filter value.
func Eq(v string) string { return "eq." + v }

// Select runs GET /rest/v1/{table} and decodes the JSON array into out.
func (c *Client) Select(ctx context.Context, table string, query url.Values, out any) error {
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + url.PathEscape(table),
		query:  query,
	})
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

// Insert posts row and decodes the returned representation (an array) into out when non-nil.
func (c *Client) Insert(ctx context.Context, table string, row any, out any) error {
	return c.write(ctx, http.MethodPost, table, nil, row, out, "return=representation")
}

// Upsert merges on the onConflict columns.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, row any, out any) error {
	q := url.Values{}
	if onConflict != "" {
		q.Set("on_conflict", onConflict)
	}
	return c.write(ctx, http.MethodPost, table, q, row, out, "resolution=merge-duplicates,return=representation")
}

// Update patches every row matching filter.
func (c *Client) Update(ctx context.Context, table string, filter url.Values, patch any, out any) error {
	return c.write(ctx, http.MethodPatch, table, filter, patch, out, "return=representation")
}

func (c *Client) Delete(ctx context.Context, table string, filter url.Values) error {
	_, err := c.do(ctx, request{
		method:  http.MethodDelete,
		path:    restPrefix + url.PathEscape(table),
		query:   filter,
		headers: map[string]string{"Prefer": "return=minimal"},
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, method, table string, query url.Values, row any, out any, prefer string) error {
	body, err := jsonBody(row)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, request{
		method:  method,
		path:    restPrefix + url.PathEscape(table),
		query:   query,
		body:    body,
		headers: map[string]string{"Prefer": prefer},
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	if out == nil || len(resp) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}
