package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const storagePrefix = "/storage/v1/object/"

// PhotoPath builds the object key {userId}/{folder}/{unixMillis}.jpg.
func PhotoPath(userID, folder string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d.jpg", userID, folder, at.UnixMilli())
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// PublicURL is the unauthenticated read URL of an object in the bucket.
func (c *Client) PublicURL(path string) string {
	return c.baseURL + storagePrefix + "public/" + c.bucket + "/" + escapePath(path)
}

// Upload stores data at path (overwriting) and returns its public URL. The
// service-role key is used when configured, the user token otherwise.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        storagePrefix + c.bucket + "/" + escapePath(path),
		body:        bytes.NewReader(data),
		contentType: contentType,
		headers:     map[string]string{"x-upsert": "true", "cache-control": "3600"},
		auth:        authService,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return c.PublicURL(path), nil
}

// Remove deletes objects from the bucket.
func (c *Client) Remove(ctx context.Context, paths ...string) error {
	body, err := jsonBody(map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		method: http.MethodDelete,
		path:   storagePrefix + c.bucket,
		body:   body,
		auth:   authService,
	})
	if err != nil {
		return fmt.Errorf("remove objects: %w", err)
	}
	return nil
}

// PathFromPublicURL extracts the object key from a URL returned by PublicURL.
func (c *Client) PathFromPublicURL(publicURL string) (string, bool) {
	prefix := c.baseURL + storagePrefix + "public/" + c.bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}
