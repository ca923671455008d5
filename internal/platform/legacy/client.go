// Package legacy talks to the Apps Script bridge that mirrors the directory
// into a Google Sheet and Drive folder. The bridge is best-effort only; this
// client never participates in the core's correctness guarantees.
package legacy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"policedir/internal/domain/directory"
)

type Client struct {
	endpoint string
	httpc    *http.Client
}

// New returns nil when no bridge is configured; callers treat a nil client
// as "no mirror".
func New(endpoint string) *Client {
	if endpoint == "" {
		return nil
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 20 * time.Second},
	}
}

var _ directory.LegacyMirror = (*Client)(nil)

type response struct {
	Success bool           `json:"success"`
	URL     string         `json:"url,omitempty"`
	ID      string         `json:"id,omitempty"`
	Images  []GalleryImage `json:"images,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// GalleryImage is one entry in the unit's shared photo gallery, which lives
// entirely in the bridge's Drive folder.
type GalleryImage struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

func (c *Client) AddEmployee(ctx context.Context, emp directory.Employee) error {
	_, err := c.call(ctx, "addEmployee", employeePayload(emp))
	return err
}

func (c *Client) UpdateEmployee(ctx context.Context, emp directory.Employee) error {
	_, err := c.call(ctx, "updateEmployee", employeePayload(emp))
	return err
}

func (c *Client) DeleteEmployee(ctx context.Context, kgid string) error {
	_, err := c.call(ctx, "deleteEmployee", map[string]any{"kgid": kgid})
	return err
}

// UploadImage sends a base64 JSON envelope; the bridge derives the record id
// from the <id>.jpg filename pattern.
func (c *Client) UploadImage(ctx context.Context, kgid string, image []byte) (string, error) {
	resp, err := c.call(ctx, "uploadImage", map[string]any{
		"filename": kgid + ".jpg",
		"image":    base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) DeleteImage(ctx context.Context, fileID string) error {
	_, err := c.call(ctx, "deleteImage", map[string]any{"fileId": fileID})
	return err
}

func (c *Client) GetGalleryImages(ctx context.Context) ([]GalleryImage, error) {
	resp, err := c.call(ctx, "getGalleryImages", nil)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

func (c *Client) UploadGalleryImage(ctx context.Context, name string, image []byte) (GalleryImage, error) {
	resp, err := c.call(ctx, "uploadGalleryImage", map[string]any{
		"filename": name,
		"image":    base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return GalleryImage{}, err
	}
	return GalleryImage{ID: resp.ID, URL: resp.URL, Name: name}, nil
}

func (c *Client) DeleteGalleryImage(ctx context.Context, fileID string) error {
	_, err := c.call(ctx, "deleteGalleryImage", map[string]any{"fileId": fileID})
	return err
}

func (c *Client) call(ctx context.Context, action string, fields map[string]any) (*response, error) {
	payload := map[string]any{"action": action}
	for k, v := range fields {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge %s: %w", action, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge %s returned %s", action, resp.Status)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("bridge %s failed: %s", action, decoded.Error)
	}
	return &decoded, nil
}

func employeePayload(emp directory.Employee) map[string]any {
	return map[string]any{
		"kgid":        emp.KGID,
		"name":        emp.Name,
		"email":       emp.Email,
		"mobile1":     emp.Mobile1,
		"mobile2":     emp.Mobile2,
		"rank":        emp.Rank,
		"metalNumber": emp.MetalNumber,
		"district":    emp.District,
		"station":     emp.Station,
		"bloodGroup":  emp.BloodGroup,
		"photoUrl":    emp.PhotoURL,
	}
}
